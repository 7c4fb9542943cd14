package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/revdeps/pkg/config"
	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
)

func toolArchive(t *testing.T, libs ...string) []byte {
	t.Helper()
	keys := map[string]any{"Tool/1.0.0": map[string]string{"type": "project"}}
	for _, lib := range libs {
		keys[lib] = map[string]string{"type": "package"}
	}
	manifest, err := json.Marshal(map[string]any{"libraries": keys})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string][]byte{
		"tool.nuspec":                     []byte("<package/>"),
		"tools/net8.0/any/Tool.deps.json": manifest,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newRegistryServer serves one search page listing every package in pkgs
// and their archives under /flat/.
func newRegistryServer(t *testing.T, versions map[string]string, pkgs map[string][]byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		page := nuget.SearchPage{TotalHits: len(versions), Data: []nuget.SearchResult{}}
		if skip, _ := strconv.Atoi(r.URL.Query().Get("skip")); skip == 0 {
			for id, v := range versions {
				page.Data = append(page.Data, nuget.SearchResult{ID: id, Version: v})
			}
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/flat/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/flat/"), "/")
		data, ok := pkgs[parts[0]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func registryConfig(t *testing.T, srv *httptest.Server, extra string) string {
	t.Helper()
	return writeConfig(t, fmt.Sprintf(`
[registry]
service_index = ""
search_url = %q
package_base_url = %q

[cache]
backend = "none"
%s`, srv.URL+"/query", srv.URL+"/flat", extra))
}

func TestScanCommand(t *testing.T) {
	srv := newRegistryServer(t,
		map[string]string{"Tool": "1.0.0", "Other": "2.0.0"},
		map[string][]byte{
			"tool":  toolArchive(t, "System.CommandLine/2.0.0-beta4.22272.1"),
			"other": toolArchive(t, "Newtonsoft.Json/13.0.3"),
		})
	cfg := registryConfig(t, srv, "")

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Out = &out
	if _, err := runCommand(t, c, "scan", "--config", cfg, "--stop-mode", "none", "--workers", "2"); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if got, want := out.String(), "Tool uses System.CommandLine\nDone\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestScanCommandTargetFlag(t *testing.T) {
	srv := newRegistryServer(t,
		map[string]string{"Tool": "1.0.0"},
		map[string][]byte{"tool": toolArchive(t, "Spectre.Console/0.48.0")})
	cfg := registryConfig(t, srv, "")

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Out = &out
	if _, err := runCommand(t, c, "scan", "--config", cfg, "--target", "spectre.console"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got, want := out.String(), "Tool uses spectre.console\nDone\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestScanCommandInvalidStopMode(t *testing.T) {
	t.Setenv("REVDEPS_CONFIG", "")
	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Out = &out

	_, err := runCommand(t, c, "scan", "--stop-mode", "sometimes")
	if !apperrors.Is(err, apperrors.ErrCodeInvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG", err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want nothing before the scan starts", out.String())
	}
}

func TestScanCommandSearchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	cfg := registryConfig(t, srv, "")

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Out = &out

	_, err := runCommand(t, c, "scan", "--config", cfg)
	if !apperrors.Is(err, apperrors.ErrCodeNetwork) {
		t.Fatalf("err = %v, want NETWORK_ERROR", err)
	}
	if strings.Contains(out.String(), "Done") {
		t.Error("Done printed after a failed scan")
	}
}

func TestApplyScanFlags(t *testing.T) {
	flags := scanFlags{
		target:        "Spectre.Console",
		packageType:   "",
		workers:       4,
		queueCapacity: 10,
		pageSize:      50,
		maxPages:      2,
		stopMode:      "none",
		prerelease:    true,
		rate:          5,
		retries:       3,
		noCache:       true,
		redisURL:      "redis://localhost:6379/0",
		jsonlPath:     "out.jsonl",
		mongoURI:      "mongodb://localhost:27017",
		statusAddr:    ":8080",
	}

	t.Run("nothing changed", func(t *testing.T) {
		cfg := config.Default()
		applyScanFlags(&cfg, flags, func(string) bool { return false })
		if cfg.Target != config.Default().Target || cfg.Workers != config.Default().Workers {
			t.Errorf("unchanged flags overrode config: %+v", cfg)
		}
	})

	t.Run("explicit flags win", func(t *testing.T) {
		cfg := config.Default()
		applyScanFlags(&cfg, flags, func(string) bool { return true })

		checks := []struct {
			name      string
			got, want any
		}{
			{"target", cfg.Target, "Spectre.Console"},
			{"package type", cfg.Registry.PackageType, ""},
			{"workers", cfg.Workers, 4},
			{"queue", cfg.QueueCapacity, 10},
			{"page size", cfg.Registry.PageSize, 50},
			{"max pages", cfg.Registry.MaxPages, 2},
			{"stop mode", cfg.StopMode, "none"},
			{"prerelease", cfg.Registry.Prerelease, true},
			{"rate", cfg.Registry.RateLimit, 5.0},
			{"retries", cfg.Retry.Attempts, 3},
			{"cache backend", cfg.Cache.Backend, config.CacheNone},
			{"redis url", cfg.Cache.RedisURL, "redis://localhost:6379/0"},
			{"jsonl", cfg.Sink.JSONLPath, "out.jsonl"},
			{"mongo", cfg.Sink.MongoURI, "mongodb://localhost:27017"},
			{"status", cfg.StatusAddr, ":8080"},
		}
		for _, c := range checks {
			if c.got != c.want {
				t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
			}
		}
	})

	t.Run("redis selects backend", func(t *testing.T) {
		cfg := config.Default()
		applyScanFlags(&cfg, flags, func(name string) bool { return name == "redis" })
		if cfg.Cache.Backend != config.CacheRedis {
			t.Errorf("backend = %q, want redis", cfg.Cache.Backend)
		}
	})
}

func TestInspectCommand(t *testing.T) {
	srv := newRegistryServer(t,
		map[string]string{},
		map[string][]byte{
			"tool":  toolArchive(t, "System.CommandLine.NamingConventionBinder/2.0.0"),
			"other": toolArchive(t, "Newtonsoft.Json/13.0.3"),
		})
	cfg := registryConfig(t, srv, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"match", []string{"inspect", "Tool", "1.0.0"}, "Tool uses System.CommandLine"},
		{"no match", []string{"inspect", "Other", "1.0.0"}, "does not reference System.CommandLine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, New(io.Discard, LogInfo), append(tt.args, "--config", cfg)...)
			if err != nil {
				t.Fatalf("inspect: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}

	t.Run("unknown package", func(t *testing.T) {
		_, err := runCommand(t, New(io.Discard, LogInfo), "inspect", "Missing", "1.0.0", "--config", cfg)
		if !apperrors.Is(err, apperrors.ErrCodeNotFound) {
			t.Errorf("err = %v, want NOT_FOUND", err)
		}
	})

	t.Run("bad version", func(t *testing.T) {
		_, err := runCommand(t, New(io.Discard, LogInfo), "inspect", "Tool", "not-a-version", "--config", cfg)
		if !apperrors.Is(err, apperrors.ErrCodeInvalidVersion) {
			t.Errorf("err = %v, want INVALID_VERSION", err)
		}
	})
}
