// Package config loads revdeps settings from TOML or YAML files.
//
// Values not present in the file keep their [Default]. Command-line flags are
// applied on top by the CLI.
//
//	# revdeps.toml
//	target = "System.CommandLine"
//	workers = 32
//	stop_mode = "first"
//
//	[registry]
//	package_type = "DotnetTool"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/httputil"
	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
	"github.com/matzehuels/revdeps/pkg/manifest"
	"github.com/matzehuels/revdeps/pkg/scan"
)

// EnvConfig names a config file used when no --config flag is given.
const EnvConfig = "REVDEPS_CONFIG"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// maxPageSize is the largest take the NuGet search service accepts.
const maxPageSize = 1000

// Config is the complete revdeps configuration.
type Config struct {
	Target         string `toml:"target" yaml:"target"`
	ManifestSuffix string `toml:"manifest_suffix" yaml:"manifest_suffix"`
	Workers        int    `toml:"workers" yaml:"workers"`
	QueueCapacity  int    `toml:"queue_capacity" yaml:"queue_capacity"`
	StopMode       string `toml:"stop_mode" yaml:"stop_mode"`
	StatusAddr     string `toml:"status_addr" yaml:"status_addr"`

	Registry  Registry                 `toml:"registry" yaml:"registry"`
	Retry     Retry                    `toml:"retry" yaml:"retry"`
	Transport httputil.TransportConfig `toml:"transport" yaml:"transport"`
	Cache     Cache                    `toml:"cache" yaml:"cache"`
	Archive   Archive                  `toml:"archive" yaml:"archive"`
	Sink      Sink                     `toml:"sink" yaml:"sink"`
}

// Registry selects and paces the NuGet endpoints.
type Registry struct {
	// ServiceIndex is the V3 service index used to discover endpoints.
	ServiceIndex string `toml:"service_index" yaml:"service_index"`
	// SearchURL overrides discovery of the search endpoint.
	SearchURL string `toml:"search_url" yaml:"search_url"`
	// PackageBaseURL overrides discovery of the flat container.
	PackageBaseURL string  `toml:"package_base_url" yaml:"package_base_url"`
	PackageType    string  `toml:"package_type" yaml:"package_type"`
	PageSize       int     `toml:"page_size" yaml:"page_size"`
	MaxPages       int     `toml:"max_pages" yaml:"max_pages"`
	Prerelease     bool    `toml:"prerelease" yaml:"prerelease"`
	SemVerLevel    string  `toml:"semver_level" yaml:"semver_level"`
	RateLimit      float64 `toml:"rate_limit" yaml:"rate_limit"` // requests/second, 0 = off
}

// Retry configures re-attempts of transient registry failures.
type Retry struct {
	Attempts int           `toml:"attempts" yaml:"attempts"`
	Delay    time.Duration `toml:"delay" yaml:"delay"`
}

// Policy converts r for the HTTP layer.
func (r Retry) Policy() httputil.RetryPolicy {
	return httputil.RetryPolicy{Attempts: r.Attempts, Delay: r.Delay}
}

// Cache configures the verdict cache.
type Cache struct {
	Backend  string        `toml:"backend" yaml:"backend"`
	Dir      string        `toml:"dir" yaml:"dir"` // empty uses the user cache dir
	RedisURL string        `toml:"redis_url" yaml:"redis_url"`
	Prefix   string        `toml:"prefix" yaml:"prefix"`
	TTL      time.Duration `toml:"ttl" yaml:"ttl"`
}

// Archive configures spooling of package downloads.
type Archive struct {
	SpoolMemoryLimit int64  `toml:"spool_memory_limit" yaml:"spool_memory_limit"`
	TempDir          string `toml:"temp_dir" yaml:"temp_dir"`
}

// Sink configures where matches go besides stdout.
type Sink struct {
	JSONLPath       string `toml:"jsonl_path" yaml:"jsonl_path"`
	MongoURI        string `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database" yaml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection" yaml:"mongo_collection"`
}

// Default returns the built-in configuration: scan nuget.org .NET tools for
// System.CommandLine with 32 workers over a queue of 1000.
func Default() Config {
	return Config{
		Target:         scan.DefaultTarget,
		ManifestSuffix: manifest.Suffix,
		Workers:        scan.DefaultWorkers,
		QueueCapacity:  scan.DefaultQueueCapacity,
		StopMode:       string(scan.StopFirst),
		Registry: Registry{
			ServiceIndex: nuget.DefaultServiceIndexURL,
			SearchURL:    nuget.DefaultSearchURL,
			PackageType:  nuget.DefaultPackageType,
			PageSize:     scan.DefaultPageSize,
		},
		Retry:     Retry{Attempts: 1, Delay: time.Second},
		Transport: httputil.DefaultTransportConfig(),
		Cache: Cache{
			Backend: CacheFile,
			Prefix:  "revdeps:",
			TTL:     7 * 24 * time.Hour,
		},
		Sink: Sink{
			MongoDatabase:   "revdeps",
			MongoCollection: "matches",
		},
	}
}

// Path returns explicit if set, else the REVDEPS_CONFIG environment value.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(EnvConfig)
}

// Load reads the file at path over Default. An empty path returns Default.
// The format follows the extension: .toml, .yaml or .yml. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "read config")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, apperrors.New(apperrors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return cfg, apperrors.New(apperrors.ErrCodeInvalidConfig, "unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges and combinations. Failures carry INVALID_CONFIG.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Target) == "" {
		add("target must not be empty")
	}
	if c.ManifestSuffix == "" {
		add("manifest_suffix must not be empty")
	}
	if c.Workers < 1 {
		add("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueCapacity < 1 {
		add("queue_capacity must be at least 1, got %d", c.QueueCapacity)
	}
	if _, err := scan.ParseStopMode(c.StopMode); err != nil {
		add("stop_mode %q must be first, worker or none", c.StopMode)
	}
	if c.Registry.PageSize < 1 || c.Registry.PageSize > maxPageSize {
		add("registry.page_size must be between 1 and %d, got %d", maxPageSize, c.Registry.PageSize)
	}
	if c.Registry.MaxPages < 0 {
		add("registry.max_pages must not be negative")
	}
	if c.Registry.RateLimit < 0 {
		add("registry.rate_limit must not be negative")
	}
	for _, u := range []struct{ name, value string }{
		{"registry.service_index", c.Registry.ServiceIndex},
		{"registry.search_url", c.Registry.SearchURL},
		{"registry.package_base_url", c.Registry.PackageBaseURL},
	} {
		if u.value != "" && apperrors.ValidateURL(u.value) != nil {
			add("%s must be an http(s) URL, got %q", u.name, u.value)
		}
	}
	if c.Registry.ServiceIndex == "" && (c.Registry.SearchURL == "" || c.Registry.PackageBaseURL == "") {
		add("registry.service_index is required unless search_url and package_base_url are both set")
	}
	if c.Retry.Attempts < 1 {
		add("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			add("cache.redis_url is required for the redis backend")
		}
	default:
		add("cache.backend %q must be file, redis or none", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		add("cache.ttl must not be negative")
	}

	if len(problems) > 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
