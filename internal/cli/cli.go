// Package cli implements the revdeps command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/revdeps/pkg/buildinfo"
	"github.com/matzehuels/revdeps/pkg/cache"
	"github.com/matzehuels/revdeps/pkg/config"
	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/httputil"
	"github.com/matzehuels/revdeps/pkg/integrations"
	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
	"github.com/matzehuels/revdeps/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "revdeps"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives match lines and command results. Nil means os.Stdout.
	Out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. Debug adds timestamps and callers.
func (c *CLI) SetLogLevel(level log.Level) {
	applyLevel(c.Logger, level)
}

func (c *CLI) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// ReportError prints err to stderr. Coded errors whose message already says
// everything are printed without the code prefix.
func (c *CLI) ReportError(err error) {
	msg := err.Error()
	var e *apperrors.Error
	if errors.As(err, &e) && error(e) == err {
		msg = apperrors.UserMessage(e)
	}
	c.Logger.Debug("command failed", "code", apperrors.GetCode(err))
	printError(os.Stderr, "%s", msg)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "revdeps finds NuGet packages that depend on a library",
		Long:         `revdeps pages through the NuGet search service, downloads every package of a given type and reports the ones whose .deps.json manifests reference a target library (System.CommandLine by default).`,
		Version:      buildinfo.Current(),
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.scanCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Registry Clients
// =============================================================================

// registry bundles the NuGet clients built from one configuration.
type registry struct {
	search  *nuget.SearchClient
	content *nuget.ContentClient
}

func newRegistry(cfg config.Config) registry {
	tc := cfg.Transport
	if tc.UserAgent == "" {
		tc.UserAgent = buildinfo.UserAgent()
	}
	// one connection per worker at least
	tc.MaxConnsPerHost = max(tc.MaxConnsPerHost, cfg.Workers)
	tc.MaxIdleConnsPerHost = max(tc.MaxIdleConnsPerHost, cfg.Workers)

	client := integrations.NewClient(integrations.Options{
		HTTP:      httputil.NewHTTPClient(tc),
		RateLimit: cfg.Registry.RateLimit,
		Retry:     cfg.Retry.Policy(),
	})
	var index *nuget.ServiceIndex
	if cfg.Registry.ServiceIndex != "" {
		index = nuget.NewServiceIndex(client, cfg.Registry.ServiceIndex)
	}
	return registry{
		search: nuget.NewSearchClient(client, index, nuget.SearchOptions{
			URL:         cfg.Registry.SearchURL,
			PackageType: cfg.Registry.PackageType,
			Prerelease:  cfg.Registry.Prerelease,
			SemVerLevel: cfg.Registry.SemVerLevel,
		}),
		content: nuget.NewContentClient(client, index, cfg.Registry.PackageBaseURL),
	}
}

// =============================================================================
// Verdict Cache
// =============================================================================

// newCache opens the configured verdict cache backend.
func newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		return cache.Scoped(rc, cfg.Cache.Prefix), nil
	case config.CacheFile:
		dir := cfg.Cache.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				loggerFromContext(ctx).Warn("no cache directory, verdict cache disabled", "error", err)
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	default:
		return cache.NewNullCache(), nil
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/revdeps/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Observability
// =============================================================================

// httpLogHooks logs registry traffic at debug level.
type httpLogHooks struct {
	logger *log.Logger
}

func (h httpLogHooks) OnRequest(context.Context, string, string, string) {}

func (h httpLogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http", "method", method, "host", host, "path", path, "status", status, "took", d.Round(time.Millisecond))
}

func (h httpLogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http failed", "method", method, "host", host, "path", path, "error", err)
}

func (c *CLI) installHooks() {
	observability.SetHTTPHooks(httpLogHooks{logger: c.Logger})
}
