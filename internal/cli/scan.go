package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/revdeps/pkg/archive"
	"github.com/matzehuels/revdeps/pkg/config"
	"github.com/matzehuels/revdeps/pkg/observability"
	"github.com/matzehuels/revdeps/pkg/scan"
	"github.com/matzehuels/revdeps/pkg/sink"
	"github.com/matzehuels/revdeps/pkg/status"
)

// scanFlags holds command-line overrides for a scan. A flag only overrides
// the configuration when it was set explicitly.
type scanFlags struct {
	configPath    string
	target        string
	packageType   string
	workers       int
	queueCapacity int
	pageSize      int
	maxPages      int
	stopMode      string
	prerelease    bool
	rate          float64
	retries       int
	noCache       bool
	redisURL      string
	jsonlPath     string
	mongoURI      string
	statusAddr    string
	progress      bool
}

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the registry for packages that depend on the target library",
		Long: `Scan pages through the NuGet search service and inspects every package it
returns. Each match is printed as "<id> uses <target>"; "Done" follows once the
scan has finished.

Stop modes:
  first   stop everything after the first match (default)
  worker  each worker stops after its own first match
  none    scan every package and report all matches`,
		Example: `  # Find the first .NET tool that uses System.CommandLine
  revdeps scan

  # Report every tool using Spectre.Console, with a live progress view
  revdeps scan --target Spectre.Console --stop-mode none --progress

  # Persist matches to a file and MongoDB
  revdeps scan --stop-mode none --jsonl matches.jsonl --mongo mongodb://localhost:27017`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScanConfig(cmd, flags)
			if err != nil {
				return err
			}
			return c.runScan(cmd.Context(), cfg, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "config file (.toml, .yaml); defaults to $"+config.EnvConfig)
	f.StringVarP(&flags.target, "target", "t", "", "library key prefix to look for (default System.CommandLine)")
	f.StringVar(&flags.packageType, "package-type", "", "registry package type filter (default DotnetTool)")
	f.IntVarP(&flags.workers, "workers", "w", 0, "number of concurrent workers (default 32)")
	f.IntVar(&flags.queueCapacity, "queue-capacity", 0, "bounded queue capacity (default 1000)")
	f.IntVar(&flags.pageSize, "page-size", 0, "search results per page (default 1000)")
	f.IntVar(&flags.maxPages, "max-pages", 0, "stop ingesting after this many pages (0 = all)")
	f.StringVar(&flags.stopMode, "stop-mode", "", "first, worker or none (default first)")
	f.BoolVar(&flags.prerelease, "prerelease", false, "include pre-release packages")
	f.Float64Var(&flags.rate, "rate", 0, "registry requests per second (0 = unlimited)")
	f.IntVar(&flags.retries, "retries", 0, "attempts per registry request (default 1)")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable the verdict cache")
	f.StringVar(&flags.redisURL, "redis", "", "use a Redis verdict cache at this URL")
	f.StringVar(&flags.jsonlPath, "jsonl", "", "append matches to this JSON Lines file")
	f.StringVar(&flags.mongoURI, "mongo", "", "upsert matches into MongoDB at this URI")
	f.StringVar(&flags.statusAddr, "status-addr", "", "serve /healthz, /stats and /matches on this address")
	f.BoolVarP(&flags.progress, "progress", "p", false, "show a live progress view")

	return cmd
}

// loadScanConfig loads the configuration file and applies explicitly set flags.
func loadScanConfig(cmd *cobra.Command, flags scanFlags) (config.Config, error) {
	cfg, err := config.Load(config.Path(flags.configPath))
	if err != nil {
		return cfg, err
	}
	applyScanFlags(&cfg, flags, cmd.Flags().Changed)
	return cfg, cfg.Validate()
}

func applyScanFlags(cfg *config.Config, flags scanFlags, changed func(string) bool) {
	if changed("target") {
		cfg.Target = flags.target
	}
	if changed("package-type") {
		cfg.Registry.PackageType = flags.packageType
	}
	if changed("workers") {
		cfg.Workers = flags.workers
	}
	if changed("queue-capacity") {
		cfg.QueueCapacity = flags.queueCapacity
	}
	if changed("page-size") {
		cfg.Registry.PageSize = flags.pageSize
	}
	if changed("max-pages") {
		cfg.Registry.MaxPages = flags.maxPages
	}
	if changed("stop-mode") {
		cfg.StopMode = flags.stopMode
	}
	if changed("prerelease") {
		cfg.Registry.Prerelease = flags.prerelease
	}
	if changed("rate") {
		cfg.Registry.RateLimit = flags.rate
	}
	if changed("retries") {
		cfg.Retry.Attempts = flags.retries
	}
	if changed("redis") {
		cfg.Cache.Backend = config.CacheRedis
		cfg.Cache.RedisURL = flags.redisURL
	}
	if changed("no-cache") && flags.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	if changed("jsonl") {
		cfg.Sink.JSONLPath = flags.jsonlPath
	}
	if changed("mongo") {
		cfg.Sink.MongoURI = flags.mongoURI
	}
	if changed("status-addr") {
		cfg.StatusAddr = flags.statusAddr
	}
}

// openSinks opens the configured persistent sinks.
func openSinks(ctx context.Context, cfg config.Config) (sink.Multi, error) {
	var sinks sink.Multi
	if cfg.Sink.JSONLPath != "" {
		j, err := sink.NewJSONL(cfg.Sink.JSONLPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, j)
	}
	if cfg.Sink.MongoURI != "" {
		m, err := sink.NewMongo(ctx, sink.MongoOptions{
			URI:        cfg.Sink.MongoURI,
			Database:   cfg.Sink.MongoDatabase,
			Collection: cfg.Sink.MongoCollection,
		})
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, m)
	}
	return sinks, nil
}

func (c *CLI) runScan(ctx context.Context, cfg config.Config, flags scanFlags) error {
	logger := c.Logger
	ctx = withLogger(ctx, logger)
	c.installHooks()

	mode, err := scan.ParseStopMode(cfg.StopMode)
	if err != nil {
		return err
	}

	verdicts, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer verdicts.Close()

	sinks, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn("close sinks", "error", err)
		}
	}()

	printer := sink.NewPrinter(c.out())
	reporter := sinks
	if !flags.progress {
		reporter = append(sink.Multi{printer}, sinks...)
	}

	reg := newRegistry(cfg)
	scanner := scan.NewScanner(reg.content, scan.ScannerOptions{
		Target:   cfg.Target,
		Suffix:   cfg.ManifestSuffix,
		Cache:    verdicts,
		CacheTTL: cfg.Cache.TTL,
		Archive: archive.Options{
			MemoryLimit: cfg.Archive.SpoolMemoryLimit,
			TempDir:     cfg.Archive.TempDir,
		},
		Logger: logger,
	})
	coord := scan.NewCoordinator(reg.search, scanner, scan.Options{
		Workers:       cfg.Workers,
		QueueCapacity: cfg.QueueCapacity,
		PageSize:      cfg.Registry.PageSize,
		MaxPages:      cfg.Registry.MaxPages,
		StopMode:      mode,
		Reporter:      reporter,
		Logger:        logger,
	})

	if cfg.StatusAddr != "" {
		srv, err := status.Start(cfg.StatusAddr, coord, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var res *scan.Result
	if flags.progress {
		res, err = c.scanWithProgress(ctx, coord, cfg.Target)
		if res != nil {
			for _, m := range res.Matches {
				_ = printer.Report(ctx, m)
			}
		}
	} else {
		res, err = coord.Run(ctx)
	}
	if res != nil {
		fmt.Fprintln(os.Stderr, renderStats(res.Stats))
	}
	if err != nil {
		return err
	}
	return printer.Done()
}

// scanWithProgress runs coord under a bubbletea progress view on stderr.
func (c *CLI) scanWithProgress(ctx context.Context, coord *scan.Coordinator, target string) (*scan.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewProgressModel(target, coord.Stats, cancel)
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	restore := observability.SetScanHooks(progressHooks{send: p.Send})
	defer restore()

	// log lines would tear the view
	level := c.Logger.GetLevel()
	c.Logger.SetLevel(log.FatalLevel)
	defer c.Logger.SetLevel(level)

	type outcome struct {
		res *scan.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := coord.Run(runCtx)
		done <- outcome{res, err}
		p.Send(scanDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		out := <-done
		return out.res, err
	}
	out := <-done
	return out.res, out.err
}
