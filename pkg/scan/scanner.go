package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/revdeps/pkg/archive"
	"github.com/matzehuels/revdeps/pkg/cache"
	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
	"github.com/matzehuels/revdeps/pkg/manifest"
	"github.com/matzehuels/revdeps/pkg/observability"
)

// DefaultTarget is the library prefix searched for.
const DefaultTarget = "System.CommandLine"

// reportTimeout bounds one Reporter call. Reports outlive run cancellation.
const reportTimeout = 10 * time.Second

// PackageSource opens a forward-only stream of a package archive.
type PackageSource interface {
	OpenPackage(ctx context.Context, id string, version nuget.Version) (io.ReadCloser, error)
}

// ScannerOptions configures a Scanner.
type ScannerOptions struct {
	Target   string          // library key prefix; empty uses DefaultTarget
	Suffix   string          // manifest entry suffix; empty uses manifest.Suffix
	Cache    cache.Cache     // verdict cache; nil disables caching
	CacheTTL time.Duration   // verdict lifetime; zero keeps verdicts forever
	Archive  archive.Options // spooling of non-seekable package streams
	Logger   *log.Logger     // nil uses log.Default()
}

// Scanner inspects packages for a dependency on the target library.
type Scanner struct {
	source   PackageSource
	target   string
	suffix   string
	cache    cache.Cache
	cacheTTL time.Duration
	archive  archive.Options
	logger   *log.Logger
}

// NewScanner creates a Scanner reading archives from source.
func NewScanner(source PackageSource, opts ScannerOptions) *Scanner {
	if opts.Target == "" {
		opts.Target = DefaultTarget
	}
	if opts.Suffix == "" {
		opts.Suffix = manifest.Suffix
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Scanner{
		source:   source,
		target:   opts.Target,
		suffix:   opts.Suffix,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		archive:  opts.Archive,
		logger:   opts.Logger,
	}
}

// Target returns the library prefix the scanner looks for.
func (s *Scanner) Target() string { return s.target }

// worker is one consumer loop bound to a run.
type worker struct {
	*Scanner
	runID    string
	mode     StopMode
	reporter Reporter
	stats    *Stats
	stop     func()
}

// Consume drains q with a standalone worker that reports to r and stops per
// StopWorker: it returns after the first match. It returns nil once the
// queue is closed and drained.
func (s *Scanner) Consume(ctx context.Context, q QueueReader[nuget.SearchResult], r Reporter) error {
	w := &worker{Scanner: s, mode: StopWorker, reporter: r, stats: &Stats{}, stop: func() {}}
	return w.consume(ctx, q)
}

func (w *worker) consume(ctx context.Context, q QueueReader[nuget.SearchResult]) error {
	for {
		item, err := q.Take(ctx)
		if errors.Is(err, ErrQueueClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		w.stats.dequeued.Add(1)

		m, matched, err := w.Inspect(ctx, item)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			w.stats.failed.Add(1)
			return err
		}
		w.stats.scanned.Add(1)
		if m.Cached {
			w.stats.cached.Add(1)
		}
		if !matched {
			continue
		}

		w.stats.matched.Add(1)
		m.RunID = w.runID
		if err := w.report(ctx, m); err != nil {
			return fmt.Errorf("report %s: %w", m.PackageID, err)
		}

		switch w.mode {
		case StopWorker:
			w.logger.Debug("worker stopping after match", "package", m.PackageID)
			return nil
		case StopFirst:
			w.stop()
			return nil
		}
	}
}

// report delivers a match that was already found even if the run has been
// stopped meanwhile by another worker.
func (w *worker) report(ctx context.Context, m Match) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	return w.reporter.Report(ctx, m)
}

// Inspect decides whether one search result references the target library.
// The version is parsed first (INVALID_VERSION on failure); a cached verdict
// skips the download. Manifest entries are visited in archive order and the
// first one with a matching library key wins.
func (s *Scanner) Inspect(ctx context.Context, item nuget.SearchResult) (Match, bool, error) {
	start := time.Now()
	m, matched, err := s.inspect(ctx, item)
	observability.Scan().OnPackageScanned(ctx, item.ID, item.Version, matched, time.Since(start), err)
	if matched {
		observability.Scan().OnMatch(ctx, m.PackageID, m.Version, m.Libraries)
	}
	return m, matched, err
}

// verdict is the cached outcome of inspecting one package version.
type verdict struct {
	Matched   bool     `json:"matched"`
	Libraries []string `json:"libraries,omitempty"`
	Manifest  string   `json:"manifest,omitempty"`
}

func (s *Scanner) inspect(ctx context.Context, item nuget.SearchResult) (Match, bool, error) {
	version, err := nuget.ParseVersion(item.Version)
	if err != nil {
		return Match{}, false, fmt.Errorf("%s: %w", item.ID, err)
	}

	m := Match{
		PackageID: item.ID,
		Version:   version.String(),
		Target:    s.target,
	}

	key := cache.VerdictKey(item.ID, m.Version, s.target, s.suffix)
	if v, ok := s.lookup(ctx, key); ok {
		if !v.Matched {
			return Match{Cached: true}, false, nil
		}
		m.Libraries, m.Manifest, m.Cached = v.Libraries, v.Manifest, true
		m.FoundAt = time.Now()
		return m, true, nil
	}

	libs, entry, err := s.scanPackage(ctx, item.ID, version)
	if err != nil {
		return Match{}, false, fmt.Errorf("%s %s: %w", item.ID, m.Version, err)
	}
	s.store(ctx, key, verdict{Matched: len(libs) > 0, Libraries: libs, Manifest: entry})

	if len(libs) == 0 {
		s.logger.Debug("no match", "package", item.ID, "version", m.Version)
		return Match{}, false, nil
	}
	m.Libraries, m.Manifest = libs, entry
	m.FoundAt = time.Now()
	return m, true, nil
}

// scanPackage downloads one archive and returns the matching library keys of
// the first manifest that has any. The HTTP body and any spool file are
// released before it returns.
func (s *Scanner) scanPackage(ctx context.Context, id string, version nuget.Version) ([]string, string, error) {
	body, err := s.source.OpenPackage(ctx, id, version)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	a, err := archive.Open(body, s.archive)
	if err != nil {
		return nil, "", err
	}
	defer a.Close()

	for name := range a.Entries(s.suffix) {
		libs, err := s.scanEntry(a, name)
		if err != nil {
			return nil, "", err
		}
		if len(libs) > 0 {
			return libs, name, nil
		}
	}
	return nil, "", nil
}

func (s *Scanner) scanEntry(a *archive.Archive, name string) ([]string, error) {
	rc, err := a.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	deps, err := manifest.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return deps.Match(s.target), nil
}

func (s *Scanner) lookup(ctx context.Context, key string) (verdict, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("verdict cache read failed", "error", err)
		return verdict{}, false
	}
	if !ok {
		return verdict{}, false
	}
	var v verdict
	if err := json.Unmarshal(data, &v); err != nil {
		_ = s.cache.Delete(ctx, key)
		return verdict{}, false
	}
	return v, true
}

func (s *Scanner) store(ctx context.Context, key string, v verdict) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("verdict cache write failed", "error", err)
	}
}
