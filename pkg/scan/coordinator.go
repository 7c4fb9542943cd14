package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
)

// DefaultWorkers is the size of the inspection pool.
const DefaultWorkers = 32

// StopMode selects what happens when a worker finds a match.
type StopMode string

const (
	// StopFirst cancels the whole run on the first match.
	StopFirst StopMode = "first"
	// StopWorker ends only the matching worker; ingestion and the other
	// workers carry on.
	StopWorker StopMode = "worker"
	// StopNone never stops on a match and reports every matching package.
	StopNone StopMode = "none"
)

// ParseStopMode parses a stop mode name. Empty selects StopFirst.
func ParseStopMode(s string) (StopMode, error) {
	switch m := StopMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return StopFirst, nil
	case StopFirst, StopWorker, StopNone:
		return m, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidConfig,
			"unknown stop mode %q (want first, worker or none)", s)
	}
}

var (
	// errMatchFound is the cancellation cause under StopFirst.
	errMatchFound = errors.New("match found")
	// errNoWorkers cancels ingestion once every worker has returned.
	errNoWorkers = errors.New("no workers left")
)

// Options configures a Coordinator.
type Options struct {
	Workers       int         // zero uses DefaultWorkers
	QueueCapacity int         // zero uses DefaultQueueCapacity
	PageSize      int         // zero uses DefaultPageSize
	MaxPages      int         // zero is unbounded
	StopMode      StopMode    // empty uses StopFirst
	Reporter      Reporter    // receives matches as found; may be nil
	Logger        *log.Logger // nil uses log.Default()
}

// Coordinator runs one ingestor and a pool of scanners over a bounded queue.
type Coordinator struct {
	searcher Searcher
	scanner  *Scanner
	opts     Options

	stats     *Stats
	collector *collector
	queue     atomic.Pointer[Queue[nuget.SearchResult]]
	runID     atomic.Value // string
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(searcher Searcher, scanner *Scanner, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.StopMode == "" {
		opts.StopMode = StopFirst
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	c := &Coordinator{
		searcher:  searcher,
		scanner:   scanner,
		opts:      opts,
		stats:     &Stats{},
		collector: &collector{},
	}
	c.runID.Store("")
	return c
}

// RunID returns the id of the current or last run.
func (c *Coordinator) RunID() string { return c.runID.Load().(string) }

// Stats returns live counters for the current or last run.
func (c *Coordinator) Stats() StatsSnapshot {
	snap := c.stats.Snapshot()
	if q := c.queue.Load(); q != nil {
		snap.QueueLen = q.Len()
		snap.QueueHighMark = q.HighWater()
	}
	return snap
}

// Matches returns the matches reported so far in the current or last run.
func (c *Coordinator) Matches() []Match { return c.collector.snapshot() }

// Run starts the ingestor and Workers scanners, waits for all of them and
// returns every match. The returned error is the first task failure; one
// task failing never cancels the others. Stopping on a match (StopFirst) is
// not an error. If ctx is cancelled the context error is returned together
// with the partial result.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	c.runID.Store(runID)
	c.stats.reset()
	c.collector.reset()
	defer c.stats.finish()

	logger := c.opts.Logger.With("run", runID[:8])
	q := NewQueue[nuget.SearchResult](c.opts.QueueCapacity)
	c.queue.Store(q)

	runCtx, stopRun := context.WithCancelCause(ctx)
	defer stopRun(nil)
	ingestCtx, stopIngest := context.WithCancelCause(runCtx)
	defer stopIngest(nil)

	reporter := c.reporter()
	ingestor := NewIngestor(c.searcher, IngestOptions{
		PageSize: c.opts.PageSize,
		MaxPages: c.opts.MaxPages,
		Logger:   logger,
		Stats:    c.stats,
	})

	logger.Info("scan started", "workers", c.opts.Workers, "queue", c.opts.QueueCapacity,
		"target", c.scanner.Target(), "stop", c.opts.StopMode)

	var g errgroup.Group
	g.Go(func() error {
		return quiet(ingestCtx, ingestor.Produce(ingestCtx, q))
	})

	var live atomic.Int64
	live.Store(int64(c.opts.Workers))
	var once sync.Once
	for range c.opts.Workers {
		w := &worker{
			Scanner:  c.scanner,
			runID:    runID,
			mode:     c.opts.StopMode,
			reporter: reporter,
			stats:    c.stats,
			stop: func() {
				once.Do(func() { logger.Info("match found, stopping run") })
				stopRun(errMatchFound)
			},
		}
		g.Go(func() error {
			c.stats.workerStarted()
			defer c.stats.workerStopped()
			defer func() {
				if live.Add(-1) == 0 {
					stopIngest(errNoWorkers)
				}
			}()
			err := w.consume(runCtx, q)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker failed", "error", err)
			}
			return quiet(runCtx, err)
		})
	}

	err := g.Wait()
	res := &Result{RunID: runID, Matches: c.collector.snapshot(), Stats: c.Stats()}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return res, err
	}

	logger.Info("scan finished", "scanned", res.Stats.Scanned, "matched", res.Stats.Matched,
		"elapsed", res.Stats.Elapsed.Round(time.Millisecond))
	return res, nil
}

// quiet drops the cancellation error of a task whose context was ended by
// the run itself rather than by the caller.
func quiet(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil || !errors.Is(err, context.Canceled) {
		return err
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, errMatchFound) || errors.Is(cause, errNoWorkers) {
		return nil
	}
	return err
}

func (c *Coordinator) reporter() Reporter {
	if c.opts.Reporter == nil {
		return c.collector
	}
	return ReporterFunc(func(ctx context.Context, m Match) error {
		_ = c.collector.Report(ctx, m)
		if err := c.opts.Reporter.Report(ctx, m); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
		return nil
	})
}
