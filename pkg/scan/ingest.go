package scan

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
	"github.com/matzehuels/revdeps/pkg/observability"
)

// DefaultPageSize is the number of results requested per search page.
const DefaultPageSize = 1000

// Searcher fetches one page of search results.
type Searcher interface {
	Search(ctx context.Context, skip, take int) (*nuget.SearchPage, error)
}

// Ingestor paginates a Searcher into a queue.
type Ingestor struct {
	searcher Searcher
	pageSize int
	maxPages int
	logger   *log.Logger
	stats    *Stats
}

// IngestOptions configures an Ingestor.
type IngestOptions struct {
	PageSize int         // results per page; zero uses DefaultPageSize
	MaxPages int         // stop after this many non-empty pages; zero is unbounded
	Logger   *log.Logger // nil uses log.Default()
	Stats    *Stats      // nil allocates private counters
}

// NewIngestor creates an Ingestor over searcher.
func NewIngestor(searcher Searcher, opts IngestOptions) *Ingestor {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Stats == nil {
		opts.Stats = &Stats{}
	}
	return &Ingestor{
		searcher: searcher,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		logger:   opts.Logger,
		stats:    opts.Stats,
	}
}

// Produce requests pages (skip = 0, take, 2*take, ...) until one comes back
// empty and puts every result on q in page order. q is closed on every return
// path, so consumers always observe the end of the stream. A fetch or decode
// error aborts ingestion and is returned unchanged.
func (in *Ingestor) Produce(ctx context.Context, q QueueWriter[nuget.SearchResult]) error {
	defer q.Close()

	for skip, pages := 0, 0; ; skip += in.pageSize {
		if in.maxPages > 0 && pages >= in.maxPages {
			in.logger.Debug("page limit reached", "pages", pages)
			return nil
		}

		start := time.Now()
		page, err := in.searcher.Search(ctx, skip, in.pageSize)
		count := 0
		if page != nil {
			count = len(page.Data)
		}
		observability.Scan().OnPageFetched(ctx, skip, count, time.Since(start), err)
		if err != nil {
			return err
		}
		in.stats.pages.Add(1)

		if count == 0 {
			in.logger.Debug("search exhausted", "skip", skip)
			return nil
		}
		pages++
		in.logger.Debug("page fetched", "skip", skip, "count", count, "total", page.TotalHits)

		for _, item := range page.Data {
			if err := q.Put(ctx, item); err != nil {
				return err
			}
			in.stats.enqueued.Add(1)
		}
	}
}
