package scan

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Match reports that a package version references the target library.
type Match struct {
	RunID     string    `json:"run_id" bson:"run_id"`
	PackageID string    `json:"package_id" bson:"package_id"`
	Version   string    `json:"version" bson:"version"`
	Target    string    `json:"target" bson:"target"`
	Libraries []string  `json:"libraries" bson:"libraries"`
	Manifest  string    `json:"manifest,omitempty" bson:"manifest,omitempty"`
	Cached    bool      `json:"cached,omitempty" bson:"cached,omitempty"`
	FoundAt   time.Time `json:"found_at" bson:"found_at"`
}

// Reporter receives matches as they are found. Report is called from worker
// goroutines concurrently; implementations serialise their own writes.
type Reporter interface {
	Report(ctx context.Context, m Match) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, m Match) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, m Match) error { return f(ctx, m) }

// Result is what a run returns: every match in report order plus final
// counters.
type Result struct {
	RunID   string        `json:"run_id"`
	Matches []Match       `json:"matches"`
	Stats   StatsSnapshot `json:"stats"`
}

// collector aggregates matches for the run result and the status endpoint.
type collector struct {
	mu      sync.Mutex
	matches []Match
}

func (c *collector) Report(_ context.Context, m Match) error {
	c.mu.Lock()
	c.matches = append(c.matches, m)
	c.mu.Unlock()
	return nil
}

func (c *collector) reset() {
	c.mu.Lock()
	c.matches = nil
	c.mu.Unlock()
}

func (c *collector) snapshot() []Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.matches)
}
