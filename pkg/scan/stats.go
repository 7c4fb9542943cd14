package scan

import (
	"sync/atomic"
	"time"
)

// Stats holds live run counters. It is safe for concurrent use.
type Stats struct {
	start    atomic.Int64 // unix nanos
	pages    atomic.Int64
	enqueued atomic.Int64
	dequeued atomic.Int64
	scanned  atomic.Int64
	matched  atomic.Int64
	cached   atomic.Int64
	failed   atomic.Int64
	active   atomic.Int64
	end      atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats. The queue fields are
// filled in by the Coordinator.
type StatsSnapshot struct {
	Pages         int64         `json:"pages"`
	Enqueued      int64         `json:"enqueued"`
	Dequeued      int64         `json:"dequeued"`
	Scanned       int64         `json:"scanned"`
	Matched       int64         `json:"matched"`
	Cached        int64         `json:"cached"`
	Failed        int64         `json:"failed"`
	QueueLen      int           `json:"queue_len"`
	QueueHighMark int64         `json:"queue_high_water"`
	ActiveWorkers int64         `json:"active_workers"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Pages:         s.pages.Load(),
		Enqueued:      s.enqueued.Load(),
		Dequeued:      s.dequeued.Load(),
		Scanned:       s.scanned.Load(),
		Matched:       s.matched.Load(),
		Cached:        s.cached.Load(),
		Failed:        s.failed.Load(),
		ActiveWorkers: s.active.Load(),
	}
	if start := s.start.Load(); start > 0 {
		end := s.end.Load()
		if end == 0 {
			end = time.Now().UnixNano()
		}
		snap.Elapsed = time.Duration(end - start)
	}
	return snap
}

func (s *Stats) reset() {
	for _, c := range []*atomic.Int64{
		&s.pages, &s.enqueued, &s.dequeued, &s.scanned, &s.matched,
		&s.cached, &s.failed, &s.active, &s.end,
	} {
		c.Store(0)
	}
	s.start.Store(time.Now().UnixNano())
}

func (s *Stats) finish() { s.end.Store(time.Now().UnixNano()) }

func (s *Stats) workerStarted() { s.active.Add(1) }
func (s *Stats) workerStopped() { s.active.Add(-1) }
