// Package observability lets an embedder watch a scan without the libraries
// depending on a metrics or tracing backend.
//
// Libraries emit events through [Scan], [Cache] and [HTTP]. Until something
// is registered those return no-op implementations. The CLI registers an
// HTTP debug logger and, for "scan --progress", a scan hook that feeds the
// progress view:
//
//	restore := observability.SetScanHooks(progress)
//	defer restore()
//
// Hooks are called from every worker goroutine and must be safe for
// concurrent use.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// ScanHooks receives pipeline events: one OnPageFetched per search request,
// one OnPackageScanned per queue item and one OnMatch per reported package.
type ScanHooks interface {
	OnPageFetched(ctx context.Context, skip, count int, took time.Duration, err error)
	OnPackageScanned(ctx context.Context, id, version string, matched bool, took time.Duration, err error)
	OnMatch(ctx context.Context, id, version string, libraries []string)
}

// CacheHooks receives verdict cache lookups and writes. kind names the
// backend ("file" or "redis").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, kind string)
	OnCacheMiss(ctx context.Context, kind string)
	OnCacheSet(ctx context.Context, kind string, size int)
}

// HTTPHooks receives registry requests. OnError covers transport failures;
// error statuses arrive through OnResponse.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, status int, took time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopScanHooks ignores every event. Embed it to implement a subset.
type NoopScanHooks struct{}

func (NoopScanHooks) OnPageFetched(context.Context, int, int, time.Duration, error) {}
func (NoopScanHooks) OnPackageScanned(context.Context, string, string, bool, time.Duration, error) {
}
func (NoopScanHooks) OnMatch(context.Context, string, string, []string) {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Registry
// =============================================================================

// slot holds the registered implementation of one hook kind.
type slot[T any] struct {
	p atomic.Pointer[T]
}

func (s *slot[T]) get(def T) T {
	if p := s.p.Load(); p != nil && any(*p) != nil {
		return *p
	}
	return def
}

func (s *slot[T]) set(v T) (restore func()) {
	old := s.p.Swap(&v)
	return func() { s.p.Store(old) }
}

var (
	scanHooks  slot[ScanHooks]
	cacheHooks slot[CacheHooks]
	httpHooks  slot[HTTPHooks]
)

// SetScanHooks registers h and returns a func that puts the previous hooks
// back. A nil h selects the no-op hooks.
func SetScanHooks(h ScanHooks) (restore func()) { return scanHooks.set(h) }

// SetCacheHooks registers h; see [SetScanHooks].
func SetCacheHooks(h CacheHooks) (restore func()) { return cacheHooks.set(h) }

// SetHTTPHooks registers h; see [SetScanHooks].
func SetHTTPHooks(h HTTPHooks) (restore func()) { return httpHooks.set(h) }

// Scan returns the registered scan hooks.
func Scan() ScanHooks { return scanHooks.get(NoopScanHooks{}) }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheHooks.get(NoopCacheHooks{}) }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpHooks.get(NoopHTTPHooks{}) }

// Reset restores all hooks to their no-op defaults.
func Reset() {
	scanHooks.p.Store(nil)
	cacheHooks.p.Store(nil)
	httpHooks.p.Store(nil)
}
