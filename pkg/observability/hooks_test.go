package observability

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingScanHooks struct {
	NoopScanHooks
	mu      sync.Mutex
	matches []string
}

func (r *recordingScanHooks) OnMatch(_ context.Context, id, version string, _ []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, id+"@"+version)
}

type countingCacheHooks struct{ NoopCacheHooks }
type countingHTTPHooks struct{ NoopHTTPHooks }

func TestDefaultsAreNoop(t *testing.T) {
	Reset()
	ctx := context.Background()

	if _, ok := Scan().(NoopScanHooks); !ok {
		t.Errorf("Scan() = %T, want NoopScanHooks", Scan())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T, want NoopCacheHooks", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T, want NoopHTTPHooks", HTTP())
	}

	Scan().OnPageFetched(ctx, 0, 1000, time.Second, nil)
	Scan().OnPackageScanned(ctx, "dotnet-outdated", "4.6.0", true, time.Second, nil)
	Scan().OnMatch(ctx, "dotnet-outdated", "4.6.0", []string{"System.CommandLine/2.0.0"})
	Cache().OnCacheSet(ctx, "verdict", 64)
	HTTP().OnResponse(ctx, "GET", "api.nuget.org", "/v3/index.json", 200, time.Second)
}

func TestSetAndRestore(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first := &recordingScanHooks{}
	restoreFirst := SetScanHooks(first)

	second := &recordingScanHooks{}
	restoreSecond := SetScanHooks(second)
	if Scan() != second {
		t.Fatal("SetScanHooks should replace the current hooks")
	}

	restoreSecond()
	if Scan() != first {
		t.Error("restore should bring back the previous hooks")
	}
	restoreFirst()
	if _, ok := Scan().(NoopScanHooks); !ok {
		t.Error("restoring the first registration should fall back to no-op")
	}
}

func TestSetNilSelectsNoop(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	SetCacheHooks(&countingCacheHooks{})
	restore := SetCacheHooks(nil)
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T after SetCacheHooks(nil), want NoopCacheHooks", Cache())
	}
	restore()
	if _, ok := Cache().(*countingCacheHooks); !ok {
		t.Error("restore should bring back the hooks replaced by nil")
	}
}

func TestResetClearsAll(t *testing.T) {
	SetScanHooks(&recordingScanHooks{})
	SetCacheHooks(&countingCacheHooks{})
	SetHTTPHooks(&countingHTTPHooks{})

	Reset()

	if _, ok := Scan().(NoopScanHooks); !ok {
		t.Error("Reset() should restore NoopScanHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset() should restore NoopCacheHooks")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("Reset() should restore NoopHTTPHooks")
	}
}

func TestConcurrentEvents(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	rec := &recordingScanHooks{}
	SetScanHooks(rec)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Scan().OnMatch(context.Background(), "pkg", string(rune('a'+i%26)), nil)
		}()
	}
	wg.Wait()

	if len(rec.matches) != 32 {
		t.Errorf("recorded %d matches, want 32", len(rec.matches))
	}
}
