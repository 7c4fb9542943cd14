package scan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
)

// quietLogger discards log output.
func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// nupkg builds an in-memory package archive with the given entries.
func nupkg(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create(%s): %v", name, err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			t.Fatalf("zip Write(%s): %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	return buf.Bytes()
}

func depsJSON(libraries ...string) string {
	var b bytes.Buffer
	b.WriteString(`{"runtimeTarget":{"name":".NETCoreApp,Version=v8.0"},"libraries":{`)
	for i, lib := range libraries {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:{\"type\":\"package\"}", lib)
	}
	b.WriteString("}}")
	return b.String()
}

// toolPackage is an archive whose manifest lists libs.
func toolPackage(t *testing.T, libs ...string) []byte {
	return nupkg(t, map[string]string{
		"tool.nuspec":                     "<package/>",
		"tools/net8.0/any/Tool.deps.json": depsJSON(append([]string{"Tool/1.0.0"}, libs...)...),
		"tools/net8.0/any/Tool.dll":       "MZ",
	})
}

// streamOnly hides Seek and ReadAt, like an HTTP response body.
type streamOnly struct{ io.Reader }

// fakeSource serves archives from memory and counts downloads per id.
type fakeSource struct {
	mu       sync.Mutex
	archives map[string][]byte
	fallback []byte
	opened   map[string]int
	block    chan struct{} // if set, OpenPackage waits on it or ctx
}

func newFakeSource(fallback []byte) *fakeSource {
	return &fakeSource{archives: map[string][]byte{}, fallback: fallback, opened: map[string]int{}}
}

func (s *fakeSource) OpenPackage(ctx context.Context, id string, _ nuget.Version) (io.ReadCloser, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened[id]++
	data, ok := s.archives[id]
	if !ok {
		data = s.fallback
	}
	if data == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "package %s not found", id)
	}
	return io.NopCloser(streamOnly{bytes.NewReader(data)}), nil
}

func (s *fakeSource) openCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened[id]
}

func (s *fakeSource) totalOpened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.opened {
		n += c
	}
	return n
}

// fakeSearcher serves fixed pages, then empty pages. If endless is set it
// never runs dry: every page is full of fresh ids.
type fakeSearcher struct {
	mu      sync.Mutex
	pages   [][]nuget.SearchResult
	endless bool
	err     error
	errAt   int // page index that fails, when err is set
	calls   []int
}

func (f *fakeSearcher) Search(_ context.Context, skip, take int) (*nuget.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.calls)
	f.calls = append(f.calls, skip)
	if f.err != nil && n == f.errAt {
		return nil, f.err
	}
	if f.endless {
		data := make([]nuget.SearchResult, take)
		for i := range data {
			data[i] = nuget.SearchResult{ID: fmt.Sprintf("pkg-%d", skip+i), Version: "1.0.0"}
		}
		return &nuget.SearchPage{TotalHits: 1 << 30, Data: data}, nil
	}
	if n < len(f.pages) {
		return &nuget.SearchPage{TotalHits: 0, Data: f.pages[n]}, nil
	}
	return &nuget.SearchPage{}, nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// pagesOf splits n generated ids into pages of size.
func pagesOf(n, size int) [][]nuget.SearchResult {
	var pages [][]nuget.SearchResult
	for i := 0; i < n; i += size {
		var page []nuget.SearchResult
		for j := i; j < min(i+size, n); j++ {
			page = append(page, nuget.SearchResult{ID: fmt.Sprintf("pkg-%d", j), Version: "1.0.0"})
		}
		pages = append(pages, page)
	}
	return pages
}
