package scan

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
)

func drain(t *testing.T, q *Queue[nuget.SearchResult]) []string {
	t.Helper()
	var ids []string
	for {
		item, err := q.Take(context.Background())
		if errors.Is(err, ErrQueueClosed) {
			return ids
		}
		if err != nil {
			t.Fatalf("Take() error: %v", err)
		}
		ids = append(ids, item.ID)
	}
}

func TestIngestor_Exhaustion(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		pageSize  int
		wantCalls int
	}{
		{"three full pages", 30, 10, 4},
		{"partial last page", 25, 10, 4},
		{"single page", 5, 10, 2},
		{"empty registry", 0, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{pages: pagesOf(tt.items, tt.pageSize)}
			q := NewQueue[nuget.SearchResult](tt.items + 1)
			in := NewIngestor(s, IngestOptions{PageSize: tt.pageSize, Logger: quietLogger()})

			if err := in.Produce(context.Background(), q); err != nil {
				t.Fatalf("Produce() error: %v", err)
			}
			if got := s.callCount(); got != tt.wantCalls {
				t.Errorf("search calls = %d, want %d", got, tt.wantCalls)
			}
			if !q.Closed() {
				t.Error("queue not closed after exhaustion")
			}
			if got := len(drain(t, q)); got != tt.items {
				t.Errorf("enqueued %d items, want %d", got, tt.items)
			}
		})
	}
}

func TestIngestor_PageOrderAndSkip(t *testing.T) {
	s := &fakeSearcher{pages: pagesOf(7, 3)}
	q := NewQueue[nuget.SearchResult](10)
	in := NewIngestor(s, IngestOptions{PageSize: 3, Logger: quietLogger()})

	if err := in.Produce(context.Background(), q); err != nil {
		t.Fatalf("Produce() error: %v", err)
	}
	if want := []int{0, 3, 6, 9}; !slices.Equal(s.calls, want) {
		t.Errorf("skips = %v, want %v", s.calls, want)
	}
	want := []string{"pkg-0", "pkg-1", "pkg-2", "pkg-3", "pkg-4", "pkg-5", "pkg-6"}
	if got := drain(t, q); !slices.Equal(got, want) {
		t.Errorf("queue order = %v, want %v", got, want)
	}
}

func TestIngestor_MaxPages(t *testing.T) {
	s := &fakeSearcher{endless: true}
	q := NewQueue[nuget.SearchResult](100)
	in := NewIngestor(s, IngestOptions{PageSize: 10, MaxPages: 2, Logger: quietLogger()})

	if err := in.Produce(context.Background(), q); err != nil {
		t.Fatalf("Produce() error: %v", err)
	}
	if got := s.callCount(); got != 2 {
		t.Errorf("search calls = %d, want 2", got)
	}
	if got := len(drain(t, q)); got != 20 {
		t.Errorf("enqueued %d items, want 20", got)
	}
}

func TestIngestor_FetchErrorClosesQueue(t *testing.T) {
	boom := apperrors.New(apperrors.ErrCodeNetwork, "search returned 500")
	s := &fakeSearcher{pages: pagesOf(30, 10), err: boom, errAt: 1}
	q := NewQueue[nuget.SearchResult](100)
	in := NewIngestor(s, IngestOptions{PageSize: 10, Logger: quietLogger()})

	err := in.Produce(context.Background(), q)
	if !apperrors.Is(err, apperrors.ErrCodeNetwork) {
		t.Fatalf("Produce() = %v, want NETWORK_ERROR", err)
	}
	if got := s.callCount(); got != 2 {
		t.Errorf("search calls = %d, want 2 (no retry)", got)
	}
	if !q.Closed() {
		t.Error("queue not closed after fetch error")
	}
	if got := len(drain(t, q)); got != 10 {
		t.Errorf("first page items = %d, want 10", got)
	}
}

func TestIngestor_CancelWhileBlocked(t *testing.T) {
	s := &fakeSearcher{endless: true}
	q := NewQueue[nuget.SearchResult](5)
	in := NewIngestor(s, IngestOptions{PageSize: 10, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Produce(ctx, q) }()

	for q.Len() < q.Cap() {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Produce() = %v, want Canceled", err)
	}
	if !q.Closed() {
		t.Error("queue not closed after cancellation")
	}
	if s.callCount() != 1 {
		t.Errorf("search calls = %d, want 1 while blocked", s.callCount())
	}
}
