package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a one-line status on a terminal until stopped or until its
// context ends. Stop may be called from any goroutine.
type Spinner struct {
	out     io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	mu      sync.Mutex
	message string
	width   int
	once    sync.Once
}

// newSpinner creates a spinner writing to out. It stops by itself when ctx is
// cancelled.
func newSpinner(ctx context.Context, out io.Writer, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     out,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		message: message,
	}
}

// Start begins the animation in a background goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clear()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// Stop ends the animation and clears the line. Stopping twice is a no-op;
// stopping a spinner that was never started returns immediately.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
	})
	select {
	case <-s.stopped:
	case <-time.After(2 * spinnerInterval):
	}
}

// Cancelled reports whether the spinner's context has ended.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + styleDim.Render(s.message)
	s.width = max(s.width, len(s.message)+2)
	fmt.Fprintf(s.out, "\r%s", line)
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width))
	}
}
