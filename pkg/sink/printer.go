package sink

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/matzehuels/revdeps/pkg/scan"
)

// Printer writes one "<package> uses <target>" line per match.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Report prints m.
func (p *Printer) Report(_ context.Context, m scan.Match) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.w, "%s uses %s\n", m.PackageID, m.Target)
	return err
}

// Done prints the end-of-run marker.
func (p *Printer) Done() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, "Done")
	return err
}

// Close does nothing; the writer belongs to the caller.
func (p *Printer) Close() error { return nil }
