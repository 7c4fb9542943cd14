// Package sink delivers scan matches to their destinations: the terminal,
// a JSON-lines file or a MongoDB collection. Every sink is a
// [scan.Reporter] and is safe for concurrent use by the scan workers.
package sink

import (
	"context"
	"errors"

	"github.com/matzehuels/revdeps/pkg/scan"
)

// Sink is a Reporter that holds resources.
type Sink interface {
	scan.Reporter
	Close() error
}

// Multi fans every match out to all sinks in order. The first failing sink
// stops delivery of that match to the remaining ones.
type Multi []Sink

// Report sends m to every sink.
func (ms Multi) Report(ctx context.Context, m scan.Match) error {
	for _, s := range ms {
		if err := s.Report(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (ms Multi) Close() error {
	var errs []error
	for _, s := range ms {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
