package sink

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/scan"
)

// JSONL appends one JSON object per match to a file.
type JSONL struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewJSONL opens path for appending, creating it if needed.
func NewJSONL(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "open match file")
	}
	return &JSONL{f: f, enc: json.NewEncoder(f)}, nil
}

// Report appends m as one line.
func (j *JSONL) Report(_ context.Context, m scan.Match) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(m)
}

// Close flushes and closes the file.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.f.Sync(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}
