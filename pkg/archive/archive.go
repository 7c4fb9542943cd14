// Package archive inspects zip-family package archives (such as .nupkg)
// delivered as forward-only streams.
//
// The zip central directory sits at the end of the file, so a stream that
// cannot seek has to be read to the end before any entry can be listed.
// [Open] spools such streams in memory up to [Options.MemoryLimit] bytes and
// to a temporary file beyond that. Readers that already support random
// access are used in place.
//
//	a, err := archive.Open(body, archive.Options{})
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	for name := range a.Entries(".deps.json") {
//	    rc, err := a.OpenEntry(name)
//	    ...
//	}
package archive

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
)

// DefaultMemoryLimit is the largest stream spooled in memory.
const DefaultMemoryLimit = 8 << 20

// ErrEntryNotFound is returned by [Archive.OpenEntry] for names that are not
// in the archive directory.
var ErrEntryNotFound = errors.New("archive entry not found")

// Options controls how non-seekable streams are spooled.
type Options struct {
	// MemoryLimit is the number of bytes kept in memory before spilling to a
	// temporary file. Zero uses DefaultMemoryLimit; negative always spills.
	MemoryLimit int64

	// TempDir holds spill files. Empty uses os.TempDir.
	TempDir string
}

// Archive is an opened zip archive. It is not safe for concurrent use.
type Archive struct {
	zr    *zip.Reader
	files map[string]*zip.File
	spill *os.File
	size  int64
}

type sizedReaderAt interface {
	io.ReaderAt
	Size() int64
}

// Open reads the archive directory from r. Open does not close r; the
// caller still owns it, but once Open returns r is no longer needed.
func Open(r io.Reader, opts Options) (*Archive, error) {
	ra, size, spill, err := spool(r, opts)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(ra, size)
	if err != nil {
		removeSpill(spill)
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidArchive, err, "read archive directory")
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if _, dup := files[f.Name]; !dup {
			files[f.Name] = f
		}
	}
	return &Archive{zr: zr, files: files, spill: spill, size: size}, nil
}

// Size returns the archive size in bytes.
func (a *Archive) Size() int64 { return a.size }

// Spilled reports whether the archive was spooled to a temporary file.
func (a *Archive) Spilled() bool { return a.spill != nil }

// Entries returns a lazy sequence of file entry names ending with suffix,
// compared case-insensitively, in directory order. An empty suffix yields
// every file entry.
func (a *Archive) Entries(suffix string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range a.zr.File {
			if f.FileInfo().IsDir() || !hasSuffixFold(f.Name, suffix) {
				continue
			}
			if !yield(f.Name) {
				return
			}
		}
	}
}

// OpenEntry opens the named entry for reading. It fails with
// ENTRY_NOT_FOUND (and [ErrEntryNotFound]) if the name is not in the
// directory. The caller must close the returned reader.
func (a *Archive) OpenEntry(name string) (io.ReadCloser, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrCodeEntryNotFound, ErrEntryNotFound, "%s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidArchive, err, "open entry %s", name)
	}
	return rc, nil
}

// Close releases the spill file, if any. It is safe to call more than once.
func (a *Archive) Close() error {
	err := removeSpill(a.spill)
	a.spill = nil
	return err
}

func spool(r io.Reader, opts Options) (io.ReaderAt, int64, *os.File, error) {
	switch v := r.(type) {
	case sizedReaderAt:
		return v, v.Size(), nil, nil
	case *os.File:
		st, err := v.Stat()
		if err == nil && st.Mode().IsRegular() {
			return v, st.Size(), nil, nil
		}
	}

	limit := opts.MemoryLimit
	if limit == 0 {
		limit = DefaultMemoryLimit
	}

	var buf bytes.Buffer
	if limit > 0 {
		n, err := io.CopyN(&buf, r, limit+1)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, nil, readError(err)
		}
		if n <= limit {
			return bytes.NewReader(buf.Bytes()), n, nil, nil
		}
	}

	f, err := os.CreateTemp(opts.TempDir, "revdeps-*.nupkg")
	if err != nil {
		return nil, 0, nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "create spill file")
	}
	if _, err := buf.WriteTo(f); err != nil {
		removeSpill(f)
		return nil, 0, nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "write spill file")
	}
	if _, err := io.Copy(f, r); err != nil {
		removeSpill(f)
		return nil, 0, nil, readError(err)
	}
	size, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		removeSpill(f)
		return nil, 0, nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "size spill file")
	}
	return f, size, f, nil
}

// readError classifies a failure while reading the package stream. The
// stream is an HTTP body, so this is a network failure.
func readError(err error) error {
	return apperrors.Wrap(apperrors.ErrCodeNetwork, err, "read package stream")
}

func removeSpill(f *os.File) error {
	if f == nil {
		return nil
	}
	name := f.Name()
	cerr := f.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return cerr
}

// hasSuffixFold compares runes from the end after upper-casing both.
func hasSuffixFold(s, suffix string) bool {
	for suffix != "" {
		r, n := utf8.DecodeLastRuneInString(s)
		p, m := utf8.DecodeLastRuneInString(suffix)
		if n == 0 || (r != p && unicode.ToUpper(r) != unicode.ToUpper(p)) {
			return false
		}
		s, suffix = s[:len(s)-n], suffix[:len(suffix)-m]
	}
	return true
}
