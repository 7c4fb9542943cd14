package archive

import (
	"bytes"
	"errors"
	"io"
	"os"
	"slices"
	"testing"

	"github.com/klauspost/compress/zip"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
)

type entry struct {
	name string
	body string
}

func buildZip(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("Create(%s): %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatalf("Write(%s): %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	return buf.Bytes()
}

// streamOnly hides every interface but io.Reader.
type streamOnly struct{ r io.Reader }

func (s streamOnly) Read(p []byte) (int, error) { return s.r.Read(p) }

var fixture = []entry{
	{"tool.nuspec", "<package/>"},
	{"tools/net8.0/any/Tool.deps.json", `{"libraries":{}}`},
	{"tools/net8.0/any/Tool.dll", "MZ"},
	{"tools/net6.0/any/OTHER.DEPS.JSON", `{"libraries":{}}`},
	{"tools/net6.0/any/", ""},
}

func TestOpen_RandomAccess(t *testing.T) {
	data := buildZip(t, fixture...)

	a, err := Open(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	if a.Spilled() {
		t.Error("random-access reader should not be spooled")
	}
	if a.Size() != int64(len(data)) {
		t.Errorf("Size() = %d, want %d", a.Size(), len(data))
	}
}

func TestOpen_StreamInMemory(t *testing.T) {
	data := buildZip(t, fixture...)

	a, err := Open(streamOnly{bytes.NewReader(data)}, Options{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	if a.Spilled() {
		t.Error("small stream should stay in memory")
	}
	got := slices.Collect(a.Entries(".deps.json"))
	if len(got) != 2 {
		t.Errorf("Entries() = %v, want 2 entries", got)
	}
}

func TestOpen_StreamSpillsToDisk(t *testing.T) {
	dir := t.TempDir()
	data := buildZip(t, fixture...)

	a, err := Open(streamOnly{bytes.NewReader(data)}, Options{MemoryLimit: 16, TempDir: dir})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !a.Spilled() {
		t.Fatal("stream above memory limit should spill")
	}
	if a.Size() != int64(len(data)) {
		t.Errorf("Size() = %d, want %d", a.Size(), len(data))
	}

	rc, err := a.OpenEntry("tools/net8.0/any/Tool.deps.json")
	if err != nil {
		t.Fatalf("OpenEntry() error: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != `{"libraries":{}}` {
		t.Errorf("entry body = %q", body)
	}

	if files, _ := os.ReadDir(dir); len(files) != 1 {
		t.Errorf("spill dir has %d files before Close, want 1", len(files))
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if files, _ := os.ReadDir(dir); len(files) != 0 {
		t.Errorf("spill file not removed on Close")
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestOpen_AlwaysSpill(t *testing.T) {
	dir := t.TempDir()
	data := buildZip(t, fixture...)

	a, err := Open(streamOnly{bytes.NewReader(data)}, Options{MemoryLimit: -1, TempDir: dir})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()
	if !a.Spilled() {
		t.Error("negative memory limit should always spill")
	}
}

func TestEntries(t *testing.T) {
	a, err := Open(bytes.NewReader(buildZip(t, fixture...)), Options{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	tests := []struct {
		suffix string
		want   []string
	}{
		{".deps.json", []string{"tools/net8.0/any/Tool.deps.json", "tools/net6.0/any/OTHER.DEPS.JSON"}},
		{".DEPS.json", []string{"tools/net8.0/any/Tool.deps.json", "tools/net6.0/any/OTHER.DEPS.JSON"}},
		{".nuspec", []string{"tool.nuspec"}},
		{".pdb", nil},
		{"", []string{"tool.nuspec", "tools/net8.0/any/Tool.deps.json", "tools/net8.0/any/Tool.dll", "tools/net6.0/any/OTHER.DEPS.JSON"}},
	}

	for _, tt := range tests {
		t.Run(tt.suffix, func(t *testing.T) {
			got := slices.Collect(a.Entries(tt.suffix))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Entries(%q) = %v, want %v", tt.suffix, got, tt.want)
			}
		})
	}
}

func TestEntries_StopsEarly(t *testing.T) {
	a, err := Open(bytes.NewReader(buildZip(t, fixture...)), Options{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	n := 0
	for range a.Entries("") {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterated %d entries after break, want 1", n)
	}
}

func TestOpenEntry_NotFound(t *testing.T) {
	a, err := Open(bytes.NewReader(buildZip(t, fixture...)), Options{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	_, err = a.OpenEntry("tools/net9.0/any/Gone.deps.json")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("OpenEntry() error = %v, want ErrEntryNotFound", err)
	}
	if !apperrors.Is(err, apperrors.ErrCodeEntryNotFound) {
		t.Errorf("OpenEntry() code = %v, want ENTRY_NOT_FOUND", apperrors.GetCode(err))
	}
}

func TestOpen_InvalidArchive(t *testing.T) {
	_, err := Open(streamOnly{bytes.NewReader([]byte("definitely not a zip file"))}, Options{})
	if !apperrors.Is(err, apperrors.ErrCodeInvalidArchive) {
		t.Errorf("Open() code = %v, want INVALID_ARCHIVE", apperrors.GetCode(err))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestOpen_ReadError(t *testing.T) {
	_, err := Open(failingReader{}, Options{})
	if !apperrors.Is(err, apperrors.ErrCodeNetwork) {
		t.Errorf("Open() code = %v, want NETWORK_ERROR", apperrors.GetCode(err))
	}
}

func TestOpen_ReadErrorWhileSpilling(t *testing.T) {
	dir := t.TempDir()
	r := io.MultiReader(bytes.NewReader(make([]byte, 64)), failingReader{})

	_, err := Open(r, Options{MemoryLimit: 8, TempDir: dir})
	if !apperrors.Is(err, apperrors.ErrCodeNetwork) {
		t.Errorf("Open() code = %v, want NETWORK_ERROR", apperrors.GetCode(err))
	}
	if files, _ := os.ReadDir(dir); len(files) != 0 {
		t.Errorf("spill file left behind after read error")
	}
}

func TestHasSuffixFold(t *testing.T) {
	tests := []struct {
		s, suffix string
		want      bool
	}{
		{"tools/net8.0/any/Tool.deps.json", ".deps.json", true},
		{"tools/net8.0/any/TOOL.DEPS.JSON", ".deps.json", true},
		{"tools/net8.0/any/Tool.deps.j\u017fon", ".deps.json", true},
		{"tools/net8.0/any/Tool.runtimeconfig.json", ".deps.json", false},
		{"deps.json", ".deps.json", false},
		{"", ".deps.json", false},
		{"anything", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			if got := hasSuffixFold(tt.s, tt.suffix); got != tt.want {
				t.Errorf("hasSuffixFold(%q, %q) = %v, want %v", tt.s, tt.suffix, got, tt.want)
			}
		})
	}
}
