// Package manifest decodes .NET dependency manifests (*.deps.json) and
// matches their library keys against a target prefix.
//
// Only the key names of the "libraries" object matter. A library key has the
// form "Name/Version", e.g. "System.CommandLine/2.0.0-beta4.22272.1".
package manifest

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
)

// Suffix is the entry name suffix of a dependency manifest.
const Suffix = ".deps.json"

// DepsFile is a decoded dependency manifest.
type DepsFile struct {
	Libraries map[string]json.RawMessage `json:"libraries"`
}

// Decode reads one manifest from r. A leading byte-order mark selects UTF-8
// or UTF-16 and is dropped; without one the input is UTF-8. Malformed JSON
// fails with DECODE_ERROR. A manifest without a libraries object decodes to
// an empty map.
func Decode(r io.Reader) (*DepsFile, error) {
	text := transform.NewReader(r, textunicode.BOMOverride(textunicode.UTF8.NewDecoder()))
	var f DepsFile
	if err := json.NewDecoder(text).Decode(&f); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeDecode, err, "decode dependency manifest")
	}
	if f.Libraries == nil {
		f.Libraries = map[string]json.RawMessage{}
	}
	return &f, nil
}

// Match returns the library keys that start with prefix, compared
// case-insensitively, in sorted order. A nil result means no match.
func (f *DepsFile) Match(prefix string) []string {
	var out []string
	for key := range f.Libraries {
		if HasPrefixFold(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Uses reports whether any library key starts with prefix.
func (f *DepsFile) Uses(prefix string) bool {
	for key := range f.Libraries {
		if HasPrefixFold(key, prefix) {
			return true
		}
	}
	return false
}

// HasPrefixFold reports whether s starts with prefix, comparing rune by rune
// after upper-casing both. Runes whose upper case differs in encoded length
// (U+017F "ſ" and "S") still match.
func HasPrefixFold(s, prefix string) bool {
	for _, p := range prefix {
		r, n := utf8.DecodeRuneInString(s)
		if n == 0 || !equalUpper(r, p) {
			return false
		}
		s = s[n:]
	}
	return true
}

// equalUpper reports whether a and b are equal ignoring case, the way an
// ordinal case-insensitive comparison does: by simple upper-case mapping,
// not by full case folding.
func equalUpper(a, b rune) bool {
	return a == b || unicode.ToUpper(a) == unicode.ToUpper(b)
}

// LibraryName strips the "/Version" part of a library key.
func LibraryName(key string) string {
	name, _, _ := strings.Cut(key, "/")
	return name
}
