package nuget

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
)

// versionRegex matches NuGet versions: one to four numeric parts, an optional
// dot-separated pre-release label and optional build metadata.
var versionRegex = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.(\d+))?` +
	`(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?` +
	`(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`)

// Version is a parsed NuGet package version.
type Version struct {
	Major    int
	Minor    int
	Patch    int
	Revision int
	Release  string // pre-release label without the leading '-'
	Metadata string // build metadata without the leading '+'
	Original string // input as given, trimmed
}

// ParseVersion parses a NuGet version string such as "1.2", "1.2.3-beta.1"
// or "4.0.0.1+sha.abc". Missing minor and patch parts default to zero.
// Failures carry [apperrors.ErrCodeInvalidVersion].
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return Version{}, apperrors.New(apperrors.ErrCodeInvalidVersion, "invalid NuGet version %q", s)
	}

	var parts [4]int
	for i := range parts {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Version{}, apperrors.Wrap(apperrors.ErrCodeInvalidVersion, err, "invalid NuGet version %q", s)
		}
		parts[i] = n
	}

	return Version{
		Major:    parts[0],
		Minor:    parts[1],
		Patch:    parts[2],
		Revision: parts[3],
		Release:  m[5],
		Metadata: m[6],
		Original: s,
	}, nil
}

// String returns the normalized form used by the NuGet V3 protocol:
// leading zeros removed, a zero fourth part dropped and build metadata omitted.
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(v.Major))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(v.Minor))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(v.Patch))
	if v.Revision > 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(v.Revision))
	}
	if v.Release != "" {
		b.WriteByte('-')
		b.WriteString(v.Release)
	}
	return b.String()
}

// IsPrerelease reports whether the version carries a pre-release label.
func (v Version) IsPrerelease() bool { return v.Release != "" }
