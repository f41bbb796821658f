// Package version parses and orders package version numbers.
//
// Package versions have one to three numeric components and an optional beta
// marker. Three spellings of the same version are accepted:
//
//	1.1 (Beta 4)     display form, as reported by package releases
//	1.1-Beta_4       tag form, as used in beta tag names
//	1.1.0-beta.4     semver form
//
// A release is strictly greater than any beta with the same numeric prefix,
// and missing components are zero padded, so "1.0" equals "1.0.0". Ordering is
// delegated to [semver.Version] after the input is canonicalised.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/depflow/pkg/errors"
)

var versionPattern = regexp.MustCompile(
	`^(\d+)(?:\.(\d+))?(?:\.(\d+))?` +
		`(?:\s*\((?i:beta)\s+(\d+)\)|-(?i:beta)_(\d+)|-(?i:beta)\.(\d+))?$`,
)

// Version is a parsed package version number.
type Version struct {
	parts [3]int
	n     int // declared component count, for String
	beta  int // 0 when not a beta
	sv    *semver.Version
}

// Parse parses s in any of the accepted spellings.
// Malformed input yields an INVALID_VERSION error.
func Parse(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, errors.VersionFormat("invalid version %q", s)
	}

	var v Version
	for i := 0; i < 3; i++ {
		if m[i+1] == "" {
			break
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Version{}, errors.VersionFormat("invalid version %q", s)
		}
		v.parts[i] = n
		v.n = i + 1
	}
	for _, b := range m[4:] {
		if b == "" {
			continue
		}
		n, err := strconv.Atoi(b)
		if err != nil || n < 1 {
			return Version{}, errors.VersionFormat("invalid beta number in %q", s)
		}
		v.beta = n
	}

	sv, err := semver.NewVersion(v.semverString())
	if err != nil {
		return Version{}, errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version %q", s)
	}
	v.sv = sv
	return v, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// constant tables.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare parses a and b and returns -1, 0 or 1.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Compare returns -1, 0 or 1 depending on whether v is less than, equal to
// or greater than o.
func (v Version) Compare(o Version) int {
	if v.sv == nil || o.sv == nil {
		return compareZero(v, o)
	}
	return v.sv.Compare(o.sv)
}

// compareZero orders uninitialised values first.
func compareZero(v, o Version) int {
	switch {
	case v.sv == nil && o.sv == nil:
		return 0
	case v.sv == nil:
		return -1
	default:
		return 1
	}
}

// LessThan reports whether v orders before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// AtLeast reports whether v is greater than or equal to o.
func (v Version) AtLeast(o Version) bool { return v.Compare(o) >= 0 }

// IsBeta reports whether v carries a beta marker.
func (v Version) IsBeta() bool { return v.beta > 0 }

// Beta returns the beta number, or 0.
func (v Version) Beta() int { return v.beta }

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool { return v.sv == nil }

// String renders the display form, e.g. "1.1 (Beta 4)".
func (v Version) String() string {
	s := v.numeric()
	if v.beta > 0 {
		s += fmt.Sprintf(" (Beta %d)", v.beta)
	}
	return s
}

// TagString renders the tag form, e.g. "1.1-Beta_4".
func (v Version) TagString() string {
	s := v.numeric()
	if v.beta > 0 {
		s += fmt.Sprintf("-Beta_%d", v.beta)
	}
	return s
}

// Semver renders the canonical semver form, e.g. "1.1.0-beta.4".
func (v Version) Semver() string { return v.semverString() }

func (v Version) numeric() string {
	n := v.n
	if n == 0 {
		n = 1
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strconv.Itoa(v.parts[i])
	}
	return strings.Join(parts, ".")
}

func (v Version) semverString() string {
	s := fmt.Sprintf("%d.%d.%d", v.parts[0], v.parts[1], v.parts[2])
	if v.beta > 0 {
		s += fmt.Sprintf("-beta.%d", v.beta)
	}
	return s
}

// MarshalText implements [encoding.TextMarshaler] using the display form.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (v *Version) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// Info identifies a concrete package version.
type Info struct {
	ID     string  `json:"id" yaml:"id" toml:"id"`
	Number Version `json:"number" yaml:"number" toml:"number"`
}
