// Package version compares package versions across the formats srcget
// encounters: dotted upstream versions ("1.0.0", "2.13") and snapshot
// timestamps ("20140406.1613"). Every format collapses to one canonical
// representation, an ordered numeric vector, at the parsing boundary;
// comparison logic never sees format variation.
package version

import (
	"strconv"
	"strings"

	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/logging"
)

// InstalledSource reports the version the package database currently
// records for a package, if any.
type InstalledSource interface {
	InstalledVersion(name string) (string, bool, error)
}

// Parse converts a version string into its canonical numeric vector.
// A leading "v" is tolerated. Snapshot timestamps need no special
// representation: "20140406.1613" parses to [20140406, 1613], and the
// date component's magnitude gives timestamps the correct ordering
// against dotted forms like "1.0.0.20140406.1613".
func Parse(s string) ([]int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "v"))
	if s == "" {
		return nil, errors.New(errors.ErrVersionParse, "empty version string")
	}

	parts := strings.Split(s, ".")
	vec := make([]int64, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Newf(errors.ErrVersionParse, "malformed version component %q in %q", part, s)
		}
		vec = append(vec, n)
	}
	return vec, nil
}

// Compare orders two version strings. Missing trailing components
// compare as zero, so "1.0" equals "1.0.0".
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return compareVectors(va, vb), nil
}

func compareVectors(a, b []int64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Comparator answers "is this candidate newer than what is installed"
// questions. Installed versions come from three fallback layers: the
// package database record, the builtin-version table, and finally
// "never installed", which is older than anything.
type Comparator struct {
	installed InstalledSource
	builtin   map[string]string
}

// NewComparator creates a comparator. installed may be nil; builtin
// may be nil or empty.
func NewComparator(installed InstalledSource, builtin map[string]string) *Comparator {
	return &Comparator{installed: installed, builtin: builtin}
}

// Current returns the version currently recorded for a package,
// reporting whether any layer knows it.
func (c *Comparator) Current(name string) (string, bool, error) {
	if c.installed != nil {
		v, ok, err := c.installed.InstalledVersion(name)
		if err != nil {
			return "", false, err
		}
		if ok {
			return v, true, nil
		}
	}
	if v, ok := c.builtin[name]; ok {
		return v, true, nil
	}
	return "", false, nil
}

// IsNewer reports whether candidate is strictly newer than the version
// currently recorded for name. An empty candidate is never newer. An
// absent installed version is older than any candidate. Malformed
// version data is treated conservatively as "not newer"; it never
// propagates as a failure.
func (c *Comparator) IsNewer(name, candidate string) bool {
	logger := logging.GetLogger("version")

	if candidate == "" {
		return false
	}

	current, ok, err := c.Current(name)
	if err != nil {
		logger.Warn().Err(err).Str("package", name).Msg("Failed to read installed version, treating candidate as not newer")
		return false
	}
	if !ok {
		return true
	}

	cmp, err := Compare(candidate, current)
	if err != nil {
		logger.Warn().Err(err).
			Str("package", name).
			Str("candidate", candidate).
			Str("installed", current).
			Msg("Malformed version data, treating candidate as not newer")
		return false
	}
	return cmp > 0
}

// IsEqual reports whether candidate denotes exactly the version
// currently recorded for name. Literal string equality short-circuits
// so malformed-but-identical stamps still compare equal.
func (c *Comparator) IsEqual(name, candidate string) bool {
	current, ok, err := c.Current(name)
	if err != nil || !ok {
		return false
	}
	if candidate == current {
		return true
	}
	cmp, err := Compare(candidate, current)
	if err != nil {
		return false
	}
	return cmp == 0
}
