package update

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"
)

// Comparison modes accepted by ComparatorFor.
const (
	CompareLenient = "lenient"
	CompareSemver  = "semver"
)

// Comparator orders two version strings, returning -1, 0 or 1.
type Comparator func(a, b string) int

// ComparatorFor returns the comparator for the named mode. Unknown or empty
// modes select the lenient comparator.
func ComparatorFor(mode string) Comparator {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case CompareSemver:
		return CompareSemverStrict
	default:
		return CompareVersions
	}
}

// CompareVersions compares two dot-separated version strings.
// Returns:
//
//	-1 if a < b
//	 0 if a == b
//	 1 if a > b
//
// A single leading non-digit marker (such as "v") is ignored. Segments that are
// missing or not plain non-negative integers count as 0, so "v1.0" equals
// "v1.0.0" and "1.2.3-beta" equals "1.2.0".
func CompareVersions(a, b string) int {
	as := parseSegments(a)
	bs := parseSegments(b)

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		x, y := segmentAt(as, i), segmentAt(bs, i)
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
	}
	return 0
}

// CompareSemverStrict compares using semantic versioning precedence, so
// pre-releases sort before their release. The same single leading marker that
// CompareVersions ignores is stripped first, so "r1.0.0" equals "v1.0.0".
// Tags that still do not parse sort below every parsable tag and are ordered
// among themselves by CompareVersions.
func CompareSemverStrict(a, b string) int {
	av, errA := semver.NewVersion(stripMarker(a))
	bv, errB := semver.NewVersion(stripMarker(b))
	switch {
	case errA == nil && errB == nil:
		return av.Compare(bv)
	case errA != nil && errB != nil:
		return CompareVersions(a, b)
	case errA != nil:
		return -1
	default:
		return 1
	}
}

// stripMarker trims space and drops one leading non-digit rune.
func stripMarker(v string) string {
	v = strings.TrimSpace(v)
	if r, size := utf8.DecodeRuneInString(v); size > 0 && !unicode.IsDigit(r) {
		v = v[size:]
	}
	return v
}

func parseSegments(v string) []int {
	parts := strings.Split(stripMarker(v), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			n = 0
		}
		out[i] = n
	}
	return out
}

func segmentAt(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}
