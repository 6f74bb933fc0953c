package update

import (
	"testing"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"patch less", "v1.2.3", "v1.2.4", -1},
		{"major greater", "v2.0.0", "v1.9.9", 1},
		{"missing trailing segment", "v1.0", "v1.0.0", 0},
		{"identical", "v0.0.1", "v0.0.1", 0},
		{"baseline vs first release", "v0.0.1", "v1.0.0", -1},
		{"no prefix vs prefix", "1.2.3", "v1.2.3", 0},
		{"other marker", "V1.2.3", "r1.2.3", 0},
		{"numeric not lexical", "v1.10.0", "v1.9.0", 1},
		{"longer wins when tail non-zero", "v1.0.0.1", "v1.0", 1},
		{"prerelease suffix coerced to zero", "v1.2.3-beta", "v1.2.0", 0},
		{"non-numeric segment", "v1.x.3", "v1.0.3", 0},
		{"empty equals zero", "", "v0.0.0", 0},
		{"marker only", "v", "0", 0},
		{"surrounding space", " v1.2.3 ", "v1.2.3", 0},
		{"negative treated as zero", "v1.-1", "v1.0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareVersions(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompareVersionsProperties(t *testing.T) {
	samples := []string{
		"", "v", "v0", "v0.0.1", "v0.1", "v1", "v1.0", "v1.0.0", "1.0.1",
		"v1.2.3", "v1.2.3-beta", "v1.10", "v2.0.0", "v10.0", "x.y.z", "v1.0.0.0.1",
	}
	checkOrdering(t, "CompareVersions", CompareVersions, samples)
}

func TestCompareSemverStrictProperties(t *testing.T) {
	// Parsable and unparsable tags mixed, including alternate markers.
	samples := []string{
		"", "v", "x.y.z", "v1.x.3", "v1.0.0.0.1", "release",
		"v0.0.1", "v1.0.0-rc.1", "v1.0.0-beta", "v1.0.0", "r1.0.0", "1.0.0",
		"1.0.1+build", "v1.0.1", "V2", "v2.0.0-alpha", "v10.0",
	}
	checkOrdering(t, "CompareSemverStrict", CompareSemverStrict, samples)
}

// checkOrdering asserts cmp is a total preorder over samples.
func checkOrdering(t *testing.T, name string, cmp Comparator, samples []string) {
	t.Helper()
	for _, a := range samples {
		if got := cmp(a, a); got != 0 {
			t.Errorf("%s(%q, %q) = %d, want 0", name, a, a, got)
		}
		for _, b := range samples {
			ab := cmp(a, b)
			if ab < -1 || ab > 1 {
				t.Fatalf("%s(%q, %q) = %d, outside {-1,0,1}", name, a, b, ab)
			}
			if ba := cmp(b, a); ab != -ba {
				t.Errorf("%s antisymmetry: (%q,%q)=%d, (%q,%q)=%d", name, a, b, ab, b, a, ba)
			}
			for _, c := range samples {
				if ab <= 0 && cmp(b, c) <= 0 && cmp(a, c) > 0 {
					t.Errorf("%s transitivity: %q <= %q <= %q but %q > %q", name, a, b, c, a, c)
				}
			}
		}
	}
}

func TestCompareSemverStrict(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"v1.2.3", "v1.2.4", -1},
		{"v1.0", "v1.0.0", 0},
		{"v1.2.3-beta.1", "v1.2.3", -1},
		{"v1.2.3", "v1.2.3-rc.1", 1},
		{"v1.2.3-alpha", "v1.2.3-beta", -1},
		{"r1.0.0", "v1.0.0", 0},
		{"V2", "v2.0.0", 0},
		{"v1.0.0-rc.1", "r1.0.0", -1},
		// Unparsable tags sort below parsable ones.
		{"x.y.z", "v0.0.0", -1},
		{"v0.0.0", "", 1},
		// Among themselves they use the lenient comparison.
		{"x.y.z", "", 0},
		{"v1.x.3", "x.y.z", 1},
	}

	for _, tt := range tests {
		if got := CompareSemverStrict(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareSemverStrict(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestComparatorFor(t *testing.T) {
	if got := ComparatorFor("semver")("v1.0.0-rc.1", "v1.0.0"); got != -1 {
		t.Errorf("semver comparator = %d, want -1", got)
	}
	for _, mode := range []string{"", "lenient", "LENIENT", "bogus"} {
		// Lenient parsing reads "0-rc" as 0 and the trailing "1" as a fourth segment.
		if got := ComparatorFor(mode)("v1.0.0-rc.1", "v1.0.0"); got != 1 {
			t.Errorf("ComparatorFor(%q) = %d, want lenient result 1", mode, got)
		}
	}
}
