package knowledge

import (
	"math"
	"testing"
)

func TestSimilarityIdenticalStrings(t *testing.T) {
	if got := Similarity("głowica", "głowica"); got != 1.0 {
		t.Errorf("Similarity of identical strings = %f, want 1.0", got)
	}
}

func TestSimilarityEmptyStrings(t *testing.T) {
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("Similarity of two empty strings = %f, want 1.0", got)
	}
	if got := Similarity("obraz", ""); got != 0.0 {
		t.Errorf("Similarity with one empty string = %f, want 0.0", got)
	}
}

func TestSimilarityDisjointStrings(t *testing.T) {
	if got := Similarity("abc", "xyz"); got != 0.0 {
		t.Errorf("Similarity of disjoint strings = %f, want 0.0", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "urządzenie nie włącza się", "urządzenie włącza się powoli"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("Similarity must be symmetric")
	}
}

func TestSimilarityKnownRatio(t *testing.T) {
	// LCS("abcd", "abxd") = 3, ratio = 2*3/8.
	if got := Similarity("abcd", "abxd"); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Similarity(abcd, abxd) = %f, want 0.75", got)
	}
}

func TestSimilarityBounded(t *testing.T) {
	pairs := [][2]string{
		{"ekran migocze", "obraz jest niewyraźny"},
		{"a", "aaaa"},
		{"zażółć gęślą jaźń", "zażółć"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0.0 || got > 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, out of [0,1]", p[0], p[1], got)
		}
	}
}
