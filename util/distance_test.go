package util

import (
	"math/rand"
	"testing"

	"github.com/antzucaro/matchr"
)

func TestHamming(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"ACGT", "ACGT", 0},
		{"ACGT", "ACGA", 1},
		{"AAAA", "TTTT", 4},
		{"ACGTACGT", "AGGTACCT", 2},
		{"ACGT", "ACG", InfiniteDistance},
		{"", "A", InfiniteDistance},
	}
	for _, test := range tests {
		if got := Hamming(test.s1, test.s2); got != test.want {
			t.Errorf("Hamming(%q, %q): got %v, want %v", test.s1, test.s2, got, test.want)
		}
		if got := Hamming(test.s2, test.s1); got != test.want {
			t.Errorf("Hamming(%q, %q): got %v, want %v", test.s2, test.s1, got, test.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"", "ACG", 3},
		{"ACGT", "ACGT", 0},
		{"ACGT", "ACGA", 1},
		// One deletion shifts the remaining bases into alignment.
		{"ATCGGT", "ACGGT", 1},
		{"ACAATTGG", "AXAAXTGX", 3},
		{"AAAA", "TTTT", 4},
		{"ACGT", "CGTA", 2},
	}
	for _, test := range tests {
		got := Levenshtein(test.s1, test.s2)
		if got != test.want {
			t.Errorf("Levenshtein(%q, %q): got %v, want %v", test.s1, test.s2, got, test.want)
		}
		if rev := Levenshtein(test.s2, test.s1); rev != got {
			t.Errorf("Levenshtein(%q, %q): got %v, want symmetric %v", test.s2, test.s1, rev, got)
		}
		if std := matchr.Levenshtein(test.s1, test.s2); std != got {
			t.Errorf("Levenshtein(%q, %q): got %v, reference %v", test.s1, test.s2, got, std)
		}
	}
}

// TestLevenshteinReference cross-checks our implementation against a standard
// one on random base strings, including unequal lengths.
func TestLevenshteinReference(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	randSeq := func(n int) string {
		const bases = "ACGTN"
		s := make([]byte, n)
		for i := range s {
			s[i] = bases[r.Intn(len(bases))]
		}
		return string(s)
	}
	for i := 0; i < 500; i++ {
		s1 := randSeq(r.Intn(20))
		s2 := randSeq(r.Intn(20))
		got := Levenshtein(s1, s2)
		want := matchr.Levenshtein(s1, s2)
		if got != want {
			t.Fatalf("Levenshtein(%q, %q): got %v, reference %v", s1, s2, got, want)
		}
		if len(s1) == len(s2) && got > Hamming(s1, s2) {
			t.Fatalf("Levenshtein(%q, %q)=%v exceeds Hamming=%v", s1, s2, got, Hamming(s1, s2))
		}
	}
}
