package util

import (
	"math"
)

// InfiniteDistance is returned by Hamming for sequences of unequal length,
// which can never be neighbors under a substitution-only metric.
const InfiniteDistance = math.MaxInt32

// Hamming returns the number of positions at which s1 and s2 differ. If the
// two sequences have different lengths the distance is InfiniteDistance.
func Hamming(s1, s2 string) int {
	if len(s1) != len(s2) {
		return InfiniteDistance
	}
	d := 0
	for i := 0; i < len(s1); i++ {
		if s1[i] != s2[i] {
			d++
		}
	}
	return d
}

// Levenshtein returns the edit distance between s1 and s2: the minimum number
// of substitutions, insertions, and deletions needed to transform one into the
// other, each costing one point. The sequences may have different lengths.
func Levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}
	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			v := prev[j-1] + cost
			if d := prev[j] + 1; d < v {
				v = d
			}
			if d := cur[j-1] + 1; d < v {
				v = d
			}
			cur[j] = v
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}
