package trimer

import (
	gunsafe "github.com/grailbio/base/unsafe"

	"github.com/grailbio/sctrimer/encoding/fastq"
)

// Orientation describes where the poly-A anchor was found relative to the
// read as sequenced.
type Orientation uint8

const (
	// Forward means the read carried the poly-A anchor directly.
	Forward Orientation = iota
	// Reverse means the read carried a poly-T anchor and was
	// reverse-complemented during normalization.
	Reverse
	// NoAnchor means neither strand shows a qualifying anchor run. Such
	// reads are excluded from tag decoding, never guessed at.
	NoAnchor
)

func (o Orientation) String() string {
	switch o {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unanchored"
	}
}

// Anchor locates the poly-A run in the normalized read. The tag window
// starts at End.
type Anchor struct {
	Start, End  int
	Orientation Orientation
}

var complement [256]byte

func init() {
	for i := range complement {
		complement[i] = 'N'
	}
	complement['a'], complement['A'] = 'T', 'T'
	complement['c'], complement['C'] = 'G', 'G'
	complement['g'], complement['G'] = 'C', 'C'
	complement['t'], complement['T'] = 'A', 'A'
}

// ReverseComplement computes the reverse complement of a DNA string. Bases
// other than acgt/ACGT complement to N.
func ReverseComplement(seq string) string {
	buf := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		buf[i] = complement[seq[len(seq)-1-i]]
	}
	return gunsafe.BytesToString(buf)
}

func reverse(s string) string {
	buf := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		buf[i] = s[len(s)-1-i]
	}
	return gunsafe.BytesToString(buf)
}

// findRun returns the longest run of base in seq that contains at most
// maxMiss other bases, after trimming mismatches off both ends. Runs shorter
// than minRun do not qualify. Among equally long runs the rightmost wins,
// since the true tail sits closer to the tag window than any run inside the
// transcript body.
func findRun(seq string, base byte, minRun, maxMiss int) (start, end int, ok bool) {
	left, miss := 0, 0
	bestLen := -1
	var bestS, bestE int
	for right := 0; right < len(seq); right++ {
		if seq[right] != base {
			miss++
		}
		for miss > maxMiss {
			if seq[left] != base {
				miss--
			}
			left++
		}
		s, e := left, right+1
		for s < e && seq[s] != base {
			s++
		}
		for e > s && seq[e-1] != base {
			e--
		}
		if e-s >= bestLen {
			bestLen, bestS, bestE = e-s, s, e
		}
	}
	if bestLen < minRun {
		return 0, 0, false
	}
	return bestS, bestE, true
}

// Normalize orients the read so that its poly-A anchor reads in the forward
// direction, reverse-complementing sequence and reversing quality in place
// when the anchor is found on the opposite strand. ok is false when neither
// strand has a qualifying run; the read is then left untouched.
//
// Normalization is idempotent: a normalized read is already Forward and
// yields the same anchor again.
func Normalize(read *fastq.Read, opts Opts) (Anchor, bool) {
	if s, e, ok := findRun(read.Seq, 'A', opts.AnchorMinRun, opts.AnchorMaxMiss); ok {
		return Anchor{Start: s, End: e, Orientation: Forward}, true
	}
	// No qualifying run on the forward strand. Search the reverse complement
	// with the same criteria so that the anchor found now is exactly the one
	// a re-normalization of the flipped read would find.
	rc := ReverseComplement(read.Seq)
	if s, e, ok := findRun(rc, 'A', opts.AnchorMinRun, opts.AnchorMaxMiss); ok {
		read.Seq = rc
		read.Qual = reverse(read.Qual)
		return Anchor{Start: s, End: e, Orientation: Reverse}, true
	}
	return Anchor{Orientation: NoAnchor}, false
}
