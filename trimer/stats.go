package trimer

// Stats tallies decode outcomes for one read chunk. Counts of excluded reads
// are kept per reason so that a run can be audited without rescanning input.
type Stats struct {
	// Reads is the total number of reads seen.
	Reads int
	// Unanchored is the # of reads with no poly-A run on either strand.
	Unanchored int
	// Truncated is the # of reads too short for the full tag window.
	Truncated int
	// AmbiguousBarcode is the # of reads with a tied vote in some barcode
	// repeat group.
	AmbiguousBarcode int
	// AmbiguousUMI is the # of reads with a tied vote in some UMI repeat
	// group.
	AmbiguousUMI int
	// Reversed is the # of reads that were reverse-complemented during
	// orientation normalization.
	Reversed int
	// Decoded is the # of reads that produced a tag.
	Decoded int
}

// Add tallies the outcome of a single decode attempt.
func (s *Stats) Add(anchor Anchor, outcome Outcome) {
	s.Reads++
	if anchor.Orientation == Reverse {
		s.Reversed++
	}
	switch outcome {
	case OK:
		s.Decoded++
	case UnanchoredRead:
		s.Unanchored++
	case TruncatedWindow:
		s.Truncated++
	case AmbiguousBarcode:
		s.AmbiguousBarcode++
	case AmbiguousUMI:
		s.AmbiguousUMI++
	}
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Reads += o.Reads
	s.Unanchored += o.Unanchored
	s.Truncated += o.Truncated
	s.AmbiguousBarcode += o.AmbiguousBarcode
	s.AmbiguousUMI += o.AmbiguousUMI
	s.Reversed += o.Reversed
	s.Decoded += o.Decoded
	return s
}
