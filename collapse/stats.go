package collapse

// Stats tallies the alignment scan and the collapse pass.
type Stats struct {
	// Alignments is the total number of alignment records scanned.
	Alignments int
	// Unmapped is the # of alignments skipped as unmapped.
	Unmapped int
	// MalformedTag is the # of alignments dropped because the feature tag was
	// missing or the cell/UMI annotation could not be parsed.
	MalformedTag int
	// Groups is the number of distinct (cell, feature) pairs.
	Groups int
	// Molecules is the total molecule count after collapsing.
	Molecules int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Alignments += o.Alignments
	s.Unmapped += o.Unmapped
	s.MalformedTag += o.MalformedTag
	s.Groups += o.Groups
	s.Molecules += o.Molecules
	return s
}
