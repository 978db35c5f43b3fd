package whitelist

// CorrectStats tallies correction verdicts over one chunk of observations.
type CorrectStats struct {
	// Observed is the total number of barcodes examined.
	Observed int
	// Exact is the # of observations already on the whitelist.
	Exact int
	// Corrected is the # of observations snapped to a unique neighbor.
	Corrected int
	// Ambiguous is the # of observations with tied nearest neighbors.
	Ambiguous int
	// NoMatch is the # of observations with no neighbor within MaxDist.
	NoMatch int
}

// Add tallies one verdict.
func (s *CorrectStats) Add(v Verdict) {
	s.Observed++
	switch v {
	case Exact:
		s.Exact++
	case Corrected:
		s.Corrected++
	case Ambiguous:
		s.Ambiguous++
	case NoMatch:
		s.NoMatch++
	}
}

// Merge adds the field values of the two CorrectStats objects and creates
// new CorrectStats.
func (s CorrectStats) Merge(o CorrectStats) CorrectStats {
	s.Observed += o.Observed
	s.Exact += o.Exact
	s.Corrected += o.Corrected
	s.Ambiguous += o.Ambiguous
	s.NoMatch += o.NoMatch
	return s
}
