package trimer

// Opts parameterizes tag decoding. One engine handles every library layout;
// none of the repeat factors or segment lengths are hardcoded.
type Opts struct {
	// Repeat is the redundancy factor of the encoding: every barcode and UMI
	// base appears as a run of Repeat identical bases in the raw read.
	Repeat int
	// BarcodeLen is the length of the decoded cell barcode, in bases.
	BarcodeLen int
	// UMILen is the length of the decoded UMI, in bases.
	UMILen int

	// AnchorMinRun is the minimum poly-A (or poly-T on the reverse strand)
	// run length that anchors the tag window.
	AnchorMinRun int
	// AnchorMaxMiss is the number of non-A bases tolerated inside a
	// qualifying poly-A run, to allow for sequencing errors in the tail.
	AnchorMaxMiss int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Repeat:        3,  // trimer chemistry
	BarcodeLen:    16, // matches the common droplet barcode length
	UMILen:        12,
	AnchorMinRun:  12,
	AnchorMaxMiss: 1,
}

// WindowBases returns the raw read length consumed by the tag window: the
// barcode and UMI segments at Repeat-fold redundancy.
func (o Opts) WindowBases() int {
	return o.Repeat * (o.BarcodeLen + o.UMILen)
}
