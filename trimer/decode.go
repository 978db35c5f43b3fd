package trimer

import (
	gunsafe "github.com/grailbio/base/unsafe"

	"github.com/grailbio/sctrimer/encoding/fastq"
)

// Outcome classifies the decode attempt for one read. Only OK produces a
// tag; every other value names the reason the read was excluded and is
// tallied in Stats.
type Outcome uint8

const (
	// OK means both the barcode and the UMI decoded.
	OK Outcome = iota
	// UnanchoredRead means no poly-A anchor was found on either strand.
	UnanchoredRead
	// TruncatedWindow means the read ended before the full tag window.
	TruncatedWindow
	// AmbiguousBarcode means some barcode repeat group had no majority base.
	AmbiguousBarcode
	// AmbiguousUMI means some UMI repeat group had no majority base.
	AmbiguousUMI
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case UnanchoredRead:
		return "unanchored"
	case TruncatedWindow:
		return "truncated"
	case AmbiguousBarcode:
		return "ambiguous-barcode"
	case AmbiguousUMI:
		return "ambiguous-umi"
	}
	return "invalid"
}

// Tag is the decoded identity of one read: the cell barcode and UMI
// recovered from the repeat-encoded window, with per-base agreement counts.
type Tag struct {
	// ReadID is the FASTQ read name the tag was decoded from.
	ReadID string
	// Barcode is the decoded cell barcode, Opts.BarcodeLen bases.
	Barcode string
	// UMI is the decoded molecular identifier, Opts.UMILen bases.
	UMI string
	// BarcodeConf[i] is the number of repeat positions that agreed on
	// Barcode[i]. With Repeat=3 the value is 3 (unanimous) or 2 (majority).
	BarcodeConf []uint8
	// UMIConf is the UMI counterpart of BarcodeConf.
	UMIConf []uint8
}

// vote returns the most frequent base of one repeat group and its count. ok
// is false when the top count is shared by two or more bases; such groups
// are never resolved by guessing. Bases are opaque bytes: N votes like any
// other base.
func vote(group string) (base byte, count uint8, ok bool) {
	var (
		best  byte
		bestN uint8
		tie   bool
	)
	for i := 0; i < len(group); i++ {
		b := group[i]
		seen := false
		for j := 0; j < i; j++ {
			if group[j] == b {
				seen = true
				break
			}
		}
		if seen {
			continue
		}
		var n uint8
		for j := i; j < len(group); j++ {
			if group[j] == b {
				n++
			}
		}
		switch {
		case n > bestN:
			best, bestN, tie = b, n, false
		case n == bestN:
			tie = true
		}
	}
	return best, bestN, !tie
}

// decodeSegment decodes n repeat groups from region. ok is false when any
// group fails to produce a majority base.
func decodeSegment(region string, n, repeat int) (string, []uint8, bool) {
	seq := make([]byte, n)
	conf := make([]uint8, n)
	for i := 0; i < n; i++ {
		base, count, ok := vote(region[i*repeat : (i+1)*repeat])
		if !ok {
			return "", nil, false
		}
		seq[i] = base
		conf[i] = count
	}
	return gunsafe.BytesToString(seq), conf, true
}

// Decode normalizes the read orientation in place and decodes the barcode
// and UMI segments of the tag window that follows the poly-A anchor. The
// anchor is meaningful for every outcome except UnanchoredRead.
//
// Decoding is position-local: repeat group i depends only on window bases
// [i*Repeat, (i+1)*Repeat), so a single base error never corrupts more than
// one decoded base.
func Decode(read *fastq.Read, opts Opts) (Tag, Anchor, Outcome) {
	anchor, ok := Normalize(read, opts)
	if !ok {
		return Tag{}, anchor, UnanchoredRead
	}
	window := read.Seq[anchor.End:]
	if len(window) < opts.WindowBases() {
		return Tag{}, anchor, TruncatedWindow
	}
	barcodeBases := opts.Repeat * opts.BarcodeLen
	barcode, barcodeConf, ok := decodeSegment(window[:barcodeBases], opts.BarcodeLen, opts.Repeat)
	if !ok {
		return Tag{}, anchor, AmbiguousBarcode
	}
	umi, umiConf, ok := decodeSegment(window[barcodeBases:opts.WindowBases()], opts.UMILen, opts.Repeat)
	if !ok {
		return Tag{}, anchor, AmbiguousUMI
	}
	return Tag{
		ReadID:      read.Name(),
		Barcode:     barcode,
		UMI:         umi,
		BarcodeConf: barcodeConf,
		UMIConf:     umiConf,
	}, anchor, OK
}
