package demux

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"

	"github.com/grailbio/sctrimer/trimer"
	"github.com/grailbio/sctrimer/whitelist"
)

// Stats aggregates the counters of one demultiplexing run.
type Stats struct {
	// Decode tallies the decode pass over all chunks.
	Decode trimer.Stats
	// Whitelist is the number of barcodes correction ran against.
	Whitelist int
	// Correct tallies the correct pass over all chunks.
	Correct whitelist.CorrectStats
}

// Merge adds the field values of the two Stats objects and creates new
// Stats. The whitelist size is shared by construction, not summed.
func (s Stats) Merge(o Stats) Stats {
	s.Decode = s.Decode.Merge(o.Decode)
	s.Correct = s.Correct.Merge(o.Correct)
	return s
}

// WriteStats serializes s as a two-column TSV artifact, one counter per
// row.
func WriteStats(ctx context.Context, path string, s Stats) (err error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "stats:", path)
	}
	defer file.CloseAndReport(ctx, dst, &err)
	tw := tsv.NewWriter(dst.Writer(ctx))
	tw.WriteString("#STAT\tVALUE")
	if err = tw.EndLine(); err != nil {
		return err
	}
	rows := []struct {
		name  string
		value int
	}{
		{"reads", s.Decode.Reads},
		{"reversed", s.Decode.Reversed},
		{"unanchored", s.Decode.Unanchored},
		{"truncated", s.Decode.Truncated},
		{"ambiguous_barcode", s.Decode.AmbiguousBarcode},
		{"ambiguous_umi", s.Decode.AmbiguousUMI},
		{"decoded", s.Decode.Decoded},
		{"whitelist", s.Whitelist},
		{"exact", s.Correct.Exact},
		{"corrected", s.Correct.Corrected},
		{"ambiguous_correction", s.Correct.Ambiguous},
		{"no_match", s.Correct.NoMatch},
	}
	for _, row := range rows {
		tw.WriteString(row.name)
		tw.WriteInt64(int64(row.value))
		if err = tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
