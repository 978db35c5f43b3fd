package count

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// featureMapRecord is one line of a feature map file: a raw feature label and
// the label it projects to.
type featureMapRecord struct {
	Feature   string
	Projected string
}

// LoadFeatureMap reads a two-column TSV (feature, projected feature), for
// example a transcript-to-gene table, and returns the KeyFunc projecting
// through it. Features absent from the table pass through unchanged. "#"
// lines are comments; recognized compression extensions are decompressed
// transparently.
func LoadFeatureMap(ctx context.Context, path string) (_ KeyFunc, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	scanner := tsv.NewReader(bufio.NewReaderSize(r, 64<<10))
	scanner.Comment = '#'
	projected := map[string]string{}
	var line featureMapRecord
	for {
		if err := scanner.Read(&line); err != nil {
			if err != io.EOF {
				return nil, errors.E(err, "feature map:", path)
			}
			break
		}
		projected[line.Feature] = line.Projected
	}
	return func(feature string) string {
		if to, ok := projected[feature]; ok {
			return to
		}
		return feature
	}, nil
}
