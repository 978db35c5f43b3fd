package count

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
)

// File names written by Write under the output directory.
const (
	MatrixFile   = "matrix.mtx"
	CellsFile    = "barcodes.tsv"
	FeaturesFile = "features.tsv"
	CountsFile   = "counts.tsv.gz"
)

// mtxHeader is the MatrixMarket banner for an integer sparse matrix.
const mtxHeader = "%%MatrixMarket matrix coordinate integer general\n"

// Write serializes m under dir: matrix.mtx in MatrixMarket coordinate form,
// the row labels in barcodes.tsv, the column labels in features.tsv, and a
// flat feature<TAB>cell<TAB>count table in counts.tsv.gz. A consumer can
// reconstruct the dense matrix from the first three files alone.
func Write(ctx context.Context, m *Matrix, dir string) error {
	if err := writeMTX(ctx, m, filepath.Join(dir, MatrixFile)); err != nil {
		return err
	}
	if err := writeLabels(ctx, m.Cells, filepath.Join(dir, CellsFile)); err != nil {
		return err
	}
	if err := writeLabels(ctx, m.Features, filepath.Join(dir, FeaturesFile)); err != nil {
		return err
	}
	return writeCounts(ctx, m, filepath.Join(dir, CountsFile))
}

// writeMTX writes the triplet file. MatrixMarket is space-delimited and
// 1-based; rows index barcodes.tsv, columns index features.tsv.
func writeMTX(ctx context.Context, m *Matrix, path string) (err error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	w := bufio.NewWriter(dst.Writer(ctx))
	if _, err = w.WriteString(mtxHeader); err != nil {
		return err
	}
	if _, err = fmt.Fprintf(w, "%d %d %d\n", len(m.Cells), len(m.Features), len(m.Entries)); err != nil {
		return err
	}
	for _, e := range m.Entries {
		if _, err = fmt.Fprintf(w, "%d %d %d\n", e.Row+1, e.Col+1, e.Value); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeLabels(ctx context.Context, labels []string, path string) (err error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	tw := tsv.NewWriter(dst.Writer(ctx))
	for _, label := range labels {
		tw.WriteString(label)
		if err = tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// writeCounts writes the flat per-entry table in the layout of the upstream
// counting tools: feature, cell, count.
func writeCounts(ctx context.Context, m *Matrix, path string) (err error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	gz := gzip.NewWriter(dst.Writer(ctx))
	tw := tsv.NewWriter(gz)
	for _, e := range m.Entries {
		tw.WriteString(m.Features[e.Col])
		tw.WriteString(m.Cells[e.Row])
		tw.WriteInt64(e.Value)
		if err = tw.EndLine(); err != nil {
			return err
		}
	}
	if err = tw.Flush(); err != nil {
		return err
	}
	return gz.Close()
}
