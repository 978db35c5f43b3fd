package whitelist

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// Write serializes w as barcode<TAB>count lines in the whitelist's sorted
// order. The artifact is the restart point for the correction phase: two
// runs over the same chunks write byte-identical files.
func Write(ctx context.Context, path string, w *Whitelist) (err error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "whitelist %s", path)
	}
	defer file.CloseAndReport(ctx, dst, &err)
	tw := tsv.NewWriter(dst.Writer(ctx))
	for _, e := range w.Entries {
		tw.WriteString(e.Barcode)
		tw.WriteInt64(e.Count)
		if err = tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Read parses a whitelist artifact. Bare-barcode lines, the usual form of
// external catalogs, count zero; duplicated barcodes sum; "#" lines are
// comments. Files with recognized compression extensions are decompressed
// transparently.
func Read(ctx context.Context, path string) (_ *Whitelist, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "whitelist %s", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	b := NewBuilder()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		switch len(fields) {
		case 1:
			b.AddCount(fields[0], 0)
		case 2:
			count, perr := strconv.ParseInt(fields[1], 10, 64)
			if perr != nil {
				return nil, errors.Wrapf(perr, "whitelist %s: line %d", path, line)
			}
			b.AddCount(fields[0], count)
		default:
			return nil, errors.Errorf("whitelist %s: line %d: expected 1 or 2 fields, got %d", path, line, len(fields))
		}
	}
	if serr := scanner.Err(); serr != nil {
		return nil, errors.Wrapf(serr, "whitelist %s", path)
	}
	return b.Build(), nil
}
