// Package demux drives read demultiplexing end to end. A run makes two
// passes over the input FASTQ chunks. The decode pass orients each read,
// majority-votes its repeat groups into a cell barcode and UMI tag, writes
// the tags to a per-chunk stream, and tallies exact barcode observations.
// At the barrier between passes the per-chunk tallies merge into a
// whitelist. The correct pass joins each tag stream back against its chunk,
// snaps barcodes onto the whitelist, and emits surviving reads with the
// tail and tag window trimmed off and the name annotated as
// name_barcode_umi.
//
// Every artifact lands under one output directory, and the pass boundary is
// restartable: the tag streams carry the decode geometry in their trailers,
// and the whitelist artifact alone reconstructs the corrector.
package demux

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/traverse"
	"github.com/klauspost/compress/gzip"

	"github.com/grailbio/sctrimer/encoding/fastq"
	"github.com/grailbio/sctrimer/trimer"
	"github.com/grailbio/sctrimer/whitelist"
)

// Opts parameterizes a demultiplexing run.
type Opts struct {
	// Chunks are the input FASTQ paths. Files with recognized compression
	// extensions are decompressed transparently. Chunk order fixes artifact
	// numbering but has no effect on any output's contents.
	Chunks []string
	// OutputDir receives every artifact: the per-chunk tag streams and
	// corrected FASTQ files, the whitelist, and the run statistics.
	OutputDir string
	// Trimer parameterizes anchor search and tag decoding.
	Trimer trimer.Opts
	// Correct parameterizes barcode correction.
	Correct whitelist.CorrectOpts
	// CatalogPath optionally names an external barcode catalog. When set,
	// correction runs against the membership union of the built whitelist
	// and the catalog, with observation counts zeroed.
	CatalogPath string
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Trimer:  trimer.DefaultOpts,
	Correct: whitelist.DefaultCorrectOpts,
}

// TagPath returns the tag stream path for chunk i under dir.
func TagPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk-%04d.tags", i))
}

// CorrectedPath returns the corrected FASTQ path for chunk i under dir.
func CorrectedPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk-%04d.fastq.gz", i))
}

// WhitelistPath returns the whitelist artifact path under dir.
func WhitelistPath(dir string) string { return filepath.Join(dir, "whitelist.tsv") }

// StatsPath returns the run statistics path under dir.
func StatsPath(dir string) string { return filepath.Join(dir, "stats.tsv") }

// Run executes a full demultiplexing run: decode, whitelist barrier,
// correct. The returned Stats are also written to StatsPath.
func Run(ctx context.Context, opts Opts) (Stats, error) {
	if len(opts.Chunks) == 0 {
		return Stats{}, errors.E("demux: no input chunks")
	}
	builders, decodeStats, err := DecodeChunks(ctx, opts)
	if err != nil {
		return Stats{}, err
	}
	wl, err := BuildWhitelist(ctx, opts, builders)
	if err != nil {
		return Stats{}, err
	}
	correctStats, err := CorrectChunks(ctx, opts, wl)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Decode: decodeStats, Whitelist: wl.Len(), Correct: correctStats}
	if err := WriteStats(ctx, StatsPath(opts.OutputDir), stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// DecodeChunks runs the decode pass over every chunk in parallel. Each
// chunk's tags land in TagPath(opts.OutputDir, i), and the returned builders
// hold the chunk's exact barcode observations, indexed like opts.Chunks.
func DecodeChunks(ctx context.Context, opts Opts) ([]*whitelist.Builder, trimer.Stats, error) {
	builders := make([]*whitelist.Builder, len(opts.Chunks))
	chunkStats := make([]trimer.Stats, len(opts.Chunks))
	err := traverse.Each(len(opts.Chunks), func(i int) error {
		b := whitelist.NewBuilder()
		s, err := decodeChunk(ctx, opts.Chunks[i], TagPath(opts.OutputDir, i), opts.Trimer, b)
		if err != nil {
			return err
		}
		builders[i], chunkStats[i] = b, s
		return nil
	})
	if err != nil {
		return nil, trimer.Stats{}, err
	}
	var total trimer.Stats
	for _, s := range chunkStats {
		total = total.Merge(s)
	}
	return builders, total, nil
}

// decodeChunk scans one FASTQ chunk, decodes each read, and writes the
// resulting tags. Reads that decode cleanly also register their barcode
// with b.
func decodeChunk(ctx context.Context, path, tagPath string, topts trimer.Opts, b *whitelist.Builder) (stats trimer.Stats, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return stats, errors.E(err, "decode:", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	tw, err := trimer.NewTagWriter(ctx, tagPath, topts)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := tw.Close(ctx, stats); cerr != nil && err == nil {
			err = cerr
		}
	}()
	scanner := fastq.NewScanner(r, fastq.All)
	var read fastq.Read
	for scanner.Scan(&read) {
		tag, anchor, outcome := trimer.Decode(&read, topts)
		stats.Add(anchor, outcome)
		if outcome != trimer.OK {
			continue
		}
		b.Add(tag.Barcode)
		tw.Write(tag)
	}
	if serr := scanner.Err(); serr != nil {
		err = errors.E(serr, "decode:", path)
	}
	return stats, err
}

// BuildWhitelist merges the per-chunk observations into one whitelist,
// folding in the external catalog when one is configured, and writes the
// whitelist artifact. Merging is order-independent, so the result does not
// depend on how the input was chunked.
func BuildWhitelist(ctx context.Context, opts Opts, builders []*whitelist.Builder) (*whitelist.Whitelist, error) {
	b := whitelist.NewBuilder()
	for _, other := range builders {
		b.Merge(other)
	}
	wl := b.Build()
	if opts.CatalogPath != "" {
		catalog, err := whitelist.Read(ctx, opts.CatalogPath)
		if err != nil {
			return nil, err
		}
		wl = whitelist.Union(wl, catalog)
	}
	if err := whitelist.Write(ctx, WhitelistPath(opts.OutputDir), wl); err != nil {
		return nil, err
	}
	return wl, nil
}

// CorrectChunks runs the correct pass over every chunk in parallel,
// resolving each chunk's tags against wl and writing the surviving reads to
// CorrectedPath(opts.OutputDir, i). The pass reads its decode geometry from
// the tag stream trailers, so it can restart from the artifacts alone.
func CorrectChunks(ctx context.Context, opts Opts, wl *whitelist.Whitelist) (whitelist.CorrectStats, error) {
	corrector, err := whitelist.NewCorrector(wl, opts.Correct)
	if err != nil {
		return whitelist.CorrectStats{}, err
	}
	chunkStats := make([]whitelist.CorrectStats, len(opts.Chunks))
	err = traverse.Each(len(opts.Chunks), func(i int) error {
		s, err := correctChunk(ctx, opts.Chunks[i], TagPath(opts.OutputDir, i), CorrectedPath(opts.OutputDir, i), corrector)
		if err != nil {
			return err
		}
		chunkStats[i] = s
		return nil
	})
	if err != nil {
		return whitelist.CorrectStats{}, err
	}
	var total whitelist.CorrectStats
	for _, s := range chunkStats {
		total = total.Merge(s)
	}
	return total, nil
}

// correctChunk joins one chunk's tag stream back against its reads. Tags
// are an order-preserving subsequence of the chunk keyed by read name, so a
// single forward pass over both streams aligns them; reads without a tag
// were dropped during decoding and are skipped here too.
func correctChunk(ctx context.Context, fastqPath, tagPath, outPath string, corrector *whitelist.Corrector) (stats whitelist.CorrectStats, err error) {
	tags, err := trimer.NewTagScanner(ctx, tagPath)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := tags.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	in, err := file.Open(ctx, fastqPath)
	if err != nil {
		return stats, errors.E(err, "correct:", fastqPath)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, fastqPath); u != nil {
		r = u
	}
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return stats, errors.E(err, "correct:", outPath)
	}
	defer file.CloseAndReport(ctx, out, &err)
	gz := gzip.NewWriter(out.Writer(ctx))
	defer func() {
		if cerr := gz.Close(); cerr != nil && err == nil {
			err = errors.E(cerr, "correct:", outPath)
		}
	}()

	topts := tags.Opts()
	scanner := fastq.NewScanner(r, fastq.All)
	fw := fastq.NewWriter(gz)
	var read fastq.Read
	for tags.Scan() {
		tag := tags.Tag()
		found := false
		for scanner.Scan(&read) {
			if read.Name() == tag.ReadID {
				found = true
				break
			}
		}
		if !found {
			if serr := scanner.Err(); serr != nil {
				return stats, errors.E(serr, "correct:", fastqPath)
			}
			return stats, errors.E("correct:", fastqPath, "no read for tag", tag.ReadID)
		}
		res := corrector.Correct(tag.Barcode)
		stats.Add(res.Verdict)
		if res.Verdict != whitelist.Exact && res.Verdict != whitelist.Corrected {
			continue
		}
		// The decode pass anchored this read, and normalization is
		// idempotent, so the anchor must come back.
		anchor, ok := trimer.Normalize(&read, topts)
		if !ok {
			return stats, errors.E("correct:", fastqPath, "anchor lost for", tag.ReadID)
		}
		read.Trim(anchor.Start)
		read.Annotate(res.Barcode, tag.UMI)
		if werr := fw.Write(&read); werr != nil {
			return stats, errors.E(werr, "correct:", outPath)
		}
	}
	if terr := tags.Err(); terr != nil {
		return stats, errors.E(terr, "correct:", tagPath)
	}
	return stats, nil
}
