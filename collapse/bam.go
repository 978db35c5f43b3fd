package collapse

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

var (
	cbTag = sam.Tag{'C', 'B'}
	ubTag = sam.Tag{'U', 'B'}
)

// ScanOpts configures alignment ingestion.
type ScanOpts struct {
	// FeatureTag is the aux tag carrying the feature (gene or transcript)
	// assignment.
	FeatureTag sam.Tag
	// SAM forces SAM text parsing. By default the format is chosen from the
	// path extension, BAM unless the path ends in ".sam".
	SAM bool
}

// DefaultScanOpts reads the feature from the XT tag, the convention of the
// upstream feature-assignment tools.
var DefaultScanOpts = ScanOpts{
	FeatureTag: sam.Tag{'X', 'T'},
}

// recordReader is implemented by both sam.Reader and bam.Reader.
type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

// ScanAlignments streams feature-tagged alignments from a BAM or SAM file into
// the group map. Unmapped records are skipped; records without a usable
// feature tag or cell/UMI annotation are skipped and tallied as MalformedTag.
// Multiple files may be scanned into the same map concurrently.
func ScanAlignments(ctx context.Context, path string, opts ScanOpts, groups *GroupMap) (stats Stats, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return Stats{}, err
	}
	defer file.CloseAndReport(ctx, in, &err)

	var reader recordReader
	if opts.SAM || strings.HasSuffix(path, ".sam") {
		reader, err = sam.NewReader(in.Reader(ctx))
	} else {
		reader, err = bam.NewReader(in.Reader(ctx), 1)
	}
	if err != nil {
		return Stats{}, errors.E(err, "open alignments:", path)
	}
	for {
		var rec *sam.Record
		rec, err = reader.Read()
		if rec == nil {
			if err != io.EOF {
				return stats, errors.E(err, "read alignments:", path)
			}
			err = nil
			break
		}
		stats.Alignments++
		if rec.Flags&sam.Unmapped != 0 {
			stats.Unmapped++
			continue
		}
		r, ok := taggedRead(rec, opts.FeatureTag)
		if !ok {
			stats.MalformedTag++
			continue
		}
		groups.Add(r)
	}
	return stats, nil
}

// ScanAlignmentsAll scans several alignment files into the same group map,
// one goroutine per file. Groups spanning files accumulate as if the inputs
// had been concatenated. Returns the summed stats and the first scan error.
func ScanAlignmentsAll(ctx context.Context, paths []string, opts ScanOpts, groups *GroupMap) (Stats, error) {
	var (
		mu    sync.Mutex
		total Stats
	)
	e := errors.Once{}
	wg := sync.WaitGroup{}
	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			stats, err := ScanAlignments(ctx, path, opts, groups)
			e.Set(err)
			mu.Lock()
			total = total.Merge(stats)
			mu.Unlock()
		}(path)
	}
	wg.Wait()
	return total, e.Err()
}

// taggedRead extracts (cell, UMI, feature) from an alignment. The feature
// comes from featureTag. Cell and UMI come from the CB/UB aux tags when both
// are present, else from the read-name suffix written by the demux stage
// (name_CELL_UMI).
func taggedRead(r *sam.Record, featureTag sam.Tag) (TaggedRead, bool) {
	aux := r.AuxFields.Get(featureTag)
	if aux == nil {
		return TaggedRead{}, false
	}
	feature, ok := aux.Value().(string)
	if !ok || feature == "" {
		return TaggedRead{}, false
	}
	var cell, umi string
	if aux := r.AuxFields.Get(cbTag); aux != nil {
		cell, _ = aux.Value().(string)
	}
	if aux := r.AuxFields.Get(ubTag); aux != nil {
		umi, _ = aux.Value().(string)
	}
	if cell == "" || umi == "" {
		if cell, umi, ok = splitAnnotatedName(r.Name); !ok {
			return TaggedRead{}, false
		}
	}
	return TaggedRead{Cell: cell, UMI: umi, Feature: feature}, true
}

// splitAnnotatedName parses the trailing _CELL_UMI annotation. The original
// read name may itself contain underscores, so the last two fields win.
func splitAnnotatedName(name string) (cell, umi string, ok bool) {
	j := strings.LastIndexByte(name, '_')
	if j < 0 {
		return "", "", false
	}
	i := strings.LastIndexByte(name[:j], '_')
	if i < 0 {
		return "", "", false
	}
	cell, umi = name[i+1:j], name[j+1:]
	return cell, umi, cell != "" && umi != ""
}
