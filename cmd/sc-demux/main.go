package main

// sc-demux demultiplexes trimer-encoded single-cell reads. It decodes cell
// barcodes and UMIs from FASTQ chunks, builds a barcode whitelist, emits
// corrected reads, and collapses feature-tagged alignments into a molecule
// count matrix.
//
// Usage:
//   sc-demux demux -output-dir=out r1.fastq.gz r2.fastq.gz
//   sc-demux collapse -output-dir=out aligned.bam

import (
	"context"
	"fmt"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/cmdline"

	"github.com/grailbio/sctrimer/collapse"
	"github.com/grailbio/sctrimer/count"
	"github.com/grailbio/sctrimer/demux"
	"github.com/grailbio/sctrimer/trimer"
	"github.com/grailbio/sctrimer/whitelist"
)

func parseMetric(s string) (whitelist.Metric, error) {
	switch s {
	case "hamming":
		return whitelist.Hamming, nil
	case "levenshtein":
		return whitelist.Levenshtein, nil
	}
	return 0, fmt.Errorf("unknown metric %q (want hamming or levenshtein)", s)
}

func parsePolicy(s string) (collapse.Policy, error) {
	switch s {
	case "unique":
		return collapse.Unique, nil
	case "greedy":
		return collapse.Greedy, nil
	}
	return 0, fmt.Errorf("unknown policy %q (want unique or greedy)", s)
}

func parseTag(s string) (sam.Tag, error) {
	if len(s) != 2 {
		return sam.Tag{}, fmt.Errorf("aux tag %q must be two characters", s)
	}
	return sam.Tag{s[0], s[1]}, nil
}

func newCmdDemux() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "demux",
		Short:    "Decode, whitelist, and correct FASTQ chunks",
		ArgsName: "fastq...",
	}
	topts := trimer.DefaultOpts
	copts := whitelist.DefaultCorrectOpts
	outputDir := cmd.Flags.String("output-dir", ".", "Directory receiving every artifact")
	catalog := cmd.Flags.String("catalog", "", `External barcode catalog. When set, correction runs against the
membership union of the built whitelist and the catalog.`)
	metric := cmd.Flags.String("metric", copts.Metric.String(), "Correction distance: hamming or levenshtein")
	cmd.Flags.IntVar(&topts.Repeat, "repeat", topts.Repeat, "Redundancy factor of the trimer encoding")
	cmd.Flags.IntVar(&topts.BarcodeLen, "barcode-len", topts.BarcodeLen, "Decoded cell barcode length, in bases")
	cmd.Flags.IntVar(&topts.UMILen, "umi-len", topts.UMILen, "Decoded UMI length, in bases")
	cmd.Flags.IntVar(&topts.AnchorMinRun, "anchor-min-run", topts.AnchorMinRun, "Minimum poly-A run length anchoring the tag window")
	cmd.Flags.IntVar(&topts.AnchorMaxMiss, "anchor-max-miss", topts.AnchorMaxMiss, "Non-A bases tolerated inside the anchor run")
	cmd.Flags.IntVar(&copts.MaxDist, "max-dist", copts.MaxDist, "Maximum correction distance")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("demux takes one or more FASTQ paths")
		}
		m, err := parseMetric(*metric)
		if err != nil {
			return err
		}
		copts.Metric = m
		stats, err := demux.Run(vcontext.Background(), demux.Opts{
			Chunks:      argv,
			OutputDir:   *outputDir,
			Trimer:      topts,
			Correct:     copts,
			CatalogPath: *catalog,
		})
		if err != nil {
			return err
		}
		log.Printf("demux: %d reads, %d decoded, %d whitelisted barcodes, %d reads emitted",
			stats.Decode.Reads, stats.Decode.Decoded, stats.Whitelist,
			stats.Correct.Exact+stats.Correct.Corrected)
		return nil
	})
	return cmd
}

func newCmdWhitelist() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "whitelist",
		Short: `Merge tag streams and whitelist files into one whitelist.
Inputs ending in .tags are scanned as tag streams, contributing one
observation per decoded read; anything else is parsed as a whitelist or
catalog file.`,
		ArgsName: "input...",
	}
	output := cmd.Flags.String("o", "whitelist.tsv", "Output whitelist path")
	union := cmd.Flags.Bool("union", false, "Zero every count: membership union instead of frequency merge")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("whitelist takes one or more tag stream or whitelist paths")
		}
		ctx := vcontext.Background()
		b := whitelist.NewBuilder()
		for _, path := range argv {
			if strings.HasSuffix(path, ".tags") {
				if err := addTagStream(ctx, b, path); err != nil {
					return err
				}
				continue
			}
			wl, err := whitelist.Read(ctx, path)
			if err != nil {
				return err
			}
			for _, e := range wl.Entries {
				b.AddCount(e.Barcode, e.Count)
			}
		}
		wl := b.Build()
		if *union {
			wl = whitelist.Union(wl)
		}
		if err := whitelist.Write(ctx, *output, wl); err != nil {
			return err
		}
		log.Printf("whitelist: %d barcodes -> %s", wl.Len(), *output)
		return nil
	})
	return cmd
}

// addTagStream registers one observation per tag in the stream.
func addTagStream(ctx context.Context, b *whitelist.Builder, path string) error {
	tags, err := trimer.NewTagScanner(ctx, path)
	if err != nil {
		return err
	}
	for tags.Scan() {
		b.Add(tags.Tag().Barcode)
	}
	err = tags.Err()
	if cerr := tags.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

func newCmdCorrect() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "correct",
		Short: `Rerun the correction pass from decode artifacts.
The FASTQ paths must be the decode run's chunks, in the same order, and
the tag streams must already exist under -output-dir.`,
		ArgsName: "fastq...",
	}
	copts := whitelist.DefaultCorrectOpts
	outputDir := cmd.Flags.String("output-dir", ".", "Directory holding the tag streams and receiving corrected FASTQ")
	wlPath := cmd.Flags.String("whitelist", "", "Whitelist path. By default set to <output-dir>/whitelist.tsv")
	metric := cmd.Flags.String("metric", copts.Metric.String(), "Correction distance: hamming or levenshtein")
	cmd.Flags.IntVar(&copts.MaxDist, "max-dist", copts.MaxDist, "Maximum correction distance")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("correct takes one or more FASTQ paths")
		}
		m, err := parseMetric(*metric)
		if err != nil {
			return err
		}
		copts.Metric = m
		path := *wlPath
		if path == "" {
			path = demux.WhitelistPath(*outputDir)
		}
		ctx := vcontext.Background()
		wl, err := whitelist.Read(ctx, path)
		if err != nil {
			return err
		}
		stats, err := demux.CorrectChunks(ctx, demux.Opts{
			Chunks:    argv,
			OutputDir: *outputDir,
			Correct:   copts,
		}, wl)
		if err != nil {
			return err
		}
		log.Printf("correct: %d observed, %d exact, %d corrected, %d dropped",
			stats.Observed, stats.Exact, stats.Corrected, stats.Ambiguous+stats.NoMatch)
		return nil
	})
	return cmd
}

func newCmdCollapse() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "collapse",
		Short:    "Collapse feature-tagged alignments into a molecule count matrix",
		ArgsName: "alignments...",
	}
	copts := collapse.DefaultOpts
	outputDir := cmd.Flags.String("output-dir", ".", "Directory receiving the matrix files")
	featureTag := cmd.Flags.String("feature-tag", "XT", "Aux tag holding the feature assignment")
	samInput := cmd.Flags.Bool("sam", false, "Read SAM instead of BAM")
	featureMap := cmd.Flags.String("feature-map", "", `Optional feature projection TSV (feature<TAB>projected), e.g. a
transcript-to-gene table. Counts land on the projected labels.`)
	policy := cmd.Flags.String("policy", copts.Policy.String(), "UMI collapse policy: unique or greedy")
	cmd.Flags.IntVar(&copts.MaxDist, "umi-max-dist", copts.MaxDist, "Maximum Hamming distance merged by the greedy policy")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("collapse takes one or more BAM/SAM paths")
		}
		p, err := parsePolicy(*policy)
		if err != nil {
			return err
		}
		copts.Policy = p
		tag, err := parseTag(*featureTag)
		if err != nil {
			return err
		}
		ctx := vcontext.Background()
		groups := collapse.NewGroupMap()
		scanStats, err := collapse.ScanAlignmentsAll(ctx, argv, collapse.ScanOpts{FeatureTag: tag, SAM: *samInput}, groups)
		if err != nil {
			return err
		}
		var key count.KeyFunc
		if *featureMap != "" {
			if key, err = count.LoadFeatureMap(ctx, *featureMap); err != nil {
				return err
			}
		}
		builder := count.NewBuilder(key)
		collapseStats, err := collapse.CollapseAll(groups, copts, func(g collapse.Group, mols []collapse.Molecule) {
			builder.Add(g.Cell, g.Feature, int64(len(mols)))
		})
		if err != nil {
			return err
		}
		m := builder.Build()
		if err := count.Write(ctx, m, *outputDir); err != nil {
			return err
		}
		stats := scanStats.Merge(collapseStats)
		log.Printf("collapse: %d alignments, %d groups, %d molecules, %dx%d matrix",
			stats.Alignments, stats.Groups, stats.Molecules, len(m.Cells), len(m.Features))
		return nil
	})
	return cmd
}

func newCmdStats() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "stats",
		Short:    "Print the trailer stats of tag streams",
		ArgsName: "tags...",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("stats takes one or more tag stream paths")
		}
		ctx := vcontext.Background()
		for _, path := range argv {
			tags, err := trimer.NewTagScanner(ctx, path)
			if err != nil {
				return err
			}
			opts, stats := tags.Opts(), tags.Stats()
			if err := tags.Close(ctx); err != nil {
				return err
			}
			fmt.Printf("%s: repeat=%d barcode-len=%d umi-len=%d anchor-min-run=%d anchor-max-miss=%d\n",
				path, opts.Repeat, opts.BarcodeLen, opts.UMILen, opts.AnchorMinRun, opts.AnchorMaxMiss)
			fmt.Printf("  %d reads in total\n", stats.Reads)
			fmt.Printf("  %d reversed\n", stats.Reversed)
			fmt.Printf("  %d unanchored\n", stats.Unanchored)
			fmt.Printf("  %d truncated\n", stats.Truncated)
			fmt.Printf("  %d ambiguous barcode\n", stats.AmbiguousBarcode)
			fmt.Printf("  %d ambiguous UMI\n", stats.AmbiguousUMI)
			fmt.Printf("  %d decoded\n", stats.Decoded)
		}
		return nil
	})
	return cmd
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "sc-demux",
			Short:    "Demultiplex trimer-encoded single-cell reads",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdDemux(),
				newCmdWhitelist(),
				newCmdCorrect(),
				newCmdCollapse(),
				newCmdStats(),
			},
		})
}
