package whitelist

import (
	"sync"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"

	"github.com/grailbio/sctrimer/util"
)

// Metric selects the distance used to find whitelist neighbors.
type Metric uint8

const (
	// Hamming counts substitutions only. This is the default: barcodes are
	// fixed length, and substitution is the dominant surviving error after
	// repeat-group voting.
	Hamming Metric = iota
	// Levenshtein additionally tolerates insertions and deletions.
	Levenshtein
)

func (m Metric) String() string {
	switch m {
	case Hamming:
		return "hamming"
	case Levenshtein:
		return "levenshtein"
	}
	return "invalid"
}

// CorrectOpts parameterizes barcode correction.
type CorrectOpts struct {
	// Metric is the edit distance definition.
	Metric Metric
	// MaxDist is the maximum distance at which an observed barcode may be
	// snapped onto a whitelist entry.
	MaxDist int
}

// DefaultCorrectOpts sets the default values to CorrectOpts.
var DefaultCorrectOpts = CorrectOpts{
	Metric:  Hamming,
	MaxDist: 1,
}

// Verdict classifies one correction attempt.
type Verdict uint8

const (
	// Exact means the observed barcode is itself whitelisted.
	Exact Verdict = iota
	// Corrected means exactly one whitelist entry achieves the minimal
	// distance, which is within MaxDist.
	Corrected
	// Ambiguous means two or more whitelist entries tie at the minimal
	// distance within MaxDist. Ties are reported, never resolved by
	// guessing.
	Ambiguous
	// NoMatch means no whitelist entry lies within MaxDist.
	NoMatch
)

func (v Verdict) String() string {
	switch v {
	case Exact:
		return "exact"
	case Corrected:
		return "corrected"
	case Ambiguous:
		return "ambiguous"
	case NoMatch:
		return "no-match"
	}
	return "invalid"
}

// Result is the outcome of correcting one observed barcode.
type Result struct {
	// Barcode is the whitelisted barcode for Exact and Corrected verdicts,
	// and the uncorrected observation otherwise.
	Barcode string
	// Dist is 0 for Exact, the minimal distance for Corrected and
	// Ambiguous, and -1 for NoMatch.
	Dist int
	// Verdict classifies the attempt.
	Verdict Verdict
}

// correctionAlphabet is the substitution alphabet for Hamming neighbor
// enumeration. Decoded barcodes contain no other letters.
var correctionAlphabet = []byte("ACGTN")

const memoShards = 64

type memoShard struct {
	mu   sync.Mutex
	memo map[string]Result
}

// Corrector snaps observed barcodes onto a whitelist. An observation is
// corrected only when exactly one whitelist entry achieves the minimal
// distance within MaxDist. Correctors are safe for concurrent use; verdicts
// for repeated observations are memoized in hash-sharded caches.
type Corrector struct {
	wl     *Whitelist
	opts   CorrectOpts
	shards [memoShards]memoShard
}

// NewCorrector builds a Corrector over wl. An empty whitelist is a
// structural error, not a per-read condition: correction cannot start
// without one.
func NewCorrector(wl *Whitelist, opts CorrectOpts) (*Corrector, error) {
	if wl == nil || wl.Len() == 0 {
		return nil, errors.E("corrector: empty whitelist")
	}
	if opts.MaxDist < 0 {
		return nil, errors.E("corrector: negative MaxDist", opts.MaxDist)
	}
	c := &Corrector{wl: wl, opts: opts}
	for i := range c.shards {
		c.shards[i].memo = map[string]Result{}
	}
	return c, nil
}

// Correct resolves one observed barcode against the whitelist. Whitelisted
// observations come back Exact unconditionally, so correction is idempotent.
func (c *Corrector) Correct(observed string) Result {
	if c.wl.Contains(observed) {
		return Result{Barcode: observed, Dist: 0, Verdict: Exact}
	}
	shard := &c.shards[farm.Hash32(gunsafe.StringToBytes(observed))%memoShards]
	shard.mu.Lock()
	r, ok := shard.memo[observed]
	shard.mu.Unlock()
	if ok {
		return r
	}
	r = c.search(observed)
	shard.mu.Lock()
	shard.memo[observed] = r
	shard.mu.Unlock()
	return r
}

func (c *Corrector) search(observed string) Result {
	if c.opts.Metric == Levenshtein {
		return c.searchLevenshtein(observed)
	}
	return c.searchHamming(observed)
}

// searchHamming enumerates the Hamming sphere around observed one distance
// level at a time, stopping at the first level containing whitelist hits.
// That level is the minimal distance, so the unique-neighbor rule needs no
// scan of the rest of the whitelist.
func (c *Corrector) searchHamming(observed string) Result {
	buf := []byte(observed)
	var hits []string
	for d := 1; d <= c.opts.MaxDist; d++ {
		hits = hits[:0]
		c.enumerate(buf, 0, d, &hits)
		if len(hits) == 1 {
			return Result{Barcode: hits[0], Dist: d, Verdict: Corrected}
		}
		if len(hits) > 1 {
			return Result{Barcode: observed, Dist: d, Verdict: Ambiguous}
		}
	}
	return Result{Barcode: observed, Dist: -1, Verdict: NoMatch}
}

// enumerate appends to hits every whitelisted string at Hamming distance
// exactly d from buf, substituting positions from start on.
func (c *Corrector) enumerate(buf []byte, start, d int, hits *[]string) {
	if d == 0 {
		if c.wl.Contains(string(buf)) {
			*hits = append(*hits, string(buf))
		}
		return
	}
	for i := start; i+d <= len(buf); i++ {
		orig := buf[i]
		for _, b := range correctionAlphabet {
			if b == orig {
				continue
			}
			buf[i] = b
			c.enumerate(buf, i+1, d-1, hits)
		}
		buf[i] = orig
	}
}

// searchLevenshtein scans the whitelist tracking the minimal edit distance
// and whether it is unique.
func (c *Corrector) searchLevenshtein(observed string) Result {
	minDist, nAtMin := c.opts.MaxDist+1, 0
	var best string
	for i := range c.wl.Entries {
		e := &c.wl.Entries[i]
		// Length difference lower-bounds the edit distance.
		if diff := len(e.Barcode) - len(observed); diff > minDist || -diff > minDist {
			continue
		}
		d := util.Levenshtein(observed, e.Barcode)
		switch {
		case d < minDist:
			minDist, nAtMin, best = d, 1, e.Barcode
		case d == minDist:
			nAtMin++
		}
	}
	if minDist <= c.opts.MaxDist {
		if nAtMin == 1 {
			return Result{Barcode: best, Dist: minDist, Verdict: Corrected}
		}
		return Result{Barcode: observed, Dist: minDist, Verdict: Ambiguous}
	}
	return Result{Barcode: observed, Dist: -1, Verdict: NoMatch}
}
