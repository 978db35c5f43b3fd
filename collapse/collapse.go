// Package collapse deduplicates aligned reads into molecule counts. Reads
// sharing a (cell barcode, feature) pair form a group; within a group, UMIs
// within a small edit distance of one another are treated as sequencing errors
// of the same original molecule and merged according to the configured policy.
package collapse

import (
	"sort"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/sctrimer/util"
)

// Policy selects how UMIs within a group are merged into molecules.
type Policy int

const (
	// Unique counts every distinct UMI string as its own molecule. Strictest
	// policy; sequencing errors in the UMI inflate the molecule count.
	Unique Policy = iota
	// Greedy repeatedly picks the most-supported remaining UMI and absorbs
	// every remaining UMI within Opts.MaxDist of it.
	Greedy
)

func (p Policy) String() string {
	switch p {
	case Unique:
		return "unique"
	case Greedy:
		return "greedy"
	}
	return "invalid"
}

// Opts configures UMI collapsing.
type Opts struct {
	// Policy selects the merge strategy.
	Policy Policy
	// MaxDist is the maximum Hamming distance between a canonical UMI and the
	// UMIs absorbed into it under the Greedy policy. UMIs of different lengths
	// are never merged.
	MaxDist int
}

// DefaultOpts mirrors the common droplet pipeline settings.
var DefaultOpts = Opts{
	Policy:  Greedy,
	MaxDist: 1,
}

// Molecule is one deduplicated molecule within a group.
type Molecule struct {
	// UMI is the canonical (most supported) UMI of the merged set.
	UMI string
	// Support is the total number of reads behind this molecule, including
	// reads carrying absorbed UMI variants.
	Support int64
	// UMIs is the number of distinct UMI strings merged into this molecule,
	// the canonical one included.
	UMIs int
}

// Collapse reduces a group's UMI support map to its molecules. The result is
// deterministic for a fixed support multiset: ties on read support are broken
// by ascending UMI order, so permuting the input reads never changes the
// outcome. The support map is not modified.
func Collapse(support map[string]int64, opts Opts) []Molecule {
	if len(support) == 0 {
		return nil
	}
	if opts.Policy == Unique {
		return collapseUnique(support)
	}
	return collapseGreedy(support, opts.MaxDist)
}

// Count returns the number of molecules Collapse would produce.
func Count(support map[string]int64, opts Opts) int {
	if opts.Policy == Unique {
		return len(support)
	}
	return len(Collapse(support, opts))
}

// CollapseAll collapses every group in the map, in parallel, and invokes emit
// sequentially in ascending (cell, feature) order. Groups never interact, so
// per-group collapsing shares no state.
func CollapseAll(m *GroupMap, opts Opts, emit func(g Group, mols []Molecule)) (Stats, error) {
	groups := m.Groups()
	mols := make([][]Molecule, len(groups))
	err := traverse.Each(len(groups), func(i int) error {
		mols[i] = Collapse(groups[i].Support, opts)
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Groups: len(groups)}
	for i, g := range groups {
		stats.Molecules += len(mols[i])
		if emit != nil {
			emit(g, mols[i])
		}
	}
	return stats, nil
}

func collapseUnique(support map[string]int64) []Molecule {
	umis := sortedUMIs(support, func(u, v string) bool { return u < v })
	out := make([]Molecule, 0, len(umis))
	for _, u := range umis {
		out = append(out, Molecule{UMI: u, Support: support[u], UMIs: 1})
	}
	return out
}

// collapseGreedy implements the directional merge. UMIs are visited in order
// of descending read support (ascending UMI order on ties). Each unvisited
// UMI becomes a canonical molecule and absorbs every unvisited UMI within
// maxDist of it; absorption is not transitive, so a chain A-B-C with C beyond
// maxDist of A yields two molecules.
func collapseGreedy(support map[string]int64, maxDist int) []Molecule {
	umis := sortedUMIs(support, func(u, v string) bool {
		su, sv := support[u], support[v]
		if su != sv {
			return su > sv
		}
		return u < v
	})
	taken := make([]bool, len(umis))
	var out []Molecule
	for i, u := range umis {
		if taken[i] {
			continue
		}
		taken[i] = true
		mol := Molecule{UMI: u, Support: support[u], UMIs: 1}
		for j := i + 1; j < len(umis); j++ {
			if taken[j] || util.Hamming(u, umis[j]) > maxDist {
				continue
			}
			taken[j] = true
			mol.Support += support[umis[j]]
			mol.UMIs++
		}
		out = append(out, mol)
	}
	return out
}

func sortedUMIs(support map[string]int64, less func(u, v string) bool) []string {
	umis := make([]string, 0, len(support))
	for u := range support {
		umis = append(umis, u)
	}
	sort.Slice(umis, func(i, j int) bool { return less(umis[i], umis[j]) })
	return umis
}
