// Package count aggregates per-molecule counts into a sparse cell-by-feature
// matrix with stable, lexicographically ordered labels.
package count

import (
	"encoding/binary"
	"sort"

	"github.com/minio/highwayhash"
)

// KeyFunc projects a raw feature label into the counting feature space.
// Identity (nil) counts at transcript level; a transcript-to-gene map (see
// LoadFeatureMap) counts at gene level. Both matrices derive from the same
// entry stream by varying the KeyFunc.
type KeyFunc func(feature string) string

type pair struct {
	cell    string
	feature string
}

// Builder accumulates sparse (cell, feature) counts. Additions with the same
// key sum. A Builder is not safe for concurrent use; build one per shard and
// Merge.
type Builder struct {
	key    KeyFunc
	counts map[pair]int64
}

// NewBuilder returns an empty Builder. key may be nil for the identity
// projection.
func NewBuilder(key KeyFunc) *Builder {
	return &Builder{key: key, counts: make(map[pair]int64)}
}

// Add records n molecules for (cell, feature). The feature label is projected
// through the Builder's KeyFunc before accumulation.
func (b *Builder) Add(cell, feature string, n int64) {
	if b.key != nil {
		feature = b.key(feature)
	}
	b.counts[pair{cell: cell, feature: feature}] += n
}

// Merge folds other's accumulated counts into b, summing shared keys. Merge
// is commutative and associative: any merge tree over the same shards yields
// the same Build result. Projections have already been applied by the other
// Builder's Add, so builders with different KeyFuncs merge their projected
// counts as-is.
func (b *Builder) Merge(other *Builder) {
	for k, v := range other.counts {
		b.counts[k] += v
	}
}

// Len returns the number of distinct (cell, feature) keys accumulated so far.
func (b *Builder) Len() int { return len(b.counts) }

// Entry is one nonzero matrix cell in label-index space.
type Entry struct {
	// Row indexes Matrix.Cells, Col indexes Matrix.Features. Both 0-based.
	Row int
	Col int
	// Value is the molecule count.
	Value int64
}

// Matrix is the frozen triplet form of the accumulated counts: sorted labels
// plus (row, col, value) entries in row-major order. Pairs never counted are
// absent, not explicit zeros.
type Matrix struct {
	Cells    []string
	Features []string
	Entries  []Entry
}

// Build freezes the accumulated counts. Labels ascend lexicographically and
// entries are sorted by (row, col), so the result is independent of insertion
// and merge order. Keys whose counts sum to zero are dropped.
func (b *Builder) Build() *Matrix {
	cellIndex := make(map[string]int)
	featureIndex := make(map[string]int)
	for k, v := range b.counts {
		if v == 0 {
			continue
		}
		cellIndex[k.cell] = 0
		featureIndex[k.feature] = 0
	}
	m := &Matrix{
		Cells:    sortedLabels(cellIndex),
		Features: sortedLabels(featureIndex),
		Entries:  make([]Entry, 0, len(b.counts)),
	}
	for k, v := range b.counts {
		if v == 0 {
			continue
		}
		m.Entries = append(m.Entries, Entry{
			Row:   cellIndex[k.cell],
			Col:   featureIndex[k.feature],
			Value: v,
		})
	}
	sort.Slice(m.Entries, func(i, j int) bool {
		if m.Entries[i].Row != m.Entries[j].Row {
			return m.Entries[i].Row < m.Entries[j].Row
		}
		return m.Entries[i].Col < m.Entries[j].Col
	})
	return m
}

// sortedLabels sorts the keys of index and rewrites its values to the sorted
// positions.
func sortedLabels(index map[string]int) []string {
	labels := make([]string, 0, len(index))
	for s := range index {
		labels = append(labels, s)
	}
	sort.Strings(labels)
	for i, s := range labels {
		index[s] = i
	}
	return labels
}

// Checksum returns a stable fingerprint of the matrix: equal matrices have
// equal checksums whatever partition or merge order produced them.
func (m *Matrix) Checksum() [highwayhash.Size]byte {
	zeroSeed := [highwayhash.Size]byte{}
	buf := make([]byte, 0, 24*len(m.Entries))
	appendInt := func(v int64) {
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v))
		buf = append(buf, tmp[:]...)
	}
	appendLabels := func(labels []string) {
		appendInt(int64(len(labels)))
		for _, s := range labels {
			buf = append(buf, s...)
			buf = append(buf, 0)
		}
	}
	appendLabels(m.Cells)
	appendLabels(m.Features)
	appendInt(int64(len(m.Entries)))
	for _, e := range m.Entries {
		appendInt(int64(e.Row))
		appendInt(int64(e.Col))
		appendInt(e.Value)
	}
	return highwayhash.Sum(buf, zeroSeed[:])
}
