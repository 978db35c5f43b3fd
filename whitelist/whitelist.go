// Package whitelist builds, merges, and serializes cell barcode whitelists
// and corrects observed barcodes against them.
package whitelist

import (
	"strings"

	"github.com/biogo/store/llrb"
)

// Entry is one whitelisted barcode together with the number of exact
// observations that supported it.
type Entry struct {
	Barcode string
	Count   int64
}

// Compare orders entries by barcode for use in llrb.
func (e *Entry) Compare(c llrb.Comparable) int {
	return strings.Compare(e.Barcode, c.(*Entry).Barcode)
}

// Builder accumulates barcode observations for one input chunk. The entries
// live in an ordered tree, so freezing a Builder never depends on insertion
// order. Builders are not safe for concurrent use: build one per chunk and
// Merge at the barrier.
type Builder struct {
	tree llrb.Tree
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Add records one observation of barcode.
func (b *Builder) Add(barcode string) { b.AddCount(barcode, 1) }

// AddCount records n observations of barcode. n may be zero to record
// membership alone.
func (b *Builder) AddCount(barcode string, n int64) {
	if got := b.tree.Get(&Entry{Barcode: barcode}); got != nil {
		got.(*Entry).Count += n
		return
	}
	b.tree.Insert(&Entry{Barcode: barcode, Count: n})
}

// Merge folds other into b, summing counts of shared barcodes. Merging is
// commutative and associative: any merge tree over the same chunks produces
// the same totals as one Builder fed all chunks.
func (b *Builder) Merge(other *Builder) {
	other.tree.Do(func(c llrb.Comparable) bool {
		e := c.(*Entry)
		b.AddCount(e.Barcode, e.Count)
		return false
	})
}

// Len returns the number of distinct barcodes added so far.
func (b *Builder) Len() int { return b.tree.Len() }

// Build freezes the accumulated observations into a Whitelist. Entries come
// out in ascending lexicographic barcode order, the tree's in-order walk.
func (b *Builder) Build() *Whitelist {
	w := &Whitelist{
		Entries: make([]Entry, 0, b.tree.Len()),
		index:   make(map[string]int, b.tree.Len()),
	}
	b.tree.Do(func(c llrb.Comparable) bool {
		e := c.(*Entry)
		w.index[e.Barcode] = len(w.Entries)
		w.Entries = append(w.Entries, *e)
		return false
	})
	return w
}

// Whitelist is an immutable barcode catalog in ascending lexicographic
// order.
type Whitelist struct {
	Entries []Entry
	index   map[string]int
}

// Len returns the number of whitelisted barcodes.
func (w *Whitelist) Len() int { return len(w.Entries) }

// Contains reports whether barcode is whitelisted.
func (w *Whitelist) Contains(barcode string) bool {
	_, ok := w.index[barcode]
	return ok
}

// Count returns the observation count recorded for barcode, or zero when
// the barcode is not whitelisted.
func (w *Whitelist) Count(barcode string) int64 {
	if i, ok := w.index[barcode]; ok {
		return w.Entries[i].Count
	}
	return 0
}

// Union returns the membership union of the given whitelists. Union is the
// external-catalog mode: counts do not rank candidates and come back zero
// for every entry. Like Merge, the result is independent of argument order.
func Union(lists ...*Whitelist) *Whitelist {
	b := NewBuilder()
	for _, l := range lists {
		for _, e := range l.Entries {
			b.AddCount(e.Barcode, 0)
		}
	}
	return b.Build()
}
