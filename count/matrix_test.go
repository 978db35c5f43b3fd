package count

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder(nil)
	b.Add("CELL2", "geneB", 2)
	b.Add("CELL1", "geneA", 1)
	b.Add("CELL2", "geneB", 3)
	b.Add("CELL1", "geneB", 4)
	m := b.Build()
	expect.EQ(t, m.Cells, []string{"CELL1", "CELL2"})
	expect.EQ(t, m.Features, []string{"geneA", "geneB"})
	expect.EQ(t, m.Entries, []Entry{
		{Row: 0, Col: 0, Value: 1},
		{Row: 0, Col: 1, Value: 4},
		{Row: 1, Col: 1, Value: 5},
	})
}

func TestBuilderZeroSum(t *testing.T) {
	b := NewBuilder(nil)
	b.Add("CELL1", "geneA", 0)
	b.Add("CELL2", "geneB", 1)
	m := b.Build()
	expect.EQ(t, m.Cells, []string{"CELL2"})
	expect.EQ(t, m.Features, []string{"geneB"})
	expect.EQ(t, m.Entries, []Entry{{Row: 0, Col: 0, Value: 1}})
}

func TestBuilderKeyFunc(t *testing.T) {
	geneOf := map[string]string{"tx1": "geneA", "tx2": "geneA", "tx3": "geneB"}
	b := NewBuilder(func(f string) string {
		if g, ok := geneOf[f]; ok {
			return g
		}
		return f
	})
	b.Add("CELL1", "tx1", 1)
	b.Add("CELL1", "tx2", 2)
	b.Add("CELL1", "tx3", 3)
	b.Add("CELL1", "geneB", 1)
	m := b.Build()
	expect.EQ(t, m.Features, []string{"geneA", "geneB"})
	expect.EQ(t, m.Entries, []Entry{
		{Row: 0, Col: 0, Value: 3},
		{Row: 0, Col: 1, Value: 4},
	})
}

func TestEmptyBuilder(t *testing.T) {
	m := NewBuilder(nil).Build()
	expect.EQ(t, len(m.Cells), 0)
	expect.EQ(t, len(m.Features), 0)
	expect.EQ(t, len(m.Entries), 0)
}

// TestMergeRandomPartition verifies that any partition of the entry stream
// merged in any order produces the same matrix and checksum as serial
// accumulation.
func TestMergeRandomPartition(t *testing.T) {
	rnd := rand.New(rand.NewSource(0))
	type add struct {
		cell, feature string
		n             int64
	}
	adds := make([]add, 2000)
	for i := range adds {
		adds[i] = add{
			cell:    fmt.Sprintf("CELL%03d", rnd.Intn(60)),
			feature: fmt.Sprintf("gene%02d", rnd.Intn(30)),
			n:       int64(1 + rnd.Intn(5)),
		}
	}
	serial := NewBuilder(nil)
	for _, a := range adds {
		serial.Add(a.cell, a.feature, a.n)
	}
	want := serial.Build()
	wantSum := want.Checksum()

	for trial := 0; trial < 10; trial++ {
		shards := make([]*Builder, 1+rnd.Intn(7))
		for i := range shards {
			shards[i] = NewBuilder(nil)
		}
		for _, a := range adds {
			shards[rnd.Intn(len(shards))].Add(a.cell, a.feature, a.n)
		}
		// Fold random shard pairs until one remains.
		for len(shards) > 1 {
			i := rnd.Intn(len(shards))
			j := rnd.Intn(len(shards))
			for j == i {
				j = rnd.Intn(len(shards))
			}
			shards[i].Merge(shards[j])
			shards[j] = shards[len(shards)-1]
			shards = shards[:len(shards)-1]
		}
		got := shards[0].Build()
		expect.EQ(t, got, want)
		expect.EQ(t, got.Checksum(), wantSum)
	}
}

func TestChecksumDistinguishes(t *testing.T) {
	build := func(cell, feature string, n int64) *Matrix {
		b := NewBuilder(nil)
		b.Add(cell, feature, n)
		return b.Build()
	}
	m1 := build("CELL1", "geneA", 1)
	m2 := build("CELL1", "geneA", 2)
	m3 := build("CELL1", "geneB", 1)
	expect.True(t, m1.Checksum() != m2.Checksum())
	expect.True(t, m1.Checksum() != m3.Checksum())
	expect.True(t, m2.Checksum() != m3.Checksum())
	expect.EQ(t, m1.Checksum(), build("CELL1", "geneA", 1).Checksum())
}
