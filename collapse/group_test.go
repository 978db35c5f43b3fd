package collapse

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupMap(t *testing.T) {
	m := NewGroupMap()
	for _, r := range []TaggedRead{
		{Cell: "CELL1", UMI: "AAAA", Feature: "geneB"},
		{Cell: "CELL1", UMI: "AAAA", Feature: "geneA"},
		{Cell: "CELL2", UMI: "TTTT", Feature: "geneA"},
		{Cell: "CELL1", UMI: "AAAT", Feature: "geneA"},
		{Cell: "CELL1", UMI: "AAAA", Feature: "geneA"},
	} {
		m.Add(r)
	}
	assert.Equal(t, 3, m.Len())

	groups := m.Groups()
	require.Equal(t, 3, len(groups))
	assert.Equal(t, Group{Cell: "CELL1", Feature: "geneA", Support: map[string]int64{"AAAA": 2, "AAAT": 1}}, groups[0])
	assert.Equal(t, Group{Cell: "CELL1", Feature: "geneB", Support: map[string]int64{"AAAA": 1}}, groups[1])
	assert.Equal(t, Group{Cell: "CELL2", Feature: "geneA", Support: map[string]int64{"TTTT": 1}}, groups[2])
}

// TestGroupMapConcurrent hammers the map from several feeders and checks that
// no read is lost and that the drained result is independent of feed order.
func TestGroupMapConcurrent(t *testing.T) {
	const (
		nWorkers   = 8
		nPerWorker = 10000
	)
	build := func(workerOffset int64) *GroupMap {
		m := NewGroupMap()
		wg := sync.WaitGroup{}
		for w := 0; w < nWorkers; w++ {
			wg.Add(1)
			go func(seed int64) {
				defer wg.Done()
				rnd := rand.New(rand.NewSource(seed))
				for i := 0; i < nPerWorker; i++ {
					m.Add(TaggedRead{
						Cell:    fmt.Sprintf("CELL%02d", rnd.Intn(40)),
						UMI:     fmt.Sprintf("UMI%02d", rnd.Intn(30)),
						Feature: fmt.Sprintf("gene%02d", rnd.Intn(20)),
					})
				}
			}(workerOffset + int64(w))
		}
		wg.Wait()
		return m
	}

	m := build(0)
	var total int64
	for _, g := range m.Groups() {
		for _, n := range g.Support {
			total += n
		}
	}
	assert.Equal(t, int64(nWorkers*nPerWorker), total)

	// Same reads fed by differently-seeded workers in a different
	// interleaving: workers w and nWorkers-1-w swap seeds.
	m2 := NewGroupMap()
	wg := sync.WaitGroup{}
	for w := nWorkers - 1; w >= 0; w-- {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < nPerWorker; i++ {
				m2.Add(TaggedRead{
					Cell:    fmt.Sprintf("CELL%02d", rnd.Intn(40)),
					UMI:     fmt.Sprintf("UMI%02d", rnd.Intn(30)),
					Feature: fmt.Sprintf("gene%02d", rnd.Intn(20)),
				})
			}
		}(int64(w))
	}
	wg.Wait()
	assert.Equal(t, m.Groups(), m2.Groups())
}
