package collapse

import (
	"sort"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/unsafe"
)

// TaggedRead is one aligned read annotated with its corrected cell barcode,
// UMI, and assigned feature (gene or transcript).
type TaggedRead struct {
	Cell    string
	UMI     string
	Feature string
}

// Group holds the reads sharing one (cell, feature) pair. Support maps each
// distinct UMI string to the number of reads carrying it.
type Group struct {
	Cell    string
	Feature string
	Support map[string]int64
}

const numGroupMapShards = 256

type groupKey struct {
	cell    string
	feature string
}

type groupShard struct {
	mu     sync.Mutex
	groups map[groupKey]map[string]int64
}

// GroupMap is a sharded, thread-safe accumulator of reads into molecule
// groups. Multiple feeders may Add concurrently.
type GroupMap struct {
	shards [numGroupMapShards]groupShard
}

func NewGroupMap() *GroupMap {
	m := &GroupMap{}
	for i := 0; i < len(m.shards); i++ {
		m.shards[i].groups = make(map[groupKey]map[string]int64)
	}
	return m
}

// Add records one read in its (cell, feature) group.
func (m *GroupMap) Add(r TaggedRead) {
	h := seahash.Sum64(unsafe.StringToBytes(r.Cell)) ^ seahash.Sum64(unsafe.StringToBytes(r.Feature))
	shard := &m.shards[int(h%uint64(numGroupMapShards))]

	key := groupKey{cell: r.Cell, feature: r.Feature}
	shard.mu.Lock()
	support, ok := shard.groups[key]
	if !ok {
		support = make(map[string]int64)
		shard.groups[key] = support
	}
	support[r.UMI]++
	shard.mu.Unlock()
}

// Len returns the number of groups. It returns a correct number iff it is
// invoked when no other thread is accessing the map.
func (m *GroupMap) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.groups)
		s.mu.Unlock()
	}
	return n
}

// Groups drains the map into a slice sorted by (cell, feature). It must only
// be called after all Add calls have completed; the returned groups share the
// accumulated support maps.
func (m *GroupMap) Groups() []Group {
	out := make([]Group, 0, m.Len())
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for key, support := range s.groups {
			out = append(out, Group{Cell: key.cell, Feature: key.feature, Support: support})
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cell != out[j].Cell {
			return out[i].Cell < out[j].Cell
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}
