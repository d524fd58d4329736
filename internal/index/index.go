// Package index implements termkv's Key Index: a concurrent, lock-free-read
// map from string key to the log Position of its most recent live Set.
//
// Built over github.com/launix-de/NonLockingReadMap, a generic
// copy-on-write sorted map: reads are wait-free pointer loads, and the
// single-writer discipline the engine already enforces means the map's
// CAS-retried writes never contend with each other.
package index

import (
	"github.com/launix-de/NonLockingReadMap"

	"github.com/termkv/termkv/internal/record"
)

// entry satisfies NonLockingReadMap.KeyGetter[string]. Methods use value
// receivers: the map's generic constraint requires the element type
// itself (not a pointer to it) to implement the interface.
type entry struct {
	key string
	pos record.Position
}

func (e entry) GetKey() string { return e.key }

// ComputeSize estimates the entry's memory footprint: the key string plus
// the fixed-size Position and bookkeeping overhead.
func (e entry) ComputeSize() uint {
	return uint(len(e.key)) + 40
}

// KeyPosition is one (key, Position) pair from a stable traversal.
type KeyPosition struct {
	Key string
	Pos record.Position
}

// Index is the Key Index: single-writer, many-reader, lock-free on the
// read path.
type Index struct {
	m NonLockingReadMap.NonLockingReadMap[entry, string]
}

// New returns an empty Index.
func New() *Index {
	return &Index{m: NonLockingReadMap.New[entry, string]()}
}

// Get performs a lock-free point lookup.
func (idx *Index) Get(key string) (record.Position, bool) {
	e := idx.m.Get(key)
	if e == nil {
		return record.Position{}, false
	}
	return e.pos, true
}

// Set inserts or overwrites key's Position, returning the displaced
// Position if one existed. Callers (the writer) must serialize calls to
// Set/Remove among themselves; concurrent Get calls are always safe.
func (idx *Index) Set(key string, pos record.Position) (prev record.Position, had bool) {
	displaced := idx.m.Set(&entry{key: key, pos: pos})
	if displaced == nil {
		return record.Position{}, false
	}
	return displaced.pos, true
}

// Remove deletes key, returning its prior Position if present.
func (idx *Index) Remove(key string) (prev record.Position, had bool) {
	removed := idx.m.Remove(key)
	if removed == nil {
		return record.Position{}, false
	}
	return removed.pos, true
}

// All returns a stable, key-ordered snapshot of every live entry — the
// traversal compaction walks to rewrite live records.
func (idx *Index) All() []KeyPosition {
	items := idx.m.GetAll()
	out := make([]KeyPosition, len(items))
	for i, e := range items {
		out[i] = KeyPosition{Key: e.key, Pos: e.pos}
	}
	return out
}

// Len reports the number of live keys.
func (idx *Index) Len() int {
	return len(idx.m.GetAll())
}
