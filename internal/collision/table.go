// Package collision assigns slots to distinct byte contents.
//
// Contents are bucketed by a 64-bit hash; a lookup compares the bytes of every
// candidate slot of the bucket, so two different contents sharing a hash get
// different slots.
package collision

import (
	"bytes"

	"github.com/arloliu/structarray/internal/hash"
)

// Table maps distinct keys to dense slot numbers, each slot carrying a value.
//
// Keys are not copied and must not be modified after insertion. A Table is not
// safe for concurrent use.
type Table[V any] struct {
	hash       hash.Func
	buckets    map[uint64][]int // hash -> candidate slots
	keys       [][]byte
	values     []V
	collisions int
}

// NewTable creates an empty table. A nil fn uses xxHash64.
func NewTable[V any](fn hash.Func) *Table[V] {
	if fn == nil {
		fn = hash.Bytes
	}

	return &Table[V]{
		hash:    fn,
		buckets: make(map[uint64][]int),
	}
}

func (t *Table[V]) find(key []byte, h uint64) (int, bool, bool) {
	candidates := t.buckets[h]
	for _, slot := range candidates {
		if bytes.Equal(t.keys[slot], key) {
			return slot, false, true
		}
	}

	return -1, len(candidates) > 0, false
}

// Intern returns the slot of key, appending key and v as a new slot when the key
// is not present yet. added reports whether a slot was appended.
func (t *Table[V]) Intern(key []byte, v V) (slot int, added bool) {
	h := t.hash(key)

	slot, collided, ok := t.find(key, h)
	if ok {
		return slot, false
	}

	if collided {
		t.collisions++
	}

	slot = len(t.keys)
	t.keys = append(t.keys, key)
	t.values = append(t.values, v)
	t.buckets[h] = append(t.buckets[h], slot)

	return slot, true
}

// At returns the value of slot.
func (t *Table[V]) At(slot int) V {
	return t.values[slot]
}

// Key returns the key of slot.
func (t *Table[V]) Key(slot int) []byte {
	return t.keys[slot]
}

// Len returns the number of slots.
func (t *Table[V]) Len() int {
	return len(t.keys)
}

// Collisions returns how many inserted keys shared their hash with a different,
// already stored key.
func (t *Table[V]) Collisions() int {
	return t.collisions
}

// Reset clears the table, keeping its hash function.
func (t *Table[V]) Reset() {
	for k := range t.buckets {
		delete(t.buckets, k)
	}
	t.keys = t.keys[:0]
	t.values = t.values[:0]
	t.collisions = 0
}
