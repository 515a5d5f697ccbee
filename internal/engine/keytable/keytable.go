// Package keytable implements the key assignment policy shared by every
// engine's internal graph/session state: the next key is the last
// existing key plus one, or zero when the table is empty. Tombstones
// left by deletions are never reused until the table is emptied.
package keytable

import "sort"

// Table is a generic uint32-keyed map with "last key + 1" assignment.
// It is not safe for concurrent use; callers serialize access with their
// own lock (engines hold one guard around all of their state).
type Table[V any] struct {
	entries map[uint32]V
}

// New returns an empty Table.
func New[V any]() *Table[V] {
	return &Table[V]{entries: make(map[uint32]V)}
}

// Insert assigns the next key per policy, stores value under it, and
// returns the assigned key.
func (t *Table[V]) Insert(value V) uint32 {
	key := t.nextKey()
	t.entries[key] = value
	return key
}

// Get returns the value stored under key, if any.
func (t *Table[V]) Get(key uint32) (V, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Set stores value under key, overwriting any existing value without
// reassigning the key.
func (t *Table[V]) Set(key uint32, value V) {
	t.entries[key] = value
}

// Delete removes key. It is a no-op if key is absent.
func (t *Table[V]) Delete(key uint32) {
	delete(t.entries, key)
}

// Len returns the number of live entries.
func (t *Table[V]) Len() int {
	return len(t.entries)
}

func (t *Table[V]) nextKey() uint32 {
	if len(t.entries) == 0 {
		return 0
	}

	keys := make([]uint32, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys[len(keys)-1] + 1
}
