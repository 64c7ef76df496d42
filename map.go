// Copyright 2025 The Chainmap Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chainmap is a hash map over chained buckets with pluggable key
// semantics, built for environments where no native hash-table primitive
// is available and predictable performance matters more than raw speed.
//
// # Design
//
// A chainmap.Map stores entries in an array of singly linked chains. The
// array length is always a power of two between 4 and 1<<30, so a bucket
// index is computed with a mask rather than a modulo. Collisions are
// handled by prepending to the chain at the target bucket. The table
// grows when the entry count exceeds 3/4 of capacity; a custom load
// factor is accepted for API compatibility but not honored.
//
// Keys are opaque to the map. A Hasher[K] supplied at construction
// provides the raw hash and equality, making the map usable with key
// types that are not comparable in Go, or with identity rather than
// value semantics. Raw hashes are remixed with a variant of the
// single-word Wang/Jenkins avalanche function before addressing, so
// callers may use cheap raw hashes with poor low-bit entropy. One key
// per map may be designated "nil" by the Hasher; its mapping lives in a
// slot outside the table and is never hashed.
//
// Growth doubles the table and splits each chain in place between bucket
// j and bucket j|oldCapacity using one extra hash bit, without
// allocating new entries and preserving the relative order of entries
// that land in the same destination bucket. Bulk insertion paths
// (NewFrom, PutAll) pre-size the table in one step to avoid repeated
// doublings.
//
// Iterators are fail-fast: structural modification of the map between an
// iterator's creation and its next operation is detected through a
// version counter and reported by panicking with
// ErrConcurrentModification, rather than silently producing undefined
// results. Replacing the value of an existing key is not a structural
// modification. Detection is best effort in the same sense as the
// builtin map's: it is a debugging aid, not a synchronization mechanism.
//
// A Map is NOT goroutine-safe.
package chainmap

import (
	"fmt"
	"math/bits"

	"github.com/pkg/errors"
)

const (
	debug = false

	// minCapacity is the smallest capacity of an allocated table. Must be
	// a power of two greater than 1.
	minCapacity = 4

	// maxCapacity is the largest capacity of a table. Must be a power of
	// two >= minCapacity. Growth stops here.
	maxCapacity = 1 << 30

	// sentinelCapacity is the length of the placeholder table held by a
	// map that has not yet allocated (capacity 0 at construction). The
	// sentinel table is never written; it is sized at half the minimum so
	// that the first doubling produces a minimum-sized table.
	sentinelCapacity = minCapacity >> 1
)

// Entry is a single key/value node in a Map. Entries are owned by the
// map that created them; an Entry obtained from an iterator or hook
// remains valid until it is removed from its map.
type Entry[K, V any] struct {
	key   K
	value V
	// hash is the remixed (secondary) hash of key, fixed at creation.
	// The nil-key entry stores 0 here and is never addressed by hash.
	hash int32
	next *Entry[K, V]
}

// Key returns the entry's key. The key of a stored entry never changes.
func (e *Entry[K, V]) Key() K { return e.key }

// Value returns the entry's current value.
func (e *Entry[K, V]) Value() V { return e.value }

// SetValue replaces the entry's value in place and returns the previous
// value. Replacing a value is not a structural modification and does not
// disturb active iterators.
func (e *Entry[K, V]) SetValue(value V) V {
	old := e.value
	e.value = value
	return old
}

func (e *Entry[K, V]) String() string {
	return fmt.Sprintf("%v=%v", e.key, e.value)
}

// Map is a hash map from keys to values with Put, Get, Delete, and
// fail-fast iteration. Key semantics come from the Hasher supplied at
// construction. The zero value for a Map is not usable; use New.
//
// A Map is NOT goroutine-safe.
type Map[K, V any] struct {
	hasher Hasher[K]
	// valueEq compares values for ContainsValue and entry matching.
	valueEq func(a, b V) bool
	hooks   Hooks[K, V]

	// buckets is the hash table: a power-of-two number of chain heads.
	// If the map contains a mapping for the nil key, it is not
	// represented here.
	buckets []*Entry[K, V]
	// nilEntry is the entry for the reserved nil key, or nil if there is
	// no such mapping.
	nilEntry *Entry[K, V]
	// size is the number of mappings, including the nil-key mapping.
	size int
	// modCount is incremented by structural modifications (insertion of
	// a new key, removal, clear) to allow best-effort detection of
	// modification during iteration. Value replacement does not count.
	modCount int
	// threshold is the size above which the table is grown: 3/4 of
	// capacity, or -1 while the sentinel table is in place, which forces
	// the first insertion to allocate.
	threshold int
}

// New constructs a Map with the given key semantics and initial
// capacity. A capacity of 0 defers allocation until the first insertion;
// otherwise the capacity is rounded up to a power of two and clamped to
// [4, 1<<30]. New panics with ErrInvalidCapacity if initialCapacity is
// negative.
func New[K, V any](hasher Hasher[K], initialCapacity int, options ...option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		hasher:  hasher,
		valueEq: func(a, b V) bool { return any(a) == any(b) },
	}
	switch {
	case initialCapacity < 0:
		panic(errors.Wrapf(ErrInvalidCapacity, "capacity %d", initialCapacity))
	case initialCapacity == 0:
		m.buckets = make([]*Entry[K, V], sentinelCapacity)
		m.threshold = -1 // forces the first Put to replace the sentinel
	default:
		capacity := initialCapacity
		if capacity < minCapacity {
			capacity = minCapacity
		} else if capacity > maxCapacity {
			capacity = maxCapacity
		} else {
			capacity = roundUpPowerOfTwo(capacity)
		}
		m.makeTable(capacity)
	}
	for _, op := range options {
		op.apply(m)
	}
	return m
}

// NewFrom constructs a copy of src, pre-sized for src's mappings with
// room to grow, sharing src's Hasher and value equality. The copy is
// built without per-key duplicate scans since src's keys are unique.
// Iteration order of the copy is unspecified.
func NewFrom[K, V any](src *Map[K, V], options ...option[K, V]) *Map[K, V] {
	m := New[K, V](src.hasher, capacityForSize(src.Len()))
	m.valueEq = src.valueEq
	for _, op := range options {
		op.apply(m)
	}
	if e := src.nilEntry; e != nil {
		n := &Entry[K, V]{key: e.key, value: e.value}
		m.nilEntry = n
		m.size++
		if m.hooks.Created != nil {
			m.hooks.Created(n)
		}
	}
	for _, head := range src.buckets {
		for e := head; e != nil; e = e.next {
			m.putUnchecked(e.key, e.value, e.hash)
		}
	}
	return m
}

// secondaryHash remixes a raw key hash to spread bit patterns evenly
// across the bucket index, using a variant of the single-word
// Wang/Jenkins hash. The exact sequence is load-bearing: the doubling
// split relies on the remixed hash being stable across table sizes.
func secondaryHash(raw int32) int32 {
	h := uint32(raw)
	h += (h << 15) ^ 0xffffcd7d
	h ^= h >> 10
	h += h << 3
	h ^= h >> 6
	h += (h << 2) + (h << 14)
	return int32(h ^ (h >> 16))
}

// roundUpPowerOfTwo returns the least power of two >= i, for i >= 0.
func roundUpPowerOfTwo(i int) int {
	if i <= 1 {
		return i
	}
	return 1 << bits.Len(uint(i-1))
}

// capacityForSize returns a raw capacity suited to holding size mappings
// with room to grow (3/2 of size, clamped to maxCapacity). The result is
// not rounded to a power of two; the caller must do that.
func capacityForSize(size int) int {
	capacity := size + size>>1
	if capacity < 0 || capacity > maxCapacity {
		return maxCapacity
	}
	return capacity
}

// makeTable allocates a table of the given power-of-two capacity and
// sets the threshold accordingly.
func (m *Map[K, V]) makeTable(capacity int) []*Entry[K, V] {
	m.buckets = make([]*Entry[K, V], capacity)
	m.threshold = capacity>>1 + capacity>>2 // 3/4 capacity
	return m.buckets
}

// Len returns the number of mappings in the map.
func (m *Map[K, V]) Len() int { return m.size }

// Empty reports whether the map has no mappings.
func (m *Map[K, V]) Empty() bool { return m.size == 0 }

// capacity returns the length of the bucket table.
func (m *Map[K, V]) capacity() int { return len(m.buckets) }

// Get retrieves the value mapped to key, with ok=false if the key is not
// present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	if m.hasher.IsNil(key) {
		if e := m.nilEntry; e != nil {
			if m.hooks.Accessed != nil {
				m.hooks.Accessed(e)
			}
			return e.value, true
		}
		return value, false
	}
	hash := secondaryHash(m.hasher.Hash(key))
	for e := m.buckets[int(hash)&(len(m.buckets)-1)]; e != nil; e = e.next {
		if e.hash == hash && m.hasher.Equal(key, e.key) {
			if m.hooks.Accessed != nil {
				m.hooks.Accessed(e)
			}
			return e.value, true
		}
	}
	return value, false
}

// ContainsKey reports whether the map contains a mapping for key.
func (m *Map[K, V]) ContainsKey(key K) bool {
	if m.hasher.IsNil(key) {
		return m.nilEntry != nil
	}
	hash := secondaryHash(m.hasher.Hash(key))
	for e := m.buckets[int(hash)&(len(m.buckets)-1)]; e != nil; e = e.next {
		if e.hash == hash && m.hasher.Equal(key, e.key) {
			return true
		}
	}
	return false
}

// ContainsValue reports whether any mapping has the given value, by the
// map's value equality. It scans every chain and runs in O(capacity +
// size).
func (m *Map[K, V]) ContainsValue(value V) bool {
	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			if m.valueEq(value, e.value) {
				return true
			}
		}
	}
	return m.nilEntry != nil && m.valueEq(value, m.nilEntry.value)
}

// Put maps key to value and returns the previously mapped value, if any.
// Replacing the value of an existing key is done in place and is not a
// structural modification.
func (m *Map[K, V]) Put(key K, value V) (prev V, replaced bool) {
	if m.hasher.IsNil(key) {
		return m.putNilKey(key, value)
	}
	hash := secondaryHash(m.hasher.Hash(key))
	index := int(hash) & (len(m.buckets) - 1)
	for e := m.buckets[index]; e != nil; e = e.next {
		if e.hash == hash && m.hasher.Equal(key, e.key) {
			prev = e.value
			e.value = value
			if m.hooks.Accessed != nil {
				m.hooks.Accessed(e)
			}
			return prev, true
		}
	}
	// No entry for the key is present; create one. Grow before linking
	// so the entry is placed against the final capacity.
	m.modCount++
	m.size++
	if m.size > m.threshold {
		m.doubleCapacity()
		index = int(hash) & (len(m.buckets) - 1)
	}
	e := &Entry[K, V]{key: key, value: value, hash: hash, next: m.buckets[index]}
	m.buckets[index] = e
	if m.hooks.Created != nil {
		m.hooks.Created(e)
	}
	return prev, false
}

func (m *Map[K, V]) putNilKey(key K, value V) (prev V, replaced bool) {
	if e := m.nilEntry; e != nil {
		prev = e.value
		e.value = value
		if m.hooks.Accessed != nil {
			m.hooks.Accessed(e)
		}
		return prev, true
	}
	e := &Entry[K, V]{key: key, value: value}
	m.nilEntry = e
	m.size++
	m.modCount++
	if m.hooks.Created != nil {
		m.hooks.Created(e)
	}
	return prev, false
}

// putUnchecked links a new entry for a key known to be absent, reusing a
// precomputed secondary hash. Used by the bulk copy path; the threshold
// is guaranteed not to be exceeded by pre-sizing.
func (m *Map[K, V]) putUnchecked(key K, value V, hash int32) {
	index := int(hash) & (len(m.buckets) - 1)
	e := &Entry[K, V]{key: key, value: value, hash: hash, next: m.buckets[index]}
	m.buckets[index] = e
	m.size++
	if m.hooks.Created != nil {
		m.hooks.Created(e)
	}
}

// Delete removes the mapping for key, returning the removed value, if
// any.
func (m *Map[K, V]) Delete(key K) (removed V, ok bool) {
	if m.hasher.IsNil(key) {
		return m.deleteNilKey()
	}
	hash := secondaryHash(m.hasher.Hash(key))
	index := int(hash) & (len(m.buckets) - 1)
	var prev *Entry[K, V]
	for e := m.buckets[index]; e != nil; prev, e = e, e.next {
		if e.hash == hash && m.hasher.Equal(key, e.key) {
			if prev == nil {
				m.buckets[index] = e.next
			} else {
				prev.next = e.next
			}
			m.modCount++
			m.size--
			if m.hooks.Removed != nil {
				m.hooks.Removed(e)
			}
			return e.value, true
		}
	}
	return removed, false
}

func (m *Map[K, V]) deleteNilKey() (removed V, ok bool) {
	e := m.nilEntry
	if e == nil {
		return removed, false
	}
	m.nilEntry = nil
	m.modCount++
	m.size--
	if m.hooks.Removed != nil {
		m.hooks.Removed(e)
	}
	return e.value, true
}

// Clear removes all mappings. The allocated capacity is retained.
func (m *Map[K, V]) Clear() {
	if m.size == 0 {
		return
	}
	clear(m.buckets)
	m.nilEntry = nil
	m.size = 0
	m.modCount++
	if m.hooks.Cleared != nil {
		m.hooks.Cleared()
	}
}

// PutAll inserts every mapping of src into m, overwriting values for
// keys already present. The table is pre-sized for src's mappings in a
// single step before insertion. src must not be m.
func (m *Map[K, V]) PutAll(src *Map[K, V]) {
	m.ensureCapacity(src.Len())
	if e := src.nilEntry; e != nil {
		m.Put(e.key, e.value)
	}
	for _, head := range src.buckets {
		for e := head; e != nil; e = e.next {
			m.Put(e.key, e.value)
		}
	}
}

// containsMapping reports whether the map contains exactly the mapping
// key=value.
func (m *Map[K, V]) containsMapping(key K, value V) bool {
	if m.hasher.IsNil(key) {
		e := m.nilEntry
		return e != nil && m.valueEq(value, e.value)
	}
	hash := secondaryHash(m.hasher.Hash(key))
	for e := m.buckets[int(hash)&(len(m.buckets)-1)]; e != nil; e = e.next {
		if e.hash == hash && m.hasher.Equal(key, e.key) {
			return m.valueEq(value, e.value)
		}
	}
	return false
}

// removeMapping removes the mapping key=value if both match, reporting
// whether a removal happened.
func (m *Map[K, V]) removeMapping(key K, value V) bool {
	if m.hasher.IsNil(key) {
		e := m.nilEntry
		if e == nil || !m.valueEq(value, e.value) {
			return false
		}
		m.nilEntry = nil
		m.modCount++
		m.size--
		if m.hooks.Removed != nil {
			m.hooks.Removed(e)
		}
		return true
	}
	hash := secondaryHash(m.hasher.Hash(key))
	index := int(hash) & (len(m.buckets) - 1)
	var prev *Entry[K, V]
	for e := m.buckets[index]; e != nil; prev, e = e, e.next {
		if e.hash == hash && m.hasher.Equal(key, e.key) {
			if !m.valueEq(value, e.value) {
				return false // present under key, but with a different value
			}
			if prev == nil {
				m.buckets[index] = e.next
			} else {
				prev.next = e.next
			}
			m.modCount++
			m.size--
			if m.hooks.Removed != nil {
				m.hooks.Removed(e)
			}
			return true
		}
	}
	return false
}

// doubleCapacity grows the table to twice its capacity, splitting each
// chain in place across the enlarged table. A no-op at maxCapacity.
func (m *Map[K, V]) doubleCapacity() {
	oldBuckets := m.buckets
	oldCapacity := len(oldBuckets)
	if oldCapacity == maxCapacity {
		return
	}
	newBuckets := m.makeTable(oldCapacity * 2)
	if debug {
		fmt.Printf("doubleCapacity: %d -> %d (size=%d)\n", oldCapacity, len(newBuckets), m.size)
	}
	if m.size == 0 {
		return
	}
	for j, e := range oldBuckets {
		if e == nil {
			continue
		}
		// Each entry moves to bucket j or j|oldCapacity according to one
		// extra hash bit. Rewire the chain with the minimum number of
		// next-pointer writes: runs of entries sharing the extra bit stay
		// linked, and only the boundary between runs is spliced. Relative
		// order within each destination chain is preserved, which
		// iterator-order consumers rely on. This is the most subtle code
		// in the package.
		highBit := int(e.hash) & oldCapacity
		var broken *Entry[K, V]
		newBuckets[j|highBit] = e
		for n := e.next; n != nil; e, n = n, n.next {
			nextHighBit := int(n.hash) & oldCapacity
			if nextHighBit != highBit {
				if broken == nil {
					newBuckets[j|nextHighBit] = n
				} else {
					broken.next = n
				}
				broken = e
				highBit = nextHighBit
			}
		}
		if broken != nil {
			broken.next = nil
		}
	}
}

// ensureCapacity grows the table, if needed, to hold numMappings with
// room to grow. A growth of exactly 2x delegates to doubleCapacity to
// keep its order-preserving split; larger growths rehash every chain
// into a fresh table in one pass, leaving chain order unspecified.
func (m *Map[K, V]) ensureCapacity(numMappings int) {
	newCapacity := roundUpPowerOfTwo(capacityForSize(numMappings))
	oldBuckets := m.buckets
	oldCapacity := len(oldBuckets)
	if newCapacity <= oldCapacity {
		return
	}
	if newCapacity == oldCapacity*2 {
		m.doubleCapacity()
		return
	}
	if debug {
		fmt.Printf("ensureCapacity: %d -> %d (size=%d)\n", oldCapacity, newCapacity, m.size)
	}
	newBuckets := m.makeTable(newCapacity)
	if m.size == 0 {
		return
	}
	mask := newCapacity - 1
	for _, head := range oldBuckets {
		for e := head; e != nil; {
			next := e.next
			index := int(e.hash) & mask
			e.next = newBuckets[index]
			newBuckets[index] = e
			e = next
		}
	}
}

// All calls yield for each key and value in iteration order: the nil-key
// mapping first, then buckets in ascending index order, chains head to
// tail. If yield returns false, iteration stops. All is fail-fast: a
// structural modification made by yield panics with
// ErrConcurrentModification.
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	expectedModCount := m.modCount
	if e := m.nilEntry; e != nil {
		if !yield(e.key, e.value) {
			return
		}
		if m.modCount != expectedModCount {
			panic(ErrConcurrentModification)
		}
	}
	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			if !yield(e.key, e.value) {
				return
			}
			if m.modCount != expectedModCount {
				panic(ErrConcurrentModification)
			}
		}
	}
}
