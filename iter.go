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

package chainmap

// Iterator is a fail-fast cursor over a Map's entries. The traversal
// order is the nil-key entry first (if present), then buckets in
// ascending index order, and within a bucket the chain from head to
// tail.
//
// The iterator snapshots the map's modification counter at creation.
// Any structural modification made other than through the iterator's own
// Remove causes the next Next or Remove to panic with
// ErrConcurrentModification. Value replacement on an existing key is not
// structural and is not detected.
type Iterator[K, V any] struct {
	m *Map[K, V]
	// expectedModCount is the map's modCount observed at creation, or at
	// the iterator's own last Remove.
	expectedModCount int
	// nextIndex is the first bucket not yet scanned for a chain head.
	nextIndex int
	next      *Entry[K, V]
	// last is the entry most recently returned by Next, cleared by
	// Remove.
	last *Entry[K, V]
}

// Iter returns a new iterator positioned before the first entry.
func (m *Map[K, V]) Iter() *Iterator[K, V] {
	it := &Iterator[K, V]{
		m:                m,
		expectedModCount: m.modCount,
		next:             m.nilEntry,
	}
	if it.next == nil {
		it.skipEmptyBuckets()
	}
	return it
}

// skipEmptyBuckets advances nextIndex past empty buckets until a chain
// head is cached in next or the table is exhausted.
func (it *Iterator[K, V]) skipEmptyBuckets() {
	buckets := it.m.buckets
	for it.next == nil && it.nextIndex < len(buckets) {
		it.next = buckets[it.nextIndex]
		it.nextIndex++
	}
}

// HasNext reports whether a subsequent Next will return an entry.
func (it *Iterator[K, V]) HasNext() bool { return it.next != nil }

// Next returns the next entry and advances the cursor. It panics with
// ErrConcurrentModification if the map was structurally modified behind
// the iterator's back, and with ErrIterationExhausted if no entries
// remain.
func (it *Iterator[K, V]) Next() *Entry[K, V] {
	if it.m.modCount != it.expectedModCount {
		panic(ErrConcurrentModification)
	}
	if it.next == nil {
		panic(ErrIterationExhausted)
	}
	e := it.next
	it.next = e.next
	it.skipEmptyBuckets()
	it.last = e
	return e
}

// Remove removes the entry most recently returned by Next from the
// underlying map. It is the one mutation that does not trip the
// staleness check: the iterator resynchronizes with the map's
// modification counter afterwards. Remove panics with ErrIteratorState
// if Next has not been called since the iterator's creation or the last
// Remove, and with ErrConcurrentModification on a stale iterator.
func (it *Iterator[K, V]) Remove() {
	if it.last == nil {
		panic(ErrIteratorState)
	}
	if it.m.modCount != it.expectedModCount {
		panic(ErrConcurrentModification)
	}
	it.m.Delete(it.last.key)
	it.last = nil
	it.expectedModCount = it.m.modCount
}

// KeyIterator is a projection of Iterator that yields keys.
type KeyIterator[K, V any] struct {
	it *Iterator[K, V]
}

func (it KeyIterator[K, V]) HasNext() bool { return it.it.HasNext() }
func (it KeyIterator[K, V]) Next() K       { return it.it.Next().key }
func (it KeyIterator[K, V]) Remove()       { it.it.Remove() }

// ValueIterator is a projection of Iterator that yields values.
type ValueIterator[K, V any] struct {
	it *Iterator[K, V]
}

func (it ValueIterator[K, V]) HasNext() bool { return it.it.HasNext() }
func (it ValueIterator[K, V]) Next() V       { return it.it.Next().value }
func (it ValueIterator[K, V]) Remove()       { it.it.Remove() }
