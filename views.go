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

// The view types below are live projections of a Map: they hold only a
// back-reference and delegate all reads and mutations to the map, so a
// view observes later changes and a view mutation is a map mutation.

// EntrySet is the entry view of a Map.
type EntrySet[K, V any] struct {
	m *Map[K, V]
}

// Entries returns the live entry view of the map.
func (m *Map[K, V]) Entries() EntrySet[K, V] { return EntrySet[K, V]{m} }

func (s EntrySet[K, V]) Len() int    { return s.m.size }
func (s EntrySet[K, V]) Empty() bool { return s.m.size == 0 }

// Clear removes all mappings from the underlying map.
func (s EntrySet[K, V]) Clear() { s.m.Clear() }

// Contains reports whether the map holds exactly the mapping key=value,
// by the map's key and value equality.
func (s EntrySet[K, V]) Contains(key K, value V) bool {
	return s.m.containsMapping(key, value)
}

// Remove removes the mapping key=value only if both match, reporting
// whether a removal happened.
func (s EntrySet[K, V]) Remove(key K, value V) bool {
	return s.m.removeMapping(key, value)
}

// Iter returns a fail-fast iterator over the entries.
func (s EntrySet[K, V]) Iter() *Iterator[K, V] { return s.m.Iter() }

// All calls yield for each entry in iteration order. Entries may have
// their value replaced via SetValue during iteration; structural
// modification panics with ErrConcurrentModification.
func (s EntrySet[K, V]) All(yield func(e *Entry[K, V]) bool) {
	m := s.m
	expectedModCount := m.modCount
	if e := m.nilEntry; e != nil {
		if !yield(e) {
			return
		}
		if m.modCount != expectedModCount {
			panic(ErrConcurrentModification)
		}
	}
	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			if !yield(e) {
				return
			}
			if m.modCount != expectedModCount {
				panic(ErrConcurrentModification)
			}
		}
	}
}

// KeySet is the key view of a Map.
type KeySet[K, V any] struct {
	m *Map[K, V]
}

// Keys returns the live key view of the map.
func (m *Map[K, V]) Keys() KeySet[K, V] { return KeySet[K, V]{m} }

func (s KeySet[K, V]) Len() int    { return s.m.size }
func (s KeySet[K, V]) Empty() bool { return s.m.size == 0 }

// Clear removes all mappings from the underlying map.
func (s KeySet[K, V]) Clear() { s.m.Clear() }

// Contains reports whether the map holds a mapping for key.
func (s KeySet[K, V]) Contains(key K) bool { return s.m.ContainsKey(key) }

// Remove removes the mapping for key, reporting whether one existed.
func (s KeySet[K, V]) Remove(key K) bool {
	_, ok := s.m.Delete(key)
	return ok
}

// Iter returns a fail-fast iterator over the keys.
func (s KeySet[K, V]) Iter() KeyIterator[K, V] {
	return KeyIterator[K, V]{s.m.Iter()}
}

// All calls yield for each key in iteration order.
func (s KeySet[K, V]) All(yield func(key K) bool) {
	s.m.All(func(key K, _ V) bool { return yield(key) })
}

// ValueCollection is the value view of a Map. Unlike the other views it
// is a bag, not a set: distinct keys may map to equal values.
type ValueCollection[K, V any] struct {
	m *Map[K, V]
}

// Values returns the live value view of the map.
func (m *Map[K, V]) Values() ValueCollection[K, V] { return ValueCollection[K, V]{m} }

func (s ValueCollection[K, V]) Len() int    { return s.m.size }
func (s ValueCollection[K, V]) Empty() bool { return s.m.size == 0 }

// Clear removes all mappings from the underlying map.
func (s ValueCollection[K, V]) Clear() { s.m.Clear() }

// Contains reports whether any mapping has the given value.
func (s ValueCollection[K, V]) Contains(value V) bool {
	return s.m.ContainsValue(value)
}

// Iter returns a fail-fast iterator over the values.
func (s ValueCollection[K, V]) Iter() ValueIterator[K, V] {
	return ValueIterator[K, V]{s.m.Iter()}
}

// All calls yield for each value in iteration order.
func (s ValueCollection[K, V]) All(yield func(value V) bool) {
	s.m.All(func(_ K, value V) bool { return yield(value) })
}
