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

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIterationOrder(t *testing.T) {
	m := New[int, int](intHasher{}, 16)
	m.Put(nilIntKey, -1)
	for i := 0; i < 10; i++ {
		m.Put(i, i)
	}

	// Expected order: the nil-key entry first, then buckets in ascending
	// index order, chains head to tail.
	var expected []int
	if e := m.nilEntry; e != nil {
		expected = append(expected, e.key)
	}
	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			expected = append(expected, e.key)
		}
	}
	require.Equal(t, nilIntKey, expected[0])
	require.Len(t, expected, 11)

	var got []int
	it := m.Iter()
	for it.HasNext() {
		got = append(got, it.Next().Key())
	}
	require.Equal(t, expected, got)

	// All observes the same order as the cursor.
	got = got[:0]
	m.All(func(k, v int) bool {
		got = append(got, k)
		return true
	})
	require.Equal(t, expected, got)

	// An exhausted iterator stays exhausted.
	require.False(t, it.HasNext())
	requirePanicsIs(t, ErrIterationExhausted, func() { it.Next() })
}

func TestIterEmptyMap(t *testing.T) {
	m := New[int, int](intHasher{}, 0)
	it := m.Iter()
	require.False(t, it.HasNext())
	requirePanicsIs(t, ErrIterationExhausted, func() { it.Next() })
}

func TestFailFast(t *testing.T) {
	newMap := func() *Map[int, int] {
		m := New[int, int](intHasher{}, 0)
		for i := 0; i < 20; i++ {
			m.Put(i, i)
		}
		return m
	}

	t.Run("put new key", func(t *testing.T) {
		m := newMap()
		it := m.Iter()
		m.Put(1000, 1000)
		requirePanicsIs(t, ErrConcurrentModification, func() { it.Next() })
	})

	t.Run("delete", func(t *testing.T) {
		m := newMap()
		it := m.Iter()
		it.Next()
		m.Delete(5)
		requirePanicsIs(t, ErrConcurrentModification, func() { it.Next() })
	})

	t.Run("clear", func(t *testing.T) {
		m := newMap()
		it := m.Iter()
		m.Clear()
		requirePanicsIs(t, ErrConcurrentModification, func() { it.Next() })
	})

	t.Run("value replacement is not structural", func(t *testing.T) {
		m := newMap()
		it := m.Iter()
		m.Put(5, 500) // existing key: in-place replacement
		m.Delete(999) // absent key: no state change
		for it.HasNext() {
			it.Next()
		}
	})

	t.Run("stale iterator remove", func(t *testing.T) {
		m := newMap()
		it := m.Iter()
		it.Next()
		m.Put(1000, 1000)
		requirePanicsIs(t, ErrConcurrentModification, func() { it.Remove() })
	})

	t.Run("iterator removal does not trip", func(t *testing.T) {
		m := newMap()
		it := m.Iter()
		for it.HasNext() {
			e := it.Next()
			if e.Key()%2 == 0 {
				it.Remove()
			}
		}
		require.Equal(t, 10, m.Len())
		for i := 0; i < 20; i++ {
			require.Equal(t, i%2 == 1, m.ContainsKey(i))
		}
		checkInvariants(t, m)
	})

	t.Run("second iterator observes removal", func(t *testing.T) {
		m := newMap()
		it1 := m.Iter()
		it2 := m.Iter()
		it1.Next()
		it1.Remove()
		// it1 resynchronized; it2 did not.
		requirePanicsIs(t, ErrConcurrentModification, func() { it2.Next() })
		for it1.HasNext() {
			it1.Next()
		}
	})
}

func TestIteratorRemove(t *testing.T) {
	t.Run("before next", func(t *testing.T) {
		m := New[int, int](intHasher{}, 0)
		m.Put(1, 1)
		it := m.Iter()
		requirePanicsIs(t, ErrIteratorState, func() { it.Remove() })
	})

	t.Run("twice", func(t *testing.T) {
		m := New[int, int](intHasher{}, 0)
		m.Put(1, 1)
		m.Put(2, 2)
		it := m.Iter()
		it.Next()
		it.Remove()
		requirePanicsIs(t, ErrIteratorState, func() { it.Remove() })
	})

	t.Run("drain", func(t *testing.T) {
		m := New[int, int](intHasher{}, 0)
		m.Put(nilIntKey, -1)
		for i := 0; i < 100; i++ {
			m.Put(i, i)
		}

		it := m.Iter()
		for it.HasNext() {
			it.Next()
			it.Remove()
		}
		require.Equal(t, 0, m.Len())
		require.False(t, m.ContainsKey(nilIntKey))
		checkInvariants(t, m)
	})
}

func TestAllEarlyStop(t *testing.T) {
	m := New[int, int](intHasher{}, 0)
	for i := 0; i < 50; i++ {
		m.Put(i, i)
	}
	seen := 0
	m.All(func(k, v int) bool {
		seen++
		return seen < 10
	})
	require.Equal(t, 10, seen)
}

func TestAllFailFast(t *testing.T) {
	m := New[int, int](intHasher{}, 0)
	for i := 0; i < 50; i++ {
		m.Put(i, i)
	}
	requirePanicsIs(t, ErrConcurrentModification, func() {
		m.All(func(k, v int) bool {
			m.Delete(k)
			return true
		})
	})
}

func TestKeyValueIterators(t *testing.T) {
	m := New[int, int](intHasher{}, 0)
	for i := 0; i < 20; i++ {
		m.Put(i, i*2)
	}

	keys := make(map[int]bool)
	kit := m.Keys().Iter()
	for kit.HasNext() {
		keys[kit.Next()] = true
	}
	require.Len(t, keys, 20)

	values := make(map[int]bool)
	vit := m.Values().Iter()
	for vit.HasNext() {
		values[vit.Next()] = true
	}
	require.Len(t, values, 20)
	require.True(t, values[38])

	// Removal through a projection removes from the map.
	kit = m.Keys().Iter()
	kit.Next()
	kit.Remove()
	require.Equal(t, 19, m.Len())
}

func TestEntrySetView(t *testing.T) {
	m := New[int, int](intHasher{}, 0)
	es := m.Entries()
	require.True(t, es.Empty())

	for i := 0; i < 10; i++ {
		m.Put(i, i*10)
	}
	m.Put(nilIntKey, -1)

	// The view is live.
	require.Equal(t, 11, es.Len())
	require.False(t, es.Empty())

	require.True(t, es.Contains(3, 30))
	require.False(t, es.Contains(3, 31))
	require.False(t, es.Contains(1000, 0))
	require.True(t, es.Contains(nilIntKey, -1))
	require.False(t, es.Contains(nilIntKey, 0))

	// Remove only removes an exact mapping.
	require.False(t, es.Remove(3, 31))
	require.True(t, m.ContainsKey(3))
	require.True(t, es.Remove(3, 30))
	require.False(t, m.ContainsKey(3))
	require.True(t, es.Remove(nilIntKey, -1))
	require.False(t, m.ContainsKey(nilIntKey))
	require.Equal(t, 9, es.Len())

	count := 0
	es.All(func(e *Entry[int, int]) bool {
		require.Equal(t, e.Key()*10, e.Value())
		count++
		return true
	})
	require.Equal(t, 9, count)

	es.Clear()
	require.Equal(t, 0, m.Len())
}

func TestKeySetView(t *testing.T) {
	m := New[int, int](intHasher{}, 0)
	ks := m.Keys()

	for i := 0; i < 10; i++ {
		m.Put(i, i)
	}
	require.Equal(t, 10, ks.Len())
	require.True(t, ks.Contains(5))
	require.False(t, ks.Contains(50))

	require.True(t, ks.Remove(5))
	require.False(t, ks.Remove(5))
	require.Equal(t, 9, m.Len())

	var keys []int
	ks.All(func(k int) bool {
		keys = append(keys, k)
		return true
	})
	require.Len(t, keys, 9)

	ks.Clear()
	require.True(t, ks.Empty())
	require.Equal(t, 0, m.Len())
}

func TestValueCollectionView(t *testing.T) {
	m := New[int, int](intHasher{}, 0)
	vs := m.Values()

	// Distinct keys may map to equal values.
	m.Put(1, 7)
	m.Put(2, 7)
	m.Put(3, 8)
	require.Equal(t, 3, vs.Len())
	require.True(t, vs.Contains(7))
	require.True(t, vs.Contains(8))
	require.False(t, vs.Contains(9))

	var values []int
	vs.All(func(v int) bool {
		values = append(values, v)
		return true
	})
	require.Len(t, values, 3)

	vs.Clear()
	require.True(t, vs.Empty())
}

func TestIteratorRandomRemove(t *testing.T) {
	// Interleave cursor traversal with iterator-side removals over a
	// large map and cross-check the survivors against a builtin map.
	m := New[int, int](intHasher{}, 0)
	e := make(map[int]int)
	for i := 0; i < 1000; i++ {
		m.Put(i, i)
		e[i] = i
	}

	it := m.Iter()
	for it.HasNext() {
		entry := it.Next()
		if rand.Intn(3) == 0 {
			it.Remove()
			delete(e, entry.Key())
		}
	}
	require.Equal(t, len(e), m.Len())
	require.Equal(t, e, toBuiltin(m))
	checkInvariants(t, m)
}
