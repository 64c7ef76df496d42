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
	"math"

	"github.com/pkg/errors"
)

// Hasher supplies the key semantics for a Map: a raw 32-bit hash, an
// equality predicate, and recognition of the single reserved nil key.
//
// The following requirements are the caller's responsibility:
//   - Hash and Equal must be total, deterministic, and consistent:
//     Equal(a, b) implies Hash(a) == Hash(b).
//   - If keys contain references, mutating the referenced data in a way
//     that changes the result of Hash or Equal results in undefined
//     behavior.
//
// Hash is a raw hash; the Map remixes it with an avalanche function
// before bucket addressing, so low entropy in the low bits is tolerable.
//
// IsNil reports whether a key is the designated nil key. The single
// mapping for the nil key is held outside the hash table and is never
// passed to Hash. A Hasher whose IsNil always returns false simply has
// no nil key.
type Hasher[K any] interface {
	Hash(key K) int32
	Equal(a, b K) bool
	IsNil(key K) bool
}

// Hooks observe entry lifecycle events on a Map. An ordered variant
// layered above the table can use them to maintain auxiliary linkage.
// Any field may be nil. Hooks must not mutate the map.
type Hooks[K, V any] struct {
	// Created is invoked after a new entry is linked into the table,
	// including the nil-key entry and entries copied by NewFrom.
	Created func(e *Entry[K, V])
	// Accessed is invoked when Get or Put finds an existing entry.
	Accessed func(e *Entry[K, V])
	// Removed is invoked after an entry is unlinked by Delete, by an
	// entry-set removal, or through an iterator.
	Removed func(e *Entry[K, V])
	// Cleared is invoked after Clear empties a non-empty map. Removed is
	// not called for the discarded entries.
	Cleared func()
}

// option provides an interface to do work on Map while it is being created.
type option[K, V any] interface {
	apply(m *Map[K, V])
}

type loadFactorOption[K, V any] struct{}

func (op loadFactorOption[K, V]) apply(m *Map[K, V]) {
	// The load factor is accepted for API compatibility but the table is
	// always operated at 3/4, computed with shifts instead of division.
}

// WithLoadFactor validates loadFactor and otherwise ignores it: the
// growth threshold is pinned at 3/4 of capacity. It panics with
// ErrInvalidLoadFactor if loadFactor is non-positive or NaN.
func WithLoadFactor[K, V any](loadFactor float64) option[K, V] {
	if loadFactor <= 0 || math.IsNaN(loadFactor) {
		panic(errors.Wrapf(ErrInvalidLoadFactor, "load factor %v", loadFactor))
	}
	return loadFactorOption[K, V]{}
}

type valueEqualsOption[K, V any] struct {
	eq func(a, b V) bool
}

func (op valueEqualsOption[K, V]) apply(m *Map[K, V]) {
	m.valueEq = op.eq
}

// WithValueEquals specifies the value equality used by ContainsValue and
// by entry-set matching. The default compares values with == on their
// dynamic types, which panics for uncomparable value types.
func WithValueEquals[K, V any](eq func(a, b V) bool) option[K, V] {
	return valueEqualsOption[K, V]{eq}
}

type hooksOption[K, V any] struct {
	hooks Hooks[K, V]
}

func (op hooksOption[K, V]) apply(m *Map[K, V]) {
	m.hooks = op.hooks
}

// WithHooks attaches lifecycle hooks to a Map[K,V].
func WithHooks[K, V any](hooks Hooks[K, V]) option[K, V] {
	return hooksOption[K, V]{hooks}
}
