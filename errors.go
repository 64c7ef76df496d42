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

import "github.com/pkg/errors"

// The errors below report contract violations by the caller. They are
// delivered as panic values, matching the behavior of Go's builtin map for
// misuse (e.g. concurrent iteration and write). A recovering caller can
// match them with errors.Is since panics that carry additional context wrap
// these sentinels.
var (
	// ErrInvalidCapacity reports a negative capacity passed to New.
	ErrInvalidCapacity = errors.New("chainmap: invalid capacity")

	// ErrInvalidLoadFactor reports a non-positive or NaN load factor
	// passed to WithLoadFactor.
	ErrInvalidLoadFactor = errors.New("chainmap: invalid load factor")

	// ErrConcurrentModification reports a structural modification of the
	// map made between an iterator's creation and its next operation,
	// other than through the iterator's own Remove.
	ErrConcurrentModification = errors.New("chainmap: map modified during iteration")

	// ErrIteratorState reports Iterator.Remove called with no entry
	// returned since the iterator's creation or its last Remove.
	ErrIteratorState = errors.New("chainmap: Remove called without a preceding Next")

	// ErrIterationExhausted reports Iterator.Next called after the last
	// entry has been returned.
	ErrIterationExhausted = errors.New("chainmap: iteration exhausted")
)
