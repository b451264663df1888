// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch partitions ordered lists into consecutive fixed-size groups.
// The archive rejects or times out on oversized product requests, so callers
// split observation identifiers with Split and issue one request per batch.
package batch

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidSize is returned when the batch size is not positive.
var ErrInvalidSize = errors.New("batch size must be positive")

// Split returns a sequence over consecutive sub-slices of items, each holding
// at most size elements. The final batch may be shorter. Batches share the
// backing array of items but are capacity-limited, so appending to a batch
// never overwrites the next one.
//
// The sequence is lazy and restartable: each range over it walks items again
// from the start. An empty items slice yields no batches.
func Split[T any](items []T, size int) (iter.Seq[[]T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end:end]) {
				return
			}
		}
	}, nil
}

// Count returns the number of batches Split yields for n items.
func Count(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
