// Package arena provides chunked bump allocation with stable handles and
// value interning on top of it. Everything an IR context owns lives in
// arenas: allocations never move, so a *T handed out by Alloc stays valid
// for the lifetime of the arena.
package arena

import (
	"fmt"
	"unsafe"

	"fortio.org/safecast"
)

// maxChunkBytes caps the byte size of a single chunk. Chunk capacities
// double from 1 element until they hit this budget.
const maxChunkBytes = 1 << 20

// Arena is a chunked bump allocator for values of type T.
//
// New capacity is always a new chunk, never a resize, so pointers
// returned by Alloc remain valid until the arena itself is dropped.
type Arena[T any] struct {
	chunks [][]T
	count  int
}

// maxChunkElems returns the element cap for one chunk, floor 1.
func maxChunkElems[T any]() int {
	var zero T
	size, err := safecast.Conv[int](unsafe.Sizeof(zero))
	if err != nil {
		panic(fmt.Errorf("element size overflow: %w", err))
	}
	if size == 0 {
		size = 1
	}
	n := maxChunkBytes / size
	if n < 1 {
		n = 1
	}
	return n
}

// Alloc stores v in the arena and returns a stable pointer to the copy.
// Amortized O(1).
func (a *Arena[T]) Alloc(v T) *T {
	if n := len(a.chunks); n == 0 || len(a.chunks[n-1]) == cap(a.chunks[n-1]) {
		a.grow()
	}
	chunk := &a.chunks[len(a.chunks)-1]
	*chunk = append(*chunk, v)
	a.count++
	return &(*chunk)[len(*chunk)-1]
}

// grow appends a fresh chunk with doubled capacity, capped by the
// per-chunk byte budget.
func (a *Arena[T]) grow() {
	capacity := 1
	if n := len(a.chunks); n > 0 {
		capacity = cap(a.chunks[n-1]) * 2
	}
	if limit := maxChunkElems[T](); capacity > limit {
		capacity = limit
	}
	a.chunks = append(a.chunks, make([]T, 0, capacity))
}

// Len returns the number of values allocated so far.
func (a *Arena[T]) Len() int {
	return a.count
}

// ForEach visits every allocated value in allocation order.
func (a *Arena[T]) ForEach(visit func(*T)) {
	for ci := range a.chunks {
		chunk := a.chunks[ci]
		for i := range chunk {
			visit(&chunk[i])
		}
	}
}
