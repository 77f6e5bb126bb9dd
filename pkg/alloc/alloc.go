// pkg/alloc/alloc.go
// Off-Go-heap allocation for memory that crosses the C boundary
//
// LEARN: cgo forbids C from keeping pointers into Go memory after a call
// returns. Anything the C side owns (strings it must free, ints it holds
// on to) therefore has to live outside the Go heap: either in the C
// allocator or in pages we map ourselves. Allocator abstracts over both.
//
// Key concepts:
// 1. Every allocation is released through the allocator that produced it
// 2. Memory handed out is zeroed, like calloc
// 3. Failure is an error value, never a panic

package alloc

import (
	"unsafe"
)

// Allocator hands out memory the garbage collector does not manage.
type Allocator interface {
	// Alloc returns size bytes aligned to align (a power of two).
	// The memory is zeroed.
	Alloc(size, align uintptr) (unsafe.Pointer, error)

	// Free releases memory previously returned by Alloc on the same
	// allocator. Passing anything else is a contract violation.
	Free(p unsafe.Pointer) error

	// Name identifies the allocator in logs and in the ownership ledger.
	Name() string
}

// New allocates a zeroed T on a and returns a typed pointer to it.
func New[T any](a Allocator) (*T, error) {
	var zero T
	p, err := a.Alloc(unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// Bytes returns the n bytes starting at p as a slice.
//
// WARNING: The slice is only valid until p is freed.
func Bytes(p unsafe.Pointer, n int) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}
