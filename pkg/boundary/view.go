// pkg/boundary/view.go
// Pointer+length views over caller-owned memory

package boundary

import (
	"cmp"
	"slices"
	"unsafe"
)

// SliceRef turns a (pointer, length) pair received from C into a slice.
//
// LEARN: The slice aliases the caller's memory and is only valid for the
// current call. A nil pointer or zero length yields an empty slice, never
// a fault.
func SliceRef[T any](ptr *T, n int) []T {
	if ptr == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice(ptr, n)
}

// SliceRefAt is SliceRef for an untyped pointer, as cgo hands it over.
func SliceRefAt[T any](ptr unsafe.Pointer, n int) []T {
	return SliceRef((*T)(ptr), n)
}

// Max returns the largest element of xs, or the zero value when xs is empty.
// xs is only read.
func Max[T cmp.Ordered](xs []T) T {
	if len(xs) == 0 {
		var zero T
		return zero
	}
	return slices.Max(xs)
}
