// pkg/boundary/malloc.go
// Single values on a non-Go allocator

package boundary

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/khaaliswooden-max/ffibridge/pkg/alloc"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
	"github.com/khaaliswooden-max/ffibridge/pkg/generic"
)

// Malloc owns one T placed on an allocator the GC does not scan.
// Its address may be handed to C and kept there until FreeMalloc.
type Malloc[T any] struct {
	p *T
	a alloc.Allocator
}

// NewMalloc places a copy of v on a. Allocation failure is recoverable
// and comes back as None.
//
// LEARN: The GC never looks inside allocator memory, so T must not hold
// Go pointers; such types are refused up front.
func NewMalloc[T any](a alloc.Allocator, v T) generic.Option[Malloc[T]] {
	if !pointerFree(reflect.TypeOf(v)) {
		return generic.None[Malloc[T]](ffierrors.WrapLayout(fmt.Sprintf("%T", v), "", ffierrors.ErrNotFixedSize))
	}

	p, err := alloc.New[T](a)
	if err != nil {
		return generic.None[Malloc[T]](err)
	}
	*p = v
	return generic.Some(Malloc[T]{p: p, a: a})
}

// Ptr returns the owned address.
func (m Malloc[T]) Ptr() *T {
	return m.p
}

// Get reads the value. Reading after FreeMalloc is a contract violation.
func (m Malloc[T]) Get() T {
	return *m.p
}

// FreeMalloc consumes m and frees its memory through the allocator that
// produced it.
func FreeMalloc[T any](m Malloc[T]) error {
	if m.p == nil {
		return ffierrors.ErrNilHandle
	}
	return m.a.Free(unsafe.Pointer(m.p))
}

// AdoptMalloc takes back an address previously returned by Ptr, e.g. one
// that travelled through C, so it can be freed.
func AdoptMalloc[T any](a alloc.Allocator, p *T) Malloc[T] {
	return Malloc[T]{p: p, a: a}
}

// NewInt is new_int: one int32 on a, or None.
func NewInt(a alloc.Allocator, x int32) generic.Option[Malloc[int32]] {
	return NewMalloc(a, x)
}

// FreeInt is free_int.
func FreeInt(m Malloc[int32]) error {
	return FreeMalloc(m)
}
