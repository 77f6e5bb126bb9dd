//go:build cgo

// internal/cabi/heap.go
// The C library allocator behind the entry points

package cabi

/*
#include <stdlib.h>
#include <stddef.h>

// LEARN: cgo's C.malloc never returns NULL; it crashes instead. calloc
// called from our own helper keeps allocation failure observable.
static inline void *ffibridge_calloc(size_t n) {
    return calloc(1, n);
}

static inline size_t ffibridge_max_align(void) {
    return _Alignof(max_align_t);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/khaaliswooden-max/ffibridge/pkg/alloc"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// CHeap allocates with the C library's calloc and free, so C callers can
// hold the memory indefinitely.
type CHeap struct{}

// Alloc returns zeroed memory from calloc.
func (CHeap) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	if align == 0 || align&(align-1) != 0 {
		return nil, alloc.ErrBadAlign
	}
	if align > uintptr(C.ffibridge_max_align()) {
		return nil, fmt.Errorf("c-heap: alignment %d: %w", align, alloc.ErrBadAlign)
	}
	if size == 0 {
		size = 1
	}

	p := C.ffibridge_calloc(C.size_t(size))
	if p == nil {
		return nil, ffierrors.WrapAlloc("c-heap", size, ffierrors.ErrAllocFailed)
	}
	return p, nil
}

// Free returns p to the C library. The caller guarantees p came from Alloc.
func (CHeap) Free(p unsafe.Pointer) error {
	C.free(p)
	return nil
}

// Name identifies the allocator.
func (CHeap) Name() string { return "c-heap" }

// heapSwitch is the allocator the entry points use. It can be pointed at
// a different allocator for the length of a check.
type heapSwitch struct {
	mu sync.RWMutex
	a  alloc.Allocator
}

func (h *heapSwitch) current() alloc.Allocator {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.a
}

func (h *heapSwitch) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	return h.current().Alloc(size, align)
}

func (h *heapSwitch) Free(p unsafe.Pointer) error {
	return h.current().Free(p)
}

func (h *heapSwitch) Name() string {
	return h.current().Name()
}

// swap installs a and returns a function restoring the previous allocator.
// Nothing allocated through a may still be live when restore runs.
func (h *heapSwitch) swap(a alloc.Allocator) (restore func()) {
	h.mu.Lock()
	prev := h.a
	h.a = a
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		h.a = prev
		h.mu.Unlock()
	}
}
