// pkg/boundary/handles.go
// Addresses the C side can hold for Go-owned boxes

package boundary

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/khaaliswooden-max/ffibridge/pkg/alloc"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
	"github.com/khaaliswooden-max/ffibridge/pkg/generic"
)

// Handles maps opaque addresses to boxes.
//
// LEARN: C may not store Go pointers, so a box never crosses itself.
// Instead Export allocates a small cell on a non-Go allocator and hands
// out the cell's address. The address is real memory (C can compare it,
// store it, pass it back) but its contents are not part of the contract,
// which is what keeps the type opaque on the C side.
//
// The table is process-global infrastructure and is locked like a host
// allocator. The boxed values themselves are not synchronized.
type Handles[T any] struct {
	name  string
	a     alloc.Allocator
	mu    sync.Mutex
	cells map[uintptr]handleEntry[T]
	next  uint64
}

type handleEntry[T any] struct {
	box  Box[T]
	cell unsafe.Pointer
}

// handleCell is the content of an exported address: a serial number
// that lets logs tell two generations of the same address apart.
type handleCell struct {
	serial uint64
}

// NewHandles creates a table whose cells come from a.
func NewHandles[T any](name string, a alloc.Allocator) *Handles[T] {
	return &Handles[T]{
		name:  name,
		a:     a,
		cells: make(map[uintptr]handleEntry[T]),
	}
}

// Export moves b into the table and returns the address standing for it.
// It returns None when the cell cannot be allocated; b is left untouched
// in that case and still belongs to the caller.
func (h *Handles[T]) Export(b Box[T]) generic.Option[unsafe.Pointer] {
	if !b.Live() {
		return generic.None[unsafe.Pointer](ffierrors.WrapContract(h.name+".Export", ffierrors.ErrReleased))
	}

	cell, err := alloc.New[handleCell](h.a)
	if err != nil {
		return generic.None[unsafe.Pointer](err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	cell.serial = h.next
	p := unsafe.Pointer(cell)
	h.cells[uintptr(p)] = handleEntry[T]{box: b, cell: p}
	return generic.Some(p)
}

// Borrow returns the value behind p without consuming it.
func (h *Handles[T]) Borrow(p unsafe.Pointer) (*T, error) {
	if p == nil {
		return nil, ffierrors.ErrNilHandle
	}

	h.mu.Lock()
	e, ok := h.cells[uintptr(p)]
	h.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%s: handle %p: %w", h.name, p, ffierrors.ErrForeignPointer)
	}
	return e.box.Get()
}

// Take removes p from the table, frees its cell and returns the box, which
// the caller now owns and must drop. p is invalid afterwards.
func (h *Handles[T]) Take(p unsafe.Pointer) (Box[T], error) {
	if p == nil {
		return Box[T]{}, ffierrors.ErrNilHandle
	}

	h.mu.Lock()
	e, ok := h.cells[uintptr(p)]
	if ok {
		delete(h.cells, uintptr(p))
	}
	h.mu.Unlock()

	if !ok {
		return Box[T]{}, fmt.Errorf("%s: handle %p: %w", h.name, p, ffierrors.ErrForeignPointer)
	}
	if err := h.a.Free(e.cell); err != nil {
		return e.box, err
	}
	return e.box, nil
}

// Release is Take followed by Drop.
func (h *Handles[T]) Release(p unsafe.Pointer) error {
	b, err := h.Take(p)
	if err != nil {
		return err
	}
	return Drop(b)
}

// Len returns the number of exported handles.
func (h *Handles[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cells)
}

// Name returns the table's name.
func (h *Handles[T]) Name() string {
	return h.name
}

// Allocator returns the allocator cells come from.
func (h *Handles[T]) Allocator() alloc.Allocator {
	return h.a
}
