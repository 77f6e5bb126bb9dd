// pkg/alloc/arena.go
// Size-class allocator on anonymous memory mappings
//
// LEARN: Mapping pages directly from the OS gives us memory the Go GC
// never scans or moves, so a pointer into it may be handed to C and kept
// there. Small requests are served from shared chunks using power-of-two
// size classes with per-class free lists; large requests get their own
// mapping.

package alloc

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// Common errors for arena operations
var (
	ErrArenaClosed = errors.New("arena: closed")
	ErrBadAlign    = errors.New("arena: alignment must be a power of two")
)

const (
	minClass         = 16
	defaultChunkSize = 64 << 10
)

// ArenaOptions configures an Arena.
type ArenaOptions struct {
	// ChunkSize is the size of each shared mapping (rounded to the page size).
	ChunkSize int

	// MaxBytes limits the total bytes mapped (0 = no limit).
	// Requests that would exceed it fail with ErrAllocFailed.
	MaxBytes int64
}

// DefaultArenaOptions returns sensible defaults.
func DefaultArenaOptions() ArenaOptions {
	return ArenaOptions{
		ChunkSize: defaultChunkSize,
		MaxBytes:  0,
	}
}

// mapping is one region obtained from the OS.
type mapping struct {
	data         []byte
	platformData any
}

func (m *mapping) base() uintptr {
	return uintptr(unsafe.Pointer(&m.data[0]))
}

// Arena is an Allocator backed by anonymous memory mappings.
// It is safe for concurrent use, like a host malloc.
type Arena struct {
	mu     sync.Mutex
	opts   ArenaOptions
	chunks []*mapping
	large  map[uintptr]*mapping // dedicated mappings by base address
	free   map[uintptr][]uintptr
	live   map[uintptr]uintptr // address -> size class
	cur    *mapping
	off    uintptr
	mapped int64
	closed bool
}

// NewArena creates an empty arena. No memory is mapped until the first Alloc.
func NewArena(opts ArenaOptions) *Arena {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	opts.ChunkSize = roundUp(opts.ChunkSize, pageSize())

	return &Arena{
		opts:  opts,
		large: make(map[uintptr]*mapping),
		free:  make(map[uintptr][]uintptr),
		live:  make(map[uintptr]uintptr),
	}
}

// Name implements Allocator.
func (a *Arena) Name() string { return "arena" }

// Alloc implements Allocator.
func (a *Arena) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return nil, ErrBadAlign
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrArenaClosed
	}

	class := sizeClass(size, align)
	if class > uintptr(a.opts.ChunkSize)/4 {
		return a.allocLarge(class)
	}

	var addr uintptr
	if list := a.free[class]; len(list) > 0 {
		addr = list[len(list)-1]
		a.free[class] = list[:len(list)-1]
	} else {
		p, err := a.bump(class)
		if err != nil {
			return nil, err
		}
		addr = p
	}

	a.live[addr] = class
	p := a.pointer(addr)
	clear(unsafe.Slice((*byte)(p), class))
	return p, nil
}

// bump carves class bytes from the current chunk, mapping a new one when
// the current chunk is exhausted. Offsets stay multiples of class, so the
// result is aligned to class.
func (a *Arena) bump(class uintptr) (uintptr, error) {
	if a.cur != nil {
		off := roundUpPtr(a.off, class)
		if off+class <= uintptr(len(a.cur.data)) {
			a.off = off + class
			return a.cur.base() + off, nil
		}
	}

	m, err := a.mapRegion(a.opts.ChunkSize)
	if err != nil {
		return 0, err
	}
	a.chunks = append(a.chunks, m)
	a.cur = m
	a.off = class
	return m.base(), nil
}

func (a *Arena) allocLarge(size uintptr) (unsafe.Pointer, error) {
	m, err := a.mapRegion(roundUp(int(size), pageSize()))
	if err != nil {
		return nil, err
	}
	a.large[m.base()] = m
	return unsafe.Pointer(&m.data[0]), nil
}

func (a *Arena) mapRegion(n int) (*mapping, error) {
	if a.opts.MaxBytes > 0 && a.mapped+int64(n) > a.opts.MaxBytes {
		return nil, ffierrors.WrapAlloc(a.Name(), uintptr(n), ffierrors.ErrAllocFailed)
	}
	m, err := mapPages(n)
	if err != nil {
		return nil, ffierrors.WrapAlloc(a.Name(), uintptr(n), fmt.Errorf("%w: %v", ffierrors.ErrAllocFailed, err))
	}
	a.mapped += int64(n)
	return m, nil
}

// pointer turns an address inside one of our chunks back into a pointer
// derived from the chunk's slice.
func (a *Arena) pointer(addr uintptr) unsafe.Pointer {
	for _, c := range a.chunks {
		base := c.base()
		if addr >= base && addr < base+uintptr(len(c.data)) {
			return unsafe.Pointer(&c.data[addr-base])
		}
	}
	panic("arena: address outside mapped chunks")
}

// Free implements Allocator.
func (a *Arena) Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	addr := uintptr(p)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrArenaClosed
	}

	if m, ok := a.large[addr]; ok {
		delete(a.large, addr)
		a.mapped -= int64(len(m.data))
		return unmapPages(m)
	}

	class, ok := a.live[addr]
	if !ok {
		return fmt.Errorf("arena: free %#x: %w", addr, ffierrors.ErrForeignPointer)
	}
	delete(a.live, addr)
	a.free[class] = append(a.free[class], addr)
	return nil
}

// Owns reports whether p is a live allocation of this arena.
func (a *Arena) Owns(p unsafe.Pointer) bool {
	addr := uintptr(p)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.large[addr]; ok {
		return true
	}
	_, ok := a.live[addr]
	return ok
}

// ArenaStats is a snapshot of arena usage.
type ArenaStats struct {
	Live        int   // outstanding allocations
	MappedBytes int64 // bytes obtained from the OS
	Chunks      int   // shared chunks
}

// Stats returns current usage.
func (a *Arena) Stats() ArenaStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return ArenaStats{
		Live:        len(a.live) + len(a.large),
		MappedBytes: a.mapped,
		Chunks:      len(a.chunks),
	}
}

// Close unmaps every region. Pointers handed out become invalid.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var firstErr error
	for _, c := range a.chunks {
		if err := unmapPages(c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, m := range a.large {
		if err := unmapPages(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.chunks, a.cur, a.large, a.live, a.free = nil, nil, nil, nil, nil
	a.mapped = 0
	return firstErr
}

// sizeClass rounds a request up to a power of two no smaller than minClass
// and no smaller than align.
func sizeClass(size, align uintptr) uintptr {
	if size < align {
		size = align
	}
	class := uintptr(minClass)
	for class < size {
		class <<= 1
	}
	return class
}

func roundUp(n, to int) int {
	return (n + to - 1) / to * to
}

func roundUpPtr(n, to uintptr) uintptr {
	return (n + to - 1) &^ (to - 1)
}
