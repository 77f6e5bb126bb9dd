//go:build windows

// pkg/alloc/arena_windows.go
// Windows page mapping using VirtualAlloc/VirtualFree

package alloc

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mapPages reserves and commits n bytes of read-write memory.
func mapPages(n int) (*mapping, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(n), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}

	// LEARN: The slice points at OS-managed memory; it is valid only
	// until VirtualFree runs.
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	return &mapping{data: data, platformData: addr}, nil
}

// unmapPages releases a mapping with MEM_RELEASE (size must be 0).
func unmapPages(m *mapping) error {
	if m.data == nil {
		return nil
	}
	addr, _ := m.platformData.(uintptr)
	m.data = nil
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

func pageSize() int {
	return windows.Getpagesize()
}
