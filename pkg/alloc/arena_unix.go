//go:build unix

// pkg/alloc/arena_unix.go
// Unix page mapping using mmap(2)

package alloc

import (
	"golang.org/x/sys/unix"
)

// mapPages maps n bytes of anonymous, private, read-write memory.
//
// LEARN: MAP_ANON with fd -1 asks for memory not backed by any file.
// The kernel hands back zeroed pages.
func mapPages(n int) (*mapping, error) {
	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &mapping{data: data}, nil
}

// unmapPages releases a mapping. Accessing it afterwards is a segfault.
func unmapPages(m *mapping) error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

func pageSize() int {
	return unix.Getpagesize()
}
