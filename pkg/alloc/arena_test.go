// pkg/alloc/arena_test.go
// Tests for the mmap-backed arena

package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

func newTestArena(t *testing.T, opts ArenaOptions) *Arena {
	t.Helper()
	a := NewArena(opts)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArena_AllocFree(t *testing.T) {
	a := newTestArena(t, DefaultArenaOptions())

	p, err := a.Alloc(4, 4)
	require.NoError(t, err)
	require.NotNil(t, p)

	*(*int32)(p) = 7
	assert.Equal(t, int32(7), *(*int32)(p))
	assert.True(t, a.Owns(p))
	assert.Equal(t, 1, a.Stats().Live)

	require.NoError(t, a.Free(p))
	assert.False(t, a.Owns(p))
	assert.Equal(t, 0, a.Stats().Live)
}

func TestArena_Zeroed(t *testing.T) {
	a := newTestArena(t, DefaultArenaOptions())

	p, err := a.Alloc(32, 8)
	require.NoError(t, err)
	buf := Bytes(p, 32)
	for i := range buf {
		buf[i] = 0xAB
	}
	require.NoError(t, a.Free(p))

	// Same class comes back from the free list and must be cleared.
	q, err := a.Alloc(32, 8)
	require.NoError(t, err)
	assert.Equal(t, p, q)
	for i, b := range Bytes(q, 32) {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}
}

func TestArena_Alignment(t *testing.T) {
	a := newTestArena(t, DefaultArenaOptions())

	for _, align := range []uintptr{1, 2, 4, 8, 16, 64, 256} {
		p, err := a.Alloc(3, align)
		require.NoError(t, err)
		assert.Zero(t, uintptr(p)%align, "align %d", align)
	}

	_, err := a.Alloc(8, 3)
	assert.ErrorIs(t, err, ErrBadAlign)
}

func TestArena_DistinctAllocations(t *testing.T) {
	a := newTestArena(t, DefaultArenaOptions())

	seen := make(map[uintptr]bool)
	for i := 0; i < 1000; i++ {
		p, err := a.Alloc(24, 8)
		require.NoError(t, err)
		assert.False(t, seen[uintptr(p)], "address reused while live")
		seen[uintptr(p)] = true
	}
	assert.Equal(t, 1000, a.Stats().Live)
	assert.Greater(t, a.Stats().Chunks, 0)
}

func TestArena_Large(t *testing.T) {
	a := newTestArena(t, ArenaOptions{ChunkSize: 4096})

	p, err := a.Alloc(1<<20, 8)
	require.NoError(t, err)
	assert.True(t, a.Owns(p))
	Bytes(p, 1<<20)[1<<20-1] = 1

	before := a.Stats().MappedBytes
	require.NoError(t, a.Free(p))
	assert.Less(t, a.Stats().MappedBytes, before)
}

func TestArena_MaxBytes(t *testing.T) {
	a := newTestArena(t, ArenaOptions{ChunkSize: pageSize(), MaxBytes: int64(pageSize())})

	_, err := a.Alloc(16, 8)
	require.NoError(t, err)

	_, err = a.Alloc(1<<16, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, ffierrors.ErrAllocFailed)
	assert.True(t, ffierrors.IsRecoverable(err))
}

func TestArena_FreeForeign(t *testing.T) {
	a := newTestArena(t, DefaultArenaOptions())

	var local int64
	err := a.Free(unsafe.Pointer(&local))
	assert.ErrorIs(t, err, ffierrors.ErrForeignPointer)

	p, err := a.Alloc(8, 8)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))
	assert.ErrorIs(t, a.Free(p), ffierrors.ErrForeignPointer, "double free must be reported")

	assert.NoError(t, a.Free(nil))
}

func TestArena_Closed(t *testing.T) {
	a := NewArena(DefaultArenaOptions())
	_, err := a.Alloc(8, 8)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "double close should be a no-op")

	_, err = a.Alloc(8, 8)
	assert.ErrorIs(t, err, ErrArenaClosed)
}

func TestNew(t *testing.T) {
	a := newTestArena(t, DefaultArenaOptions())

	type pair struct{ A, B int64 }
	p, err := New[pair](a)
	require.NoError(t, err)
	assert.Equal(t, pair{}, *p)
	p.A, p.B = 1, 2
	assert.Equal(t, int64(3), p.A+p.B)
	require.NoError(t, a.Free(unsafe.Pointer(p)))
}

func TestSizeClass(t *testing.T) {
	tests := []struct {
		size, align, want uintptr
	}{
		{0, 1, 16},
		{1, 1, 16},
		{16, 8, 16},
		{17, 8, 32},
		{4, 64, 64},
		{100, 4, 128},
	}
	for _, tc := range tests {
		if got := sizeClass(tc.size, tc.align); got != tc.want {
			t.Errorf("sizeClass(%d, %d) = %d, want %d", tc.size, tc.align, got, tc.want)
		}
	}
}

func BenchmarkArena_AllocFree(b *testing.B) {
	a := NewArena(DefaultArenaOptions())
	defer a.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p, err := a.Alloc(16, 8)
		if err != nil {
			b.Fatal(err)
		}
		_ = a.Free(p)
	}
}
