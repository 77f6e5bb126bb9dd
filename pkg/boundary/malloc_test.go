// pkg/boundary/malloc_test.go
// Tests for the allocator bridge

package boundary

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/khaaliswooden-max/ffibridge/pkg/alloc"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

func TestNewInt(t *testing.T) {
	a := newTestArena(t)

	m, err := NewInt(a, 7).Unwrap()
	if err != nil {
		t.Fatalf("NewInt: %v", err)
	}

	got := Borrow(m.Ptr(), func(r Ref[int32]) int32 { return *r.Get() })
	if got != 7 {
		t.Errorf("read through borrow = %d, want 7", got)
	}
	if m.Get() != 7 {
		t.Errorf("Get() = %d", m.Get())
	}
	if !a.Owns(unsafe.Pointer(m.Ptr())) {
		t.Error("value not on the arena")
	}

	if err := FreeInt(m); err != nil {
		t.Fatalf("FreeInt: %v", err)
	}
	if a.Stats().Live != 0 {
		t.Errorf("leak: %d live", a.Stats().Live)
	}
	if err := FreeInt(m); !errors.Is(err, ffierrors.ErrForeignPointer) {
		t.Errorf("double free = %v, want ErrForeignPointer", err)
	}
}

func TestNewInt_AllocFailure(t *testing.T) {
	a := alloc.NewArena(alloc.DefaultArenaOptions())
	a.Close()

	o := NewInt(a, 1)
	if o.IsSome() {
		t.Fatal("expected None from a closed arena")
	}
	if o.Reason() == nil {
		t.Error("None should carry the reason")
	}
}

func TestNewMalloc_Struct(t *testing.T) {
	a := newTestArena(t)

	m := NewMalloc(a, Point{1, 2}).MustUnwrap()
	if m.Get() != (Point{1, 2}) {
		t.Errorf("Get() = %v", m.Get())
	}

	adopted := AdoptMalloc(a, m.Ptr())
	if err := FreeMalloc(adopted); err != nil {
		t.Fatal(err)
	}
}

func TestNewMalloc_RejectsPointers(t *testing.T) {
	a := newTestArena(t)

	o := NewMalloc(a, struct{ S string }{"x"})
	if o.IsSome() {
		t.Fatal("types holding Go pointers must not go on the arena")
	}
	if !errors.Is(o.Reason(), ffierrors.ErrNotFixedSize) {
		t.Errorf("reason = %v", o.Reason())
	}

	var nilIface any
	if NewMalloc(a, nilIface).IsSome() {
		t.Error("nil interface accepted")
	}
}

func TestFreeMalloc_Zero(t *testing.T) {
	if err := FreeMalloc(Malloc[int32]{}); !errors.Is(err, ffierrors.ErrNilHandle) {
		t.Errorf("FreeMalloc(zero) = %v", err)
	}
}
