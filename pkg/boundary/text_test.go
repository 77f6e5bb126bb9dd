// pkg/boundary/text_test.go
// Tests for borrowed and owned text

package boundary

import (
	"errors"
	"testing"
	"unsafe"

	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

func TestFormatOK(t *testing.T) {
	tests := []struct {
		msg     string
		want    string
		wantErr error
	}{
		{"abc", "ok abc", nil},
		{"", "ok ", nil},
		{"héllo wörld", "ok héllo wörld", nil},
		{"bad\xff", "", ffierrors.ErrInvalidText},
		{"nul\x00inside", "", ffierrors.ErrInvalidText},
	}

	for _, tc := range tests {
		got, err := FormatOK(tc.msg)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("FormatOK(%q) error = %v, want %v", tc.msg, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("FormatOK(%q) = %q, want %q", tc.msg, got, tc.want)
		}
	}
}

func TestStaticText(t *testing.T) {
	if StaticText() != "123123" {
		t.Errorf("StaticText() = %q", StaticText())
	}
	if StaticText() != StaticText() {
		t.Error("static text changed between calls")
	}
}

func TestOwnedText_Lifecycle(t *testing.T) {
	a := newTestArena(t)

	msg, err := FormatOK("abc")
	if err != nil {
		t.Fatal(err)
	}
	owned, err := NewOwnedText(a, msg)
	if err != nil {
		t.Fatalf("NewOwnedText: %v", err)
	}

	if owned.String() != "ok abc" || owned.Len() != 6 {
		t.Errorf("owned = %q (len %d)", owned.String(), owned.Len())
	}
	if owned.Allocator() != a {
		t.Error("text does not remember its allocator")
	}

	// Readable through a borrowed C string, terminator included.
	if got := string(BorrowCString(owned.Ptr())); got != "ok abc" {
		t.Errorf("borrowed read = %q", got)
	}
	if *(*byte)(unsafe.Add(owned.Ptr(), owned.Len())) != 0 {
		t.Error("missing NUL terminator")
	}

	if a.Stats().Live != 1 {
		t.Fatalf("live = %d, want 1", a.Stats().Live)
	}
	if err := owned.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if a.Stats().Live != 0 {
		t.Errorf("text leaked: %d live", a.Stats().Live)
	}

	if err := owned.Release(); !errors.Is(err, ffierrors.ErrDoubleRelease) {
		t.Errorf("second Release = %v", err)
	}
	expectPanic(t, ffierrors.ErrReleased, func() { _ = owned.String() })
}

func TestOwnedText_RejectsInvalid(t *testing.T) {
	a := newTestArena(t)

	if _, err := NewOwnedText(a, "\xc3\x28"); !errors.Is(err, ffierrors.ErrInvalidText) {
		t.Errorf("err = %v, want ErrInvalidText", err)
	}
	if a.Stats().Live != 0 {
		t.Error("rejected text still allocated memory")
	}
}

func TestBorrowCString_Nil(t *testing.T) {
	if BorrowCString(nil) != nil {
		t.Error("nil pointer should read as empty")
	}
}
