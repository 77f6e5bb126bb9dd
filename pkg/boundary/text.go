// pkg/boundary/text.go
// NUL-terminated text, borrowed or owned

package boundary

import (
	"bytes"
	"fmt"
	"unicode/utf8"
	"unsafe"

	"github.com/khaaliswooden-max/ffibridge/pkg/alloc"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// staticText lives for the whole process. Callers get a reference to it,
// never ownership.
const staticText = "123123"

// StaticText returns the process-wide constant text.
func StaticText() string {
	return staticText
}

// ValidateText checks that b can cross as text: valid UTF-8 and no
// interior NUL, which would silently truncate it on the C side.
//
// LEARN: Invalid input is rejected, not repaired. Replacing bad bytes
// would hand the caller text it never sent.
func ValidateText(b []byte) error {
	if !utf8.Valid(b) {
		return ffierrors.ErrInvalidText
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return fmt.Errorf("%w: interior NUL", ffierrors.ErrInvalidText)
	}
	return nil
}

// FormatOK is the derivative text print_msg returns: "ok " + msg.
func FormatOK(msg string) (string, error) {
	if err := ValidateText([]byte(msg)); err != nil {
		return "", err
	}
	return "ok " + msg, nil
}

// BorrowCString reads a NUL-terminated string at p without copying.
// The result aliases p and is only valid for the current call.
func BorrowCString(p unsafe.Pointer) []byte {
	if p == nil {
		return nil
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return unsafe.Slice((*byte)(p), n)
}

// OwnedText is NUL-terminated text in allocator memory. Its owner must
// call Release exactly once, and the memory goes back to the allocator
// that produced it.
type OwnedText struct {
	p        unsafe.Pointer
	n        int
	a        alloc.Allocator
	released bool
}

// NewOwnedText copies s into memory from a and terminates it with NUL.
func NewOwnedText(a alloc.Allocator, s string) (*OwnedText, error) {
	if err := ValidateText([]byte(s)); err != nil {
		return nil, err
	}

	p, err := a.Alloc(uintptr(len(s)+1), 1)
	if err != nil {
		return nil, err
	}
	buf := alloc.Bytes(p, len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0

	return &OwnedText{p: p, n: len(s), a: a}, nil
}

// Ptr returns the address of the first byte, suitable for a char*.
func (t *OwnedText) Ptr() unsafe.Pointer {
	return t.p
}

// Len returns the length without the terminator.
func (t *OwnedText) Len() int {
	return t.n
}

// String copies the text into a Go string.
func (t *OwnedText) String() string {
	if t.released {
		panic(ffierrors.WrapContract("OwnedText.String", ffierrors.ErrReleased))
	}
	return string(alloc.Bytes(t.p, t.n))
}

// Release gives the memory back to its allocator.
func (t *OwnedText) Release() error {
	if t.released {
		return ffierrors.ErrDoubleRelease
	}
	t.released = true
	return t.a.Free(t.p)
}

// Allocator returns the allocator that must free this text.
func (t *OwnedText) Allocator() alloc.Allocator {
	return t.a
}
