// pkg/boundary/callback.go
// Closures crossing in both directions

package boundary

import (
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// RefFn0 is a borrowed zero-argument callable. It may be called any
// number of times during the call it was passed to and never after.
//
// LEARN: Borrowing avoids allocating a box and transferring ownership when
// one synchronous call is all the callee needs.
type RefFn0[R any] struct {
	fn func() R
	s  *scope
}

// WithRefFn0 lends fn to body as a RefFn0 that expires when body returns.
func WithRefFn0[R, Out any](fn func() R, body func(RefFn0[R]) Out) Out {
	s := &scope{}
	defer func() { s.done = true }()
	return body(RefFn0[R]{fn: fn, s: s})
}

// Call invokes the borrowed callable.
func (r RefFn0[R]) Call() R {
	r.s.check("RefFn0.Call")
	return r.fn()
}

// TryCall is Call reporting an expired borrow as an error.
func (r RefFn0[R]) TryCall() (R, error) {
	if r.s == nil || r.s.done {
		var zero R
		return zero, ffierrors.ErrBorrowExpired
	}
	return r.fn(), nil
}

// BoxFn1 is an owned one-argument closure. The holder may call it any
// number of times until Release; calls after that fail fast.
type BoxFn1[A, R any] struct {
	fn       func(A) R
	released bool
}

// NewBoxFn1 boxes fn. The caller owns the result.
func NewBoxFn1[A, R any](fn func(A) R) *BoxFn1[A, R] {
	return &BoxFn1[A, R]{fn: fn}
}

// Call invokes the closure.
func (b *BoxFn1[A, R]) Call(a A) R {
	if b.released {
		panic(ffierrors.WrapContract("BoxFn1.Call", ffierrors.ErrReleased))
	}
	return b.fn(a)
}

// Release drops the closure and whatever it captured.
func (b *BoxFn1[A, R]) Release() error {
	if b.released {
		return ffierrors.ErrDoubleRelease
	}
	b.released = true
	b.fn = nil
	return nil
}

// Live reports whether Release has not run yet.
func (b *BoxFn1[A, R]) Live() bool {
	return !b.released
}

// CallClosures calls p once, while it is still borrowed, and hands back an
// owned identity closure the caller may keep.
func CallClosures(p RefFn0[int32]) *BoxFn1[int32, int32] {
	p.Call()
	return NewBoxFn1(func(x int32) int32 { return x })
}
