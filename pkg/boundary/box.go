// pkg/boundary/box.go
// Unique ownership: a heap object released exactly once

package boundary

import (
	"fmt"

	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// Box owns a single heap object.
//
// LEARN: Go cannot move a value out of a variable the way an affine type
// system can, so Box models "consumed" at runtime instead: every copy of a
// Box shares one cell, and Drop empties that cell. Whichever copy is used
// afterwards observes the drop and fails fast rather than reading freed
// state.
type Box[T any] struct {
	c *boxCell[T]
}

type boxCell[T any] struct {
	v    *T
	drop func(*T)
}

// NewBox takes ownership of v. drop, if not nil, runs once when the box is
// dropped and releases whatever v owns.
func NewBox[T any](v *T, drop func(*T)) Box[T] {
	if v == nil {
		panic(ffierrors.WrapContract("NewBox", ffierrors.ErrNilHandle))
	}
	return Box[T]{c: &boxCell[T]{v: v, drop: drop}}
}

// Get borrows the owned value. The pointer must not be kept past Drop.
func (b Box[T]) Get() (*T, error) {
	if b.c == nil {
		return nil, ffierrors.ErrNilHandle
	}
	if b.c.v == nil {
		return nil, ffierrors.ErrReleased
	}
	return b.c.v, nil
}

// MustGet is Get for callers that treat a dead box as a contract violation.
func (b Box[T]) MustGet() *T {
	v, err := b.Get()
	if err != nil {
		panic(ffierrors.WrapContract("Box.Get", err))
	}
	return v
}

// Live reports whether the box still owns its value.
func (b Box[T]) Live() bool {
	return b.c != nil && b.c.v != nil
}

// Drop consumes b: it runs the drop function and invalidates every copy.
// Dropping a box twice reports ErrDoubleRelease and does nothing.
func Drop[T any](b Box[T]) error {
	if b.c == nil {
		return ffierrors.ErrNilHandle
	}
	if b.c.v == nil {
		return ffierrors.ErrDoubleRelease
	}

	v := b.c.v
	b.c.v = nil
	if b.c.drop != nil {
		b.c.drop(v)
	}
	return nil
}

// String is for logs; it never exposes the boxed value.
func (b Box[T]) String() string {
	var zero T
	state := "live"
	if !b.Live() {
		state = "released"
	}
	return fmt.Sprintf("Box[%T](%s)", zero, state)
}
