// pkg/boundary/borrow.go
// References valid for the duration of one call

package boundary

import (
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// scope marks the lifetime of a call. Everything borrowed inside it dies
// when the call returns.
type scope struct {
	done bool
}

func (s *scope) check(what string) {
	if s == nil || s.done {
		panic(ffierrors.WrapContract(what, ffierrors.ErrBorrowExpired))
	}
}

// Ref is a non-owning reference. It carries no release obligation and is
// usable only while the call that received it is running.
type Ref[T any] struct {
	v *T
	s *scope
}

// Borrow lends v to body. The Ref is dead once body returns, so storing it
// somewhere and using it later fails fast.
func Borrow[T, R any](v *T, body func(Ref[T]) R) R {
	s := &scope{}
	defer func() { s.done = true }()
	return body(Ref[T]{v: v, s: s})
}

// Borrow2 lends a and b to body under one call scope.
func Borrow2[A, B, R any](a *A, b *B, body func(Ref[A], Ref[B]) R) R {
	s := &scope{}
	defer func() { s.done = true }()
	return body(Ref[A]{v: a, s: s}, Ref[B]{v: b, s: s})
}

// Get returns the referenced value.
func (r Ref[T]) Get() *T {
	r.s.check("Ref.Get")
	return r.v
}

// Valid reports whether the lending call is still running.
func (r Ref[T]) Valid() bool {
	return r.s != nil && !r.s.done
}
