// pkg/boundary/shared.go
// Shared ownership with last-owner-frees semantics

package boundary

import (
	"sync/atomic"

	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// Shared is a reference-counted value. Each owner holds one reference;
// the value is freed when the last owner releases.
//
// LEARN: The count is atomic so owners on different threads can release
// independently. Reading the value is not synchronized; that is up to
// whoever shares it.
type Shared[T any] struct {
	v      T
	refs   atomic.Int32
	onFree func(T)
}

// NewShared returns a value with one reference held by the caller.
func NewShared[T any](v T, onFree func(T)) *Shared[T] {
	s := &Shared[T]{v: v, onFree: onFree}
	s.refs.Store(1)
	return s
}

// Clone adds an owner. Cloning a freed value is a contract violation.
func (s *Shared[T]) Clone() *Shared[T] {
	for {
		n := s.refs.Load()
		if n <= 0 {
			panic(ffierrors.WrapContract("Shared.Clone", ffierrors.ErrReleased))
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return s
		}
	}
}

// Value returns the shared value. It panics once the last owner released.
func (s *Shared[T]) Value() T {
	if s.refs.Load() <= 0 {
		panic(ffierrors.WrapContract("Shared.Value", ffierrors.ErrReleased))
	}
	return s.v
}

// Release drops one owner and reports whether that freed the value.
func (s *Shared[T]) Release() bool {
	n := s.refs.Add(-1)
	switch {
	case n > 0:
		return false
	case n == 0:
		if s.onFree != nil {
			s.onFree(s.v)
		}
		var zero T
		s.v = zero
		return true
	default:
		panic(ffierrors.WrapContract("Shared.Release", ffierrors.ErrDoubleRelease))
	}
}

// Count returns the current number of owners.
func (s *Shared[T]) Count() int32 {
	return s.refs.Load()
}
