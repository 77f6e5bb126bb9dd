// pkg/generic/option.go
// Generic Option type for values that may be absent
//
// LEARN: The boundary hands C a pointer or NULL. On the Go side the same
// outcome is an Option: Some(value) or None. A None may remember why it is
// empty, which the caller can log before turning it into a NULL.

package generic

import "errors"

// Option holds either a value of type T or nothing.
//
// LEARN: The zero value of Option is None with no reason, so a forgotten
// initialization reads as "absent" rather than as a valid zero value.
type Option[T any] struct {
	value  T
	reason error
	ok     bool
}

// Some creates an Option containing value.
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, ok: true}
}

// None creates an empty Option. reason may be nil.
func None[T any](reason error) Option[T] {
	return Option[T]{reason: reason}
}

// IsSome reports whether the Option holds a value.
func (o Option[T]) IsSome() bool {
	return o.ok
}

// IsNone reports whether the Option is empty.
func (o Option[T]) IsNone() bool {
	return !o.ok
}

// Get returns the value and whether it was present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Unwrap returns the value, or the reason the Option is empty.
// An empty Option without a reason reports ErrNone.
func (o Option[T]) Unwrap() (T, error) {
	if !o.ok {
		var zero T
		if o.reason == nil {
			return zero, ErrNone
		}
		return zero, o.reason
	}
	return o.value, nil
}

// MustUnwrap returns the value or panics when empty.
//
// LEARN: Use only in tests or after an explicit IsSome check.
func (o Option[T]) MustUnwrap() T {
	v, err := o.Unwrap()
	if err != nil {
		panic("called MustUnwrap on None: " + err.Error())
	}
	return v
}

// Reason returns why the Option is empty, nil when it holds a value.
func (o Option[T]) Reason() error {
	if o.ok {
		return nil
	}
	return o.reason
}

// ErrNone is returned when unwrapping an empty Option that has no reason.
var ErrNone = errors.New("option: no value present")
