// Package boundary holds the Go side of the C boundary: the types and
// ownership rules that decide who frees what once a value has crossed.
//
// LEARN: Go's GC and cgo's pointer rules protect Go code from itself, but
// a C caller sees raw addresses. Each file here covers one way data can
// cross:
//
//   - point.go     plain values, copied on every crossing
//   - box.go       unique ownership, released exactly once
//   - handles.go   turning boxes into addresses C can hold
//   - shared.go    reference-counted state owned jointly
//   - opaque.go    an object whose layout C never sees
//   - borrow.go    references valid for one call only
//   - view.go      pointer+length views over caller memory
//   - text.go      NUL-terminated text, borrowed or owned
//   - callback.go  closures in both directions
//   - funcptr.go   bare function pointers
//   - malloc.go    single values on a non-Go allocator
//   - layout.go    struct layout checks for crossing types
//   - abi.go       the declared entry points, for header generation
//
// Contract violations (use after release, double release, a reference
// kept past its call) panic with an error wrapping one of the sentinels in
// pkg/errors. The C entry points turn such a panic into an abort, so it
// never unwinds into C.
package boundary
