// Package cabi holds the C entry points of ffibridge.
//
// Every function marked //export here is part of the C library built by
// cmd/ffibridge. Each one:
//
//   - converts its C arguments into the boundary package's Go types,
//   - records handed-out and returned resources in the ownership ledger,
//   - runs under guard, so a panic is logged and the process aborts
//     instead of unwinding into C frames.
//
// Resources handed to C live on a non-Go allocator (the C heap by
// default, an mmap arena when FFIBRIDGE_ALLOCATOR=arena), never on the Go
// heap.
//
// Environment:
//
//	FFIBRIDGE_LOG_LEVEL   debug, info, warn, error (default warn)
//	FFIBRIDGE_AUDIT_FILE  append ledger entries as JSON lines to this file
//	FFIBRIDGE_ALLOCATOR   c-heap (default) or arena
//
// Without cgo the package only provides SelfCheck and Probe stubs that
// report ErrCgoRequired.
package cabi
