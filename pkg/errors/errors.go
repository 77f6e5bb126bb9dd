// pkg/errors/errors.go
// Centralized error definitions for the boundary layer
//
// LEARN: Sentinel errors are package-level variables that callers can
// compare against using errors.Is(). Across the C boundary there are no
// error values, only NULL/0 returns or an abort, so these errors live on
// the Go side and get mapped to codes before anything crosses.

package errors

import (
	stderrors "errors"
	"fmt"
)

// Re-export stdlib errors functions for convenience.
// This allows callers to use errors.Is() without importing both packages.
var (
	Is     = stderrors.Is
	As     = stderrors.As
	Unwrap = stderrors.Unwrap
	New    = stderrors.New
)

// === Sentinel Errors ===

var (
	// Contract violations: the caller broke an ownership rule.
	ErrReleased          = stderrors.New("handle already released")
	ErrBorrowExpired     = stderrors.New("borrowed reference used after its call returned")
	ErrDoubleRelease     = stderrors.New("resource released twice")
	ErrForeignPointer    = stderrors.New("pointer not produced by this allocator")
	ErrAllocatorMismatch = stderrors.New("released through a different allocator than it was produced by")
	ErrInvalidText       = stderrors.New("text is not valid UTF-8")
	ErrNilHandle         = stderrors.New("nil handle")

	// Resource exhaustion: recoverable only where the API returns an option.
	ErrAllocFailed = stderrors.New("allocation failed")

	// Layout errors reported while building interface metadata.
	ErrPadding       = stderrors.New("struct layout has padding")
	ErrNotFixedSize  = stderrors.New("field type has no fixed size")
	ErrUnknownExport = stderrors.New("entry point not declared")
)

// === Wrapped Errors ===

// WrapContract attaches the entry point name to a contract violation.
func WrapContract(entry string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: contract violation: %w", entry, err)
}

// WrapAlloc wraps an allocator failure with the allocator name and size.
func WrapAlloc(allocator string, size uintptr, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: alloc %d bytes: %w", allocator, size, err)
}

// WrapLayout wraps a layout problem with the type and field it was found on.
func WrapLayout(typ, field string, err error) error {
	if err == nil {
		return nil
	}
	if field == "" {
		return fmt.Errorf("layout of %s: %w", typ, err)
	}
	return fmt.Errorf("layout of %s.%s: %w", typ, field, err)
}

// === Error Codes ===
// Machine-readable codes written to the ownership ledger and logs.

const (
	CodeContract = "FFI_CONTRACT"
	CodeAlloc    = "FFI_ALLOC"
	CodeEncoding = "FFI_ENCODING"
	CodeLayout   = "FFI_LAYOUT"
	CodeInternal = "FFI_INTERNAL"
)

// ErrorCode returns the code for err.
//
// LEARN: Order matters: check most specific errors first.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrInvalidText):
		return CodeEncoding
	case Is(err, ErrAllocFailed):
		return CodeAlloc
	case Is(err, ErrPadding), Is(err, ErrNotFixedSize):
		return CodeLayout
	case IsContractViolation(err):
		return CodeContract
	default:
		return CodeInternal
	}
}

// IsContractViolation reports whether err means the caller broke an
// ownership or encoding rule, as opposed to the layer running out of memory.
func IsContractViolation(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrReleased) ||
		Is(err, ErrBorrowExpired) ||
		Is(err, ErrDoubleRelease) ||
		Is(err, ErrForeignPointer) ||
		Is(err, ErrAllocatorMismatch) ||
		Is(err, ErrInvalidText) ||
		Is(err, ErrNilHandle)
}

// IsRecoverable reports whether the caller may retry or fall back.
// Only allocation failure qualifies.
func IsRecoverable(err error) bool {
	return err != nil && Is(err, ErrAllocFailed)
}
