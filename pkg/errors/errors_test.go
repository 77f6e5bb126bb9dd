package errors

import (
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"encoding", ErrInvalidText, CodeEncoding},
		{"wrapped encoding", WrapContract("print_msg", ErrInvalidText), CodeEncoding},
		{"alloc", WrapAlloc("arena", 8, ErrAllocFailed), CodeAlloc},
		{"layout", WrapLayout("Point", "x", ErrPadding), CodeLayout},
		{"released", ErrReleased, CodeContract},
		{"double release", fmt.Errorf("free_int: %w", ErrDoubleRelease), CodeContract},
		{"other", New("boom"), CodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorCode(tc.err); got != tc.want {
				t.Errorf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsContractViolation(t *testing.T) {
	if IsContractViolation(nil) {
		t.Error("nil reported as contract violation")
	}
	if !IsContractViolation(WrapContract("destroy", ErrReleased)) {
		t.Error("wrapped ErrReleased not detected")
	}
	if IsContractViolation(ErrAllocFailed) {
		t.Error("allocation failure is not a contract violation")
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(WrapAlloc("c-heap", 4, ErrAllocFailed)) {
		t.Error("allocation failure should be recoverable")
	}
	if IsRecoverable(ErrForeignPointer) {
		t.Error("foreign pointer should not be recoverable")
	}
}

func TestWrapNil(t *testing.T) {
	if WrapContract("x", nil) != nil || WrapAlloc("a", 1, nil) != nil || WrapLayout("T", "", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapLayoutMessage(t *testing.T) {
	got := WrapLayout("Point", "", ErrPadding).Error()
	want := "layout of Point: struct layout has padding"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
