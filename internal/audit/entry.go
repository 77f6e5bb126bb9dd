// internal/audit/entry.go
// Ledger entry type

package audit

import "time"

// Action is what happened to a resource.
type Action string

const (
	ActionAcquire Action = "acquire"
	ActionRelease Action = "release"
)

// Entry is one line of the ownership ledger.
//
// LEARN: Address is the numeric value of the pointer handed to C. It is
// only an identifier here; the ledger never dereferences it.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Entry     string    `json:"entry"`               // C entry point, e.g. "new_int"
	Kind      string    `json:"kind"`                // resource kind, e.g. "int32", "text"
	Address   uintptr   `json:"address"`
	Allocator string    `json:"allocator"`
	Success   bool      `json:"success"`
	ErrorCode string    `json:"error_code,omitempty"`
}
