// pkg/headergen/verify.go
// Cross-checking declared entry points against //export functions

package headergen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/khaaliswooden-max/ffibridge/pkg/boundary"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// InternalPrefix marks exports that only the library's own C helpers
// call. They are not part of the public header.
const InternalPrefix = "ffibridge_"

// Report lists entry points present on only one side.
type Report struct {
	MissingInGo  []string // declared in the ABI, no //export
	MissingInABI []string // //export with no declaration
}

// OK reports whether both sides agree.
func (r Report) OK() bool {
	return len(r.MissingInGo) == 0 && len(r.MissingInABI) == 0
}

// Err returns nil when both sides agree.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	var parts []string
	if len(r.MissingInGo) > 0 {
		parts = append(parts, "no //export for "+strings.Join(r.MissingInGo, ", "))
	}
	if len(r.MissingInABI) > 0 {
		parts = append(parts, "undeclared //export "+strings.Join(r.MissingInABI, ", "))
	}
	return fmt.Errorf("%s: %w", strings.Join(parts, "; "), ffierrors.ErrUnknownExport)
}

// Verify compares the ABI's functions with the scanned exports.
func Verify(abi boundary.ABI, exports []Export) Report {
	declared := make(map[string]bool, len(abi.Funcs))
	for _, f := range abi.Funcs {
		declared[f.Name] = true
	}

	found := make(map[string]bool, len(exports))
	var r Report
	for _, e := range exports {
		if strings.HasPrefix(e.Name, InternalPrefix) {
			continue
		}
		found[e.Name] = true
		if !declared[e.Name] {
			r.MissingInABI = append(r.MissingInABI, e.Name)
		}
	}
	for name := range declared {
		if !found[name] {
			r.MissingInGo = append(r.MissingInGo, name)
		}
	}

	sort.Strings(r.MissingInGo)
	sort.Strings(r.MissingInABI)
	return r
}
