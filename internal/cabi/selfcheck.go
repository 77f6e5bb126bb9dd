//go:build cgo

// internal/cabi/selfcheck.go
// Driving the entry points from C
//
// LEARN: Test files cannot use cgo, so the C side of the tests lives
// here. Each check is a C function that calls the exported entry points
// the way a C program would and returns 0 or the number of the first
// step that went wrong.

package cabi

/*
#include "ffibridge_types.h"

// Implemented in selfcheck.c
extern int ffibridge_check_values(void);
extern int ffibridge_check_text(void);
extern int ffibridge_check_closures(void);
extern int ffibridge_check_opaque(void);
extern int ffibridge_check_alloc(void);
extern int ffibridge_check_alloc_failure(void);
extern void ffibridge_probe_double_free(void);
extern void ffibridge_probe_double_destroy(void);
extern void ffibridge_probe_call_after_free(void);
extern void ffibridge_probe_wrong_release(void);
extern void ffibridge_probe_null_handle(void);
*/
import "C"

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/khaaliswooden-max/ffibridge/pkg/alloc"
)

// ErrCheckFailed is wrapped by every failed self-check.
var ErrCheckFailed = errors.New("self-check failed")

type check struct {
	name string
	run  func() C.int
	// console lines the check must print, in order
	prints []string
	setup  func() (teardown func())
}

var checks = []check{
	{
		name:   "values",
		run:    func() C.int { return C.ffibridge_check_values() },
		prints: []string{"Point { x: 2.0, y: 4.0 }"},
	},
	{
		name:   "text",
		run:    func() C.int { return C.ffibridge_check_text() },
		prints: []string{"abc"},
	},
	{
		name: "closures",
		run:  func() C.int { return C.ffibridge_check_closures() },
	},
	{
		name:   "opaque",
		run:    func() C.int { return C.ffibridge_check_opaque() },
		prints: []string{"path = `/tmp`", "path = `/tmp`", "path = `/var/data`"},
	},
	{
		name: "alloc",
		run:  func() C.int { return C.ffibridge_check_alloc() },
	},
	{
		name:  "alloc-failure",
		run:   func() C.int { return C.ffibridge_check_alloc_failure() },
		setup: failingHeap,
	},
}

// failingHeap points the entry points at an allocator that always fails.
func failingHeap() func() {
	a := alloc.NewArena(alloc.DefaultArenaOptions())
	a.Close()
	return heap.swap(a)
}

// SelfCheck runs every check and returns the failures joined together.
// Each check must leave the ledger as it found it.
func SelfCheck() error {
	var errs []error
	for _, c := range checks {
		if err := runCheck(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Checks lists the check names in run order.
func Checks() []string {
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.name
	}
	return names
}

// RunCheck runs a single check by name.
func RunCheck(name string) error {
	for _, c := range checks {
		if c.name == name {
			return runCheck(c)
		}
	}
	return fmt.Errorf("unknown check %q", name)
}

func runCheck(c check) error {
	var out bytes.Buffer
	restore := console.redirect(&out)
	defer restore()

	if c.setup != nil {
		defer c.setup()()
	}

	before := ledger.Count()
	if step := c.run(); step != 0 {
		return fmt.Errorf("%s: step %d: %w", c.name, int(step), ErrCheckFailed)
	}
	if after := ledger.Count(); after != before {
		return fmt.Errorf("%s: %d resources leaked: %w", c.name, after-before, ErrCheckFailed)
	}

	printed := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(c.prints) == 0 {
		return nil
	}
	if len(printed) != len(c.prints) {
		return fmt.Errorf("%s: printed %q, want %q: %w", c.name, printed, c.prints, ErrCheckFailed)
	}
	for i := range c.prints {
		if printed[i] != c.prints[i] {
			return fmt.Errorf("%s: line %d is %q, want %q: %w", c.name, i, printed[i], c.prints[i], ErrCheckFailed)
		}
	}
	return nil
}

var probes = map[string]func(){
	"double-free":     func() { C.ffibridge_probe_double_free() },
	"double-destroy":  func() { C.ffibridge_probe_double_destroy() },
	"call-after-free": func() { C.ffibridge_probe_call_after_free() },
	"wrong-release":   func() { C.ffibridge_probe_wrong_release() },
	"null-handle":     func() { C.ffibridge_probe_null_handle() },
}

// Probes lists the available contract-violation probes.
func Probes() []string {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Probe commits one deliberate contract violation from C with the abort
// replaced, and returns the first error the guard caught. A nil result
// means the violation went undetected.
//
// Probe is not safe to run concurrently with other calls into the library.
func Probe(name string) error {
	run, ok := probes[name]
	if !ok {
		return fmt.Errorf("unknown probe %q", name)
	}

	var caught error
	prev := abortProcess
	abortProcess = func(reason any) {
		if caught != nil {
			return
		}
		if err, ok := reason.(error); ok {
			caught = err
		} else {
			caught = fmt.Errorf("%v", reason)
		}
	}
	defer func() { abortProcess = prev }()

	var out bytes.Buffer
	restore := console.redirect(&out)
	defer restore()

	run()
	return caught
}
