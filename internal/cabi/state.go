//go:build cgo

// internal/cabi/state.go
// Process-wide state behind the entry points

package cabi

/*
#include <stdlib.h>
#include "ffibridge_types.h"
*/
import "C"

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"github.com/khaaliswooden-max/ffibridge/internal/audit"
	"github.com/khaaliswooden-max/ffibridge/internal/logging"
	"github.com/khaaliswooden-max/ffibridge/pkg/alloc"
	"github.com/khaaliswooden-max/ffibridge/pkg/boundary"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// Environment variables read once when the library loads.
const (
	EnvLogLevel  = "FFIBRIDGE_LOG_LEVEL"
	EnvAuditFile = "FFIBRIDGE_AUDIT_FILE"
	EnvAllocator = "FFIBRIDGE_ALLOCATOR"
)

// Ledger kinds.
const (
	kindText        = "text"
	kindInt         = "int32"
	kindComplicated = boundary.ComplicatedType
	kindClosure     = boundary.BoxFn1Type
)

var (
	logger = logging.FromEnv(EnvLogLevel, slog.LevelWarn)

	heap = &heapSwitch{a: newAllocator(os.Getenv(EnvAllocator))}

	ledger = audit.NewLedger(audit.LedgerConfig{
		Sink:   ledgerSink(os.Getenv(EnvAuditFile)),
		Logger: logger,
	})

	console = &consoleWriter{w: os.Stdout}

	objects  = boundary.NewHandles[boundary.Complicated](kindComplicated, heap)
	closures = boundary.NewHandles[boundary.BoxFn1[int32, int32]](kindClosure, heap)
	texts    = &textTable{m: make(map[uintptr]*boundary.OwnedText)}
)

func init() {
	// Point crosses by value and by pointer cast; both sides must agree.
	err := boundary.CheckFixedLayout(boundary.Point{})
	if err == nil && unsafe.Sizeof(C.Point_t{}) != unsafe.Sizeof(boundary.Point{}) {
		err = fmt.Errorf("Point_t is %d bytes, Go Point is %d: %w",
			unsafe.Sizeof(C.Point_t{}), unsafe.Sizeof(boundary.Point{}), ffierrors.ErrPadding)
	}
	if err != nil {
		logger.Error("layout mismatch", "error", err)
		abortProcess(err)
	}
}

func newAllocator(name string) alloc.Allocator {
	switch name {
	case "", "c-heap":
		return CHeap{}
	case "arena":
		return alloc.NewArena(alloc.DefaultArenaOptions())
	default:
		logger.Warn("unknown allocator, using c-heap", "allocator", name)
		return CHeap{}
	}
}

func ledgerSink(path string) audit.Sink {
	if path == "" {
		return nil
	}
	fl, err := audit.NewFileLogger(path)
	if err != nil {
		logger.Warn("ledger file unavailable", "file", path, "error", err)
		return nil
	}
	return fl
}

// === Panic guard ===

// abortProcess ends the process. Tests and Probe replace it to observe
// what would have aborted.
var abortProcess = func(reason any) {
	C.abort()
}

// guard must be deferred first thing in every entry point:
//
//	defer guard("name")()
//
// LEARN: recover only works when called directly by the deferred
// function, hence the returned closure rather than guard itself.
func guard(entry string) func() {
	return func() {
		r := recover()
		if r == nil {
			return
		}
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("%v", r)
		}
		logger.Error("fatal at C boundary",
			"entry", entry,
			"error", err,
			"code", ffierrors.ErrorCode(err),
		)
		abortProcess(err)
	}
}

// violation reports a broken ownership rule. It panics; guard turns the
// panic into an abort.
func violation(entry string, err error) {
	panic(ffierrors.WrapContract(entry, err))
}

// acquire records p as handed to the caller by entry.
func acquire(entry, kind string, p unsafe.Pointer) {
	if err := ledger.Acquire(entry, kind, uintptr(p), heap.Name()); err != nil {
		panic(err)
	}
}

// release checks that p may be given back through entry.
func release(entry, kind string, p unsafe.Pointer) {
	if err := ledger.Release(entry, kind, uintptr(p), heap.Name()); err != nil {
		violation(entry, err)
	}
}

// === Console ===

// consoleWriter serializes writes from entry points running on several
// C threads.
type consoleWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *consoleWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// redirect points the console at w until restore is called.
func (c *consoleWriter) redirect(w io.Writer) (restore func()) {
	c.mu.Lock()
	prev := c.w
	c.w = w
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.w = prev
		c.mu.Unlock()
	}
}

// === Owned text ===

// textTable finds the OwnedText behind an address handed to C.
type textTable struct {
	mu sync.Mutex
	m  map[uintptr]*boundary.OwnedText
}

func (t *textTable) put(o *boundary.OwnedText) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[uintptr(o.Ptr())] = o
}

func (t *textTable) take(p unsafe.Pointer) *boundary.OwnedText {
	t.mu.Lock()
	defer t.mu.Unlock()
	o := t.m[uintptr(p)]
	delete(t.m, uintptr(p))
	return o
}

// newText copies s onto the heap, records it and returns it as a char*.
// Running out of memory here is fatal.
func newText(entry, s string) *C.char {
	o, err := boundary.NewOwnedText(heap, s)
	if err != nil {
		panic(err)
	}
	texts.put(o)
	acquire(entry, kindText, o.Ptr())
	return (*C.char)(o.Ptr())
}

// Outstanding returns the resources handed to C and not yet released.
func Outstanding() []audit.Entry {
	return ledger.Outstanding()
}

// SetAuditSink sends ledger entries to s from now on. Nil discards them.
func SetAuditSink(s audit.Sink) {
	ledger.SetSink(s)
}

// SetLogger replaces the library's logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}
