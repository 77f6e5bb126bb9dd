//go:build !cgo

// internal/cabi/cabi_nocgo.go
// Stubs when cgo is disabled
//
// LEARN: The entry points need cgo. Without it the package still
// compiles, so tools like ffigen can import it and report why the
// self-check cannot run.

package cabi

import (
	"errors"
	"log/slog"

	"github.com/khaaliswooden-max/ffibridge/internal/audit"
)

// ErrCgoRequired is returned by every function when cgo is disabled.
var ErrCgoRequired = errors.New("cabi: built without cgo")

// ErrCheckFailed is wrapped by every failed self-check.
var ErrCheckFailed = errors.New("self-check failed")

// SelfCheck reports ErrCgoRequired.
func SelfCheck() error { return ErrCgoRequired }

// Checks returns no checks.
func Checks() []string { return nil }

// RunCheck reports ErrCgoRequired.
func RunCheck(string) error { return ErrCgoRequired }

// Probes returns no probes.
func Probes() []string { return nil }

// Probe reports ErrCgoRequired.
func Probe(string) error { return ErrCgoRequired }

// SetAuditSink does nothing.
func SetAuditSink(audit.Sink) {}

// SetLogger does nothing.
func SetLogger(*slog.Logger) {}

// Outstanding returns nothing; no resources can be handed out.
func Outstanding() []audit.Entry { return nil }
