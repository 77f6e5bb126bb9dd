// internal/audit/logger.go
// Structured sinks for ownership ledger entries
//
// LEARN: Ledger lines are JSON, one per event:
// - Append-only (a release never rewrites its acquire)
// - Structured (machine parseable, grep by address)
// - Timestamped (UTC)

package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Sink receives ledger entries.
type Sink interface {
	Log(entry Entry) error
}

// Logger writes entries as JSON lines.
//
// LEARN: The mutex keeps lines from interleaving when entry points run
// on several C threads at once.
type Logger struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// New creates a JSON-lines logger. A nil writer means stdout.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{encoder: json.NewEncoder(w)}
}

// Log writes one entry.
func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.encoder.Encode(entry)
}

// === File Logger ===

// FileLogger is a Logger over an append-only file.
type FileLogger struct {
	*Logger
	file *os.File
}

// NewFileLogger opens (or creates) path for appending.
func NewFileLogger(path string) (*FileLogger, error) {
	// O_APPEND keeps each Encode a single append
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &FileLogger{
		Logger: New(file),
		file:   file,
	}, nil
}

// Close closes the underlying file.
func (l *FileLogger) Close() error {
	return l.file.Close()
}

// Sync flushes writes to disk.
func (l *FileLogger) Sync() error {
	return l.file.Sync()
}

// === Multi Logger ===

// MultiLogger fans entries out to several sinks.
type MultiLogger struct {
	sinks []Sink
}

// NewMultiLogger creates a sink that writes to all provided sinks.
func NewMultiLogger(sinks ...Sink) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log writes to every sink and returns the last error, if any.
func (m *MultiLogger) Log(entry Entry) error {
	var lastErr error
	for _, s := range m.sinks {
		if err := s.Log(entry); err != nil {
			lastErr = err
			// Keep going; one broken sink must not hide events from the rest
		}
	}
	return lastErr
}

// === In-Memory Logger (for testing) ===

// MemoryLogger keeps entries in memory.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryLogger creates an in-memory sink.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Log appends the entry.
func (m *MemoryLogger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of everything logged so far.
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Count returns the number of entries.
func (m *MemoryLogger) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Last returns the most recent entry.
func (m *MemoryLogger) Last() *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == 0 {
		return nil
	}
	e := m.entries[len(m.entries)-1]
	return &e
}

// Clear removes all entries.
func (m *MemoryLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = m.entries[:0]
}

// discard drops everything.
type discard struct{}

func (discard) Log(Entry) error { return nil }
