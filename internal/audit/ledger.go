// internal/audit/ledger.go
// Ownership ledger: who holds what across the boundary
//
// LEARN: C has no destructor to tell us when it is done with something,
// so the ledger keeps the outstanding set itself. Every acquire adds an
// address, every release removes it, and anything left at the end is a
// leak. Recently released addresses are remembered so that a second
// release can be told apart from a pointer we never handed out.

package audit

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// DefaultTombstones is how many released addresses are remembered.
const DefaultTombstones = 1024

// Ledger tracks outstanding boundary resources.
type Ledger struct {
	mu         sync.Mutex
	sink       Sink
	log        *slog.Logger
	live       map[uintptr]held
	seq        uint64
	tombstones map[uintptr]string // address -> allocator that freed it
	order      []uintptr          // tombstone eviction order
	maxTombs   int
}

// held is an outstanding acquire. seq orders entries whose timestamps tie.
type held struct {
	entry Entry
	seq   uint64
}

// LedgerConfig configures a Ledger.
type LedgerConfig struct {
	Sink       Sink         // where entries go (default: discard)
	Logger     *slog.Logger // diagnostics (default: slog.Default())
	Tombstones int          // released addresses to remember (default: DefaultTombstones)
}

// NewLedger creates an empty ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Sink == nil {
		cfg.Sink = discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tombstones <= 0 {
		cfg.Tombstones = DefaultTombstones
	}

	return &Ledger{
		sink:       cfg.Sink,
		log:        cfg.Logger.With("component", "ledger"),
		live:       make(map[uintptr]held),
		tombstones: make(map[uintptr]string),
		maxTombs:   cfg.Tombstones,
	}
}

// Acquire records that entry handed addr to the caller.
func (l *Ledger) Acquire(entry, kind string, addr uintptr, allocator string) error {
	e := Entry{
		Timestamp: time.Now().UTC(),
		ID:        uuid.NewString(),
		Action:    ActionAcquire,
		Entry:     entry,
		Kind:      kind,
		Address:   addr,
		Allocator: allocator,
		Success:   true,
	}

	l.mu.Lock()
	var err error
	if prev, ok := l.live[addr]; ok {
		// The allocator handed out an address that is still live.
		err = fmt.Errorf("%s: %#x already outstanding from %s", entry, addr, prev.entry.Entry)
		e.Success = false
		e.ErrorCode = ffierrors.ErrorCode(err)
	} else {
		l.seq++
		l.live[addr] = held{entry: e, seq: l.seq}
		// Address reuse after free is normal.
		delete(l.tombstones, addr)
	}
	l.mu.Unlock()

	l.emit(e, err)
	return err
}

// Release records that entry took addr back. It fails when addr is not
// outstanding, or comes back to a different allocator or through the
// release function of a different kind.
func (l *Ledger) Release(entry, kind string, addr uintptr, allocator string) error {
	e := Entry{
		Timestamp: time.Now().UTC(),
		ID:        uuid.NewString(),
		Action:    ActionRelease,
		Entry:     entry,
		Kind:      kind,
		Address:   addr,
		Allocator: allocator,
		Success:   true,
	}

	l.mu.Lock()
	var err error
	if acq, ok := l.live[addr]; ok {
		switch {
		case acq.entry.Allocator != allocator:
			err = fmt.Errorf("%s: %#x from %s, released to %s: %w",
				entry, addr, acq.entry.Allocator, allocator, ffierrors.ErrAllocatorMismatch)
		case acq.entry.Kind != kind:
			err = fmt.Errorf("%s: %#x is a %s from %s, released as %s: %w",
				entry, addr, acq.entry.Kind, acq.entry.Entry, kind, ffierrors.ErrAllocatorMismatch)
		default:
			delete(l.live, addr)
			l.tombstone(addr, allocator)
		}
	} else if _, ok := l.tombstones[addr]; ok {
		err = fmt.Errorf("%s: %#x: %w", entry, addr, ffierrors.ErrDoubleRelease)
	} else {
		err = fmt.Errorf("%s: %#x: %w", entry, addr, ffierrors.ErrForeignPointer)
	}
	if err != nil {
		e.Success = false
		e.ErrorCode = ffierrors.ErrorCode(err)
	}
	l.mu.Unlock()

	l.emit(e, err)
	return err
}

// tombstone remembers a released address. Caller holds l.mu.
func (l *Ledger) tombstone(addr uintptr, allocator string) {
	if len(l.order) >= l.maxTombs {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.tombstones, oldest)
	}
	l.tombstones[addr] = allocator
	l.order = append(l.order, addr)
}

func (l *Ledger) emit(e Entry, err error) {
	if err != nil {
		l.log.Error("ownership violation",
			"entry", e.Entry,
			"kind", e.Kind,
			"address", fmt.Sprintf("%#x", e.Address),
			"code", e.ErrorCode,
			"error", err,
		)
	} else {
		l.log.Debug(string(e.Action),
			"entry", e.Entry,
			"kind", e.Kind,
			"address", fmt.Sprintf("%#x", e.Address),
		)
	}

	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()

	if serr := sink.Log(e); serr != nil {
		l.log.Warn("ledger sink failed", "error", serr)
	}
}

// SetSink redirects future entries to s. A nil s discards them.
func (l *Ledger) SetSink(s Sink) {
	if s == nil {
		s = discard{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = s
}

// Outstanding returns the acquire entries not yet released, oldest first.
func (l *Ledger) Outstanding() []Entry {
	l.mu.Lock()
	hs := make([]held, 0, len(l.live))
	for _, h := range l.live {
		hs = append(hs, h)
	}
	l.mu.Unlock()

	sort.Slice(hs, func(i, j int) bool { return hs[i].seq < hs[j].seq })

	out := make([]Entry, len(hs))
	for i, h := range hs {
		out[i] = h.entry
	}
	return out
}

// Count returns the number of outstanding resources.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live)
}
