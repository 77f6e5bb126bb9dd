// pkg/headergen/watch.go
// Rescanning a package whenever its Go files change
//
// LEARN: Editors save a file as several events (truncate, write, chmod,
// sometimes rename-over). A debounce timer collapses a burst into one
// rescan.

package headergen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last event
// before rescanning.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc receives the result of each rescan. err is the scan error,
// in which case exports is nil.
type ChangeFunc func(exports []Export, err error)

// Watcher rescans a package directory when its non-test Go files change.
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger

	fsWatcher *fsnotify.Watcher
	wg        sync.WaitGroup
}

// WatchConfig configures NewWatcher.
type WatchConfig struct {
	Dir      string
	Debounce time.Duration // 0 means DefaultDebounce
	OnChange ChangeFunc
	Logger   *slog.Logger // nil means slog.Default()
}

// NewWatcher starts watching cfg.Dir. The watch runs until ctx is done
// or Close is called.
func NewWatcher(ctx context.Context, cfg WatchConfig) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("watch %s: no change callback", cfg.Dir)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file system watcher: %w", err)
	}
	if err := fsWatcher.Add(cfg.Dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}

	w := &Watcher{
		dir:       cfg.Dir,
		debounce:  cfg.Debounce,
		onChange:  cfg.OnChange,
		logger:    cfg.Logger,
		fsWatcher: fsWatcher,
	}
	w.wg.Add(1)
	go w.loop(ctx)
	return w, nil
}

// Close stops the watch and waits for a pending rescan to finish.
func (w *Watcher) Close() error {
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	// The timer only ever fires on this goroutine's channel, so rescans
	// never overlap.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("source changed", "file", event.Name, "op", event.Op.String())
			resetTimer(timer, w.debounce)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "dir", w.dir, "error", err)

		case <-timer.C:
			exports, err := ScanExports(w.dir)
			if err != nil {
				exports = nil
			}
			w.onChange(exports, err)
		}
	}
}

// resetTimer restarts t with a drained channel. A tick that fired while
// this goroutine was busy with an event would otherwise start a rescan
// before the debounce has elapsed.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// relevant reports whether event can change the set of exports.
func relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
		return false
	}
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
}
