// pkg/headergen/watch_test.go

package headergen

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scan struct {
	exports []Export
	err     error
}

func startWatcher(t *testing.T, dir string) <-chan scan {
	t.Helper()
	ch := make(chan scan, 8)
	ctx, cancel := context.WithCancel(context.Background())
	w, err := NewWatcher(ctx, WatchConfig{
		Dir:      dir,
		Debounce: 20 * time.Millisecond,
		OnChange: func(exports []Export, err error) { ch <- scan{exports, err} },
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return ch
}

// waitScan returns the first rescan satisfying ok. A single change can
// produce more than one rescan when its events straddle the debounce.
func waitScan(t *testing.T, ch <-chan scan, ok func(scan) bool) scan {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-ch:
			if ok(s) {
				return s
			}
		case <-deadline:
			t.Fatal("no matching rescan after change")
			return scan{}
		}
	}
}

func TestWatcher_RescansOnChange(t *testing.T) {
	dir := t.TempDir()
	ch := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(exportSrc), 0o644))
	s := waitScan(t, ch, func(s scan) bool { return len(s.exports) == 3 })
	assert.NoError(t, s.err)
	assert.Equal(t, "good", s.exports[0].Name)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.go")))
	s = waitScan(t, ch, func(s scan) bool { return len(s.exports) == 0 })
	assert.NoError(t, s.err)
}

func TestWatcher_ReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	ch := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.go"), []byte("package cabi\nfunc {"), 0o644))
	s := waitScan(t, ch, func(s scan) bool { return s.err != nil })
	assert.Nil(t, s.exports)
}

func TestWatcher_Errors(t *testing.T) {
	_, err := NewWatcher(context.Background(), WatchConfig{Dir: t.TempDir()})
	assert.Error(t, err, "missing callback")

	_, err = NewWatcher(context.Background(), WatchConfig{
		Dir:      filepath.Join(t.TempDir(), "missing"),
		OnChange: func([]Export, error) {},
	})
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/x/a.go", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/x/a.go", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/x/a.go", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/x/a_test.go", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/x/notes.txt", Op: fsnotify.Create}, false},
	}
	for _, tc := range tests {
		if got := relevant(tc.event); got != tc.want {
			t.Errorf("relevant(%v) = %v, want %v", tc.event, got, tc.want)
		}
	}
}

func TestResetTimer_DropsStaleTick(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	defer timer.Stop()
	time.Sleep(20 * time.Millisecond) // fired, tick left unread

	resetTimer(timer, time.Hour)
	select {
	case <-timer.C:
		t.Fatal("stale tick survived the reset")
	case <-time.After(50 * time.Millisecond):
	}

	// A timer whose tick was already consumed resets without blocking.
	drained := time.NewTimer(time.Millisecond)
	<-drained.C
	resetTimer(drained, time.Millisecond)
	select {
	case <-drained.C:
	case <-time.After(time.Second):
		t.Fatal("reset timer never fired")
	}
}
