// cmd/ffigen/watch_test.go

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// lockedBuffer lets the test read logs while run is still writing them.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) count(s string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), s)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

const watchedSrc = `package cabi

import "C"

//export mid_point
func mid_point() {}
`

func TestRun_Watch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte(watchedSrc), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orig := watchContext
	watchContext = func() (context.Context, context.CancelFunc) { return ctx, cancel }
	defer func() { watchContext = orig }()

	var stdout bytes.Buffer
	var stderr lockedBuffer
	done := make(chan int, 1)
	go func() {
		done <- run([]string{"-out", os.DevNull, "-verify", dir, "-watch", "-log-format", "json", "-log-level", "info"}, &stdout, &stderr)
	}()

	waitFor(t, "watch start", func() bool { return stderr.count(`"watching for changes"`) == 1 })
	if stderr.count(`"exports verified"`) != 1 {
		t.Error("initial verification did not run")
	}

	src := strings.Replace(watchedSrc, "mid_point", "print_point", 2)
	if err := os.WriteFile(filepath.Join(dir, "b.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "re-verification", func() bool { return stderr.count(`"exports verified"`) >= 2 })

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("exit %d after interrupt", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRun_WatchNeedsDir(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-out", os.DevNull, "-watch", "-log-level", "error"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
}
