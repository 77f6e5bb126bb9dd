//go:build cgo

// cmd/ffigen/check_test.go

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRun_Check(t *testing.T) {
	ledger := filepath.Join(t.TempDir(), "ledger.jsonl")

	var stdout, stderr bytes.Buffer
	args := []string{"-out", os.DevNull, "-check", "-audit-file", ledger, "-log-level", "error"}
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}

	f, err := os.Open(ledger)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var acquires, releases, failures int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e struct {
			Action  string `json:"action"`
			Success bool   `json:"success"`
		}
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad ledger line %q: %v", sc.Text(), err)
		}
		switch {
		case !e.Success:
			failures++
		case e.Action == "acquire":
			acquires++
		case e.Action == "release":
			releases++
		}
	}

	if acquires == 0 || acquires != releases {
		t.Errorf("acquires = %d, releases = %d", acquires, releases)
	}
	// double-free, double-destroy and wrong-release go through the ledger.
	if failures != 3 {
		t.Errorf("ledger recorded %d violations, want 3", failures)
	}
}

func TestRun_CheckLogsLedgerSummary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"-out", os.DevNull, "-check", "-log-format", "json", "-log-level", "info"}
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !bytes.Contains(stderr.Bytes(), []byte(`"msg":"ledger summary"`)) {
		t.Errorf("no ledger summary in:\n%s", stderr.String())
	}
	if !bytes.Contains(stderr.Bytes(), []byte(`"violations":3`)) {
		t.Errorf("summary did not count the three ledger violations:\n%s", stderr.String())
	}
}
