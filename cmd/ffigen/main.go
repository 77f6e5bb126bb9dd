// cmd/ffigen/main.go
// Header generator and self-check for the ffibridge C library
//
// LEARN: main.go should be minimal - just configuration and wiring.
// Rendering, scanning and checking live in pkg/headergen and internal/cabi.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/khaaliswooden-max/ffibridge/internal/audit"
	"github.com/khaaliswooden-max/ffibridge/internal/cabi"
	"github.com/khaaliswooden-max/ffibridge/internal/config"
	"github.com/khaaliswooden-max/ffibridge/internal/logging"
	"github.com/khaaliswooden-max/ffibridge/pkg/boundary"
	"github.com/khaaliswooden-max/ffibridge/pkg/headergen"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main with its inputs and outputs passed in, so tests can drive it.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ffigen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(fs) }

	var (
		configFile = fs.String("config", envOrDefault("FFIGEN_CONFIG", ""), "YAML config file")
		out        = fs.String("out", "", "Header output path, - for stdout (overrides header.path)")
		guard      = fs.String("guard", "", "Include guard macro (overrides header.guard)")
		pairs      = fs.Bool("pairs", true, "Annotate acquiring functions with their release function")
		logLevel   = fs.String("log-level", "", "Log level: debug, info, warn, error")
		logFormat  = fs.String("log-format", "", "Log format: text, json")
		verifyDir  = fs.String("verify", "", "Package directory whose //export functions must match the header")
		auditFile  = fs.String("audit-file", "", "Append self-check ledger entries to this file")
		check      = fs.Bool("check", false, "Drive every entry point from C and run the contract probes")
		layout     = fs.Bool("layout", false, "Print the layout of by-value types and exit")
		watch      = fs.Bool("watch", false, "Keep running and re-verify whenever the -verify directory changes")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Precedence: defaults < file < FFIGEN_* env < explicit flags.
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "ffigen: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Header.Path = *out
		case "guard":
			cfg.Header.Guard = *guard
		case "pairs":
			cfg.Header.IncludePairs = *pairs
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "verify":
			cfg.Verify.SourceDir = *verifyDir
		case "audit-file":
			cfg.Audit.File = *auditFile
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "ffigen: %v\n", err)
		return 1
	}

	logger := logging.New(stderr, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level, slog.LevelInfo))
	slog.SetDefault(logger)

	if *layout {
		fmt.Fprint(stdout, boundary.AnalyzeStruct(boundary.Point{}).String())
		return 0
	}

	abi := boundary.Exports()

	if err := writeHeader(abi, cfg, stdout); err != nil {
		logger.Error("failed to write header", "error", err, "path", cfg.Header.Path)
		return 1
	}
	logger.Info("header written",
		"path", cfg.Header.Path,
		"types", len(abi.Types),
		"functions", len(abi.Funcs),
		"pairs", len(abi.Pairs()),
	)

	if *watch {
		if cfg.Verify.SourceDir == "" {
			logger.Error("-watch needs a directory to verify")
			return 1
		}
		verify(abi, cfg.Verify.SourceDir, logger)
		if err := watchExports(abi, cfg.Verify.SourceDir, logger); err != nil {
			logger.Error("watch failed", "error", err)
			return 1
		}
		return 0
	}

	if cfg.Verify.SourceDir != "" {
		if !verify(abi, cfg.Verify.SourceDir, logger) {
			return 1
		}
	}

	if *check {
		if !selfCheck(cfg.Audit.File, logger) {
			return 1
		}
	}

	return 0
}

func writeHeader(abi boundary.ABI, cfg *config.Config, stdout io.Writer) error {
	header, err := headergen.Render(abi, headergen.Options{
		Guard:        cfg.Header.Guard,
		IncludePairs: cfg.Header.IncludePairs,
	})
	if err != nil {
		return err
	}

	if cfg.Header.Path == "-" {
		_, err = stdout.Write(header)
		return err
	}
	return os.WriteFile(cfg.Header.Path, header, 0o644)
}

// verify cross-checks the header against the //export functions in dir
// and lints them. It reports whether everything passed.
func verify(abi boundary.ABI, dir string, logger *slog.Logger) bool {
	exports, err := headergen.ScanExports(dir)
	if err != nil {
		logger.Error("failed to scan exports", "error", err, "dir", dir)
		return false
	}
	return verifyExports(abi, dir, exports, logger)
}

func verifyExports(abi boundary.ABI, dir string, exports []headergen.Export, logger *slog.Logger) bool {
	ok := true
	if err := headergen.Verify(abi, exports).Err(); err != nil {
		logger.Error("header and exports disagree", "error", err)
		ok = false
	}

	diags := headergen.Lint(exports)
	for _, d := range diags {
		level := slog.LevelWarn
		if d.Severity == headergen.SeverityError {
			level = slog.LevelError
		}
		logger.Log(context.Background(), level, d.Message, "rule", d.Rule, "at", d.Position.String())
	}
	if headergen.HasErrors(diags) {
		ok = false
	}

	logger.Info("exports verified", "dir", dir, "exports", len(exports), "diagnostics", len(diags))
	return ok
}

// watchContext is replaced in tests.
var watchContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// watchExports re-verifies dir on every change until interrupted.
func watchExports(abi boundary.ABI, dir string, logger *slog.Logger) error {
	ctx, stop := watchContext()
	defer stop()

	w, err := headergen.NewWatcher(ctx, headergen.WatchConfig{
		Dir:    dir,
		Logger: logger,
		OnChange: func(exports []headergen.Export, err error) {
			if err != nil {
				logger.Error("failed to scan exports", "error", err, "dir", dir)
				return
			}
			verifyExports(abi, dir, exports, logger)
		},
	})
	if err != nil {
		return err
	}
	logger.Info("watching for changes", "dir", dir)

	<-ctx.Done()
	return w.Close()
}

// selfCheck runs the C-driven checks and the contract probes.
func selfCheck(auditPath string, logger *slog.Logger) bool {
	cabi.SetLogger(logger)

	// The memory sink backs the balance check below; the file, when
	// asked for, keeps the same entries for later inspection.
	mem := audit.NewMemoryLogger()
	sinks := []audit.Sink{mem}
	if auditPath != "" {
		fl, err := audit.NewFileLogger(auditPath)
		if err != nil {
			logger.Error("failed to open ledger file", "error", err, "file", auditPath)
			return false
		}
		defer fl.Close()
		sinks = append(sinks, fl)
	}
	cabi.SetAuditSink(audit.NewMultiLogger(sinks...))
	defer cabi.SetAuditSink(nil)

	if err := cabi.SelfCheck(); err != nil {
		logger.Error("self-check failed", "error", err)
		return false
	}
	logger.Info("self-check passed", "checks", len(cabi.Checks()))

	ok := true
	for _, name := range cabi.Probes() {
		err := cabi.Probe(name)
		if err == nil {
			logger.Error("contract violation went undetected", "probe", name)
			ok = false
			continue
		}
		logger.Info("contract violation detected", "probe", name, "error", err)
	}

	if out := cabi.Outstanding(); len(out) > 0 {
		logger.Error("resources still outstanding", "count", len(out))
		ok = false
	}

	sum := summarize(mem.Entries())
	logger.Info("ledger summary",
		"acquires", sum.acquires,
		"releases", sum.releases,
		"violations", sum.violations,
	)
	if !sum.balanced() {
		logger.Error("ledger does not balance", "acquires", sum.acquires, "releases", sum.releases)
		ok = false
	}
	return ok
}

// ledgerSummary counts ledger entries. Failed entries are violations
// whatever their action.
type ledgerSummary struct {
	acquires, releases, violations int
}

func summarize(entries []audit.Entry) ledgerSummary {
	var s ledgerSummary
	for _, e := range entries {
		switch {
		case !e.Success:
			s.violations++
		case e.Action == audit.ActionAcquire:
			s.acquires++
		case e.Action == audit.ActionRelease:
			s.releases++
		}
	}
	return s
}

func (s ledgerSummary) balanced() bool {
	return s.acquires == s.releases
}

// envOrDefault returns the environment variable value or a default.
//
// LEARN: This pattern allows configuration via env vars or flags.
// Flags take precedence (they override env var defaults).
func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "ffigen - C header generator for ffibridge\n\n")
	fmt.Fprintf(w, "Usage: ffigen [options]\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nEnvironment Variables:\n")
	fmt.Fprintf(w, "  FFIGEN_CONFIG             YAML config file\n")
	fmt.Fprintf(w, "  FFIGEN_HEADER_PATH        Header output path (default: ffibridge.h)\n")
	fmt.Fprintf(w, "  FFIGEN_HEADER_GUARD       Include guard (default: FFIBRIDGE_H)\n")
	fmt.Fprintf(w, "  FFIGEN_LOG_LEVEL          Log level (default: info)\n")
	fmt.Fprintf(w, "  FFIGEN_VERIFY_SOURCE_DIR  Directory to verify //export functions in\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  ffigen -out include/ffibridge.h\n")
	fmt.Fprintf(w, "  ffigen -out - -verify internal/cabi\n")
	fmt.Fprintf(w, "  ffigen -verify internal/cabi -watch\n")
	fmt.Fprintf(w, "  ffigen -out /dev/null -check -audit-file ledger.jsonl\n")
}
