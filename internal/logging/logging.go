// internal/logging/logging.go
// slog setup shared by the CLI and the C library
//
// LEARN: slog is the standard structured logger as of Go 1.21. The CLI
// picks text or JSON from its config; the C library has no config file,
// so it reads the level from the environment once at load time.

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a level name to slog.Level. Unknown names give
// fallback.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// New builds a logger writing to w in the given format ("json" or
// anything else for text).
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// FromEnv builds a stderr text logger whose level comes from the
// environment variable key, defaulting to fallback.
func FromEnv(key string, fallback slog.Level) *slog.Logger {
	return New(os.Stderr, "text", ParseLevel(os.Getenv(key), fallback))
}
