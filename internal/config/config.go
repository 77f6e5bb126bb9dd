// internal/config/config.go
// Configuration for the header generator
//
// LEARN: Precedence, lowest to highest: built-in defaults, YAML file,
// FFIGEN_* environment variables, then command-line flags (applied by
// cmd/ffigen). Each layer only overrides what it sets.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "FFIGEN"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full generator configuration.
type Config struct {
	Header HeaderConfig `yaml:"header"`
	Log    LogConfig    `yaml:"log"`
	Audit  AuditConfig  `yaml:"audit"`
	Verify VerifyConfig `yaml:"verify"`
}

// HeaderConfig controls the emitted C header.
type HeaderConfig struct {
	Path         string `yaml:"path"`          // output file, "-" for stdout
	Guard        string `yaml:"guard"`         // include guard macro
	IncludePairs bool   `yaml:"include_pairs"` // annotate prototypes with their release function
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// AuditConfig controls the ownership ledger used by the self-check.
type AuditConfig struct {
	File string `yaml:"file"` // JSON-lines ledger; empty disables it
}

// VerifyConfig controls the export cross-check.
type VerifyConfig struct {
	SourceDir string `yaml:"source_dir"` // Go package holding the //export functions; empty skips
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Header: HeaderConfig{
			Path:         "ffibridge.h",
			Guard:        "FFIBRIDGE_H",
			IncludePairs: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads an optional YAML file over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	ApplyEnv(cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys absent from data keep their current
// values, so decoding over DefaultConfig() merges with the defaults.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg from FFIGEN_* variables read through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	env := func(key string) string { return getenv(EnvPrefix + "_" + key) }

	if val := env("HEADER_PATH"); val != "" {
		cfg.Header.Path = val
	}
	if val := env("HEADER_GUARD"); val != "" {
		cfg.Header.Guard = val
	}
	if val := env("HEADER_INCLUDE_PAIRS"); val != "" {
		cfg.Header.IncludePairs = strings.ToLower(val) == "true"
	}
	if val := env("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := env("LOG_FORMAT"); val != "" {
		cfg.Log.Format = val
	}
	if val := env("AUDIT_FILE"); val != "" {
		cfg.Audit.File = val
	}
	if val := env("VERIFY_SOURCE_DIR"); val != "" {
		cfg.Verify.SourceDir = val
	}
}

// Validate checks the configuration for values the generator cannot use.
func (c *Config) Validate() error {
	if c.Header.Path == "" {
		return fmt.Errorf("%w: header.path is required", ErrInvalidConfig)
	}
	if !validGuard(c.Header.Guard) {
		return fmt.Errorf("%w: header.guard %q is not a C identifier", ErrInvalidConfig, c.Header.Guard)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}

	if c.Verify.SourceDir != "" {
		info, err := os.Stat(c.Verify.SourceDir)
		if err != nil {
			return fmt.Errorf("%w: verify.source_dir: %v", ErrInvalidConfig, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: verify.source_dir %s is not a directory", ErrInvalidConfig, c.Verify.SourceDir)
		}
	}
	if c.Audit.File != "" {
		if _, err := os.Stat(filepath.Dir(c.Audit.File)); err != nil {
			return fmt.Errorf("%w: audit.file directory: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// validGuard reports whether s is a valid C macro name.
func validGuard(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
