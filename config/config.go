// Package config defines the runtime configuration for knockd.
package config

import (
	"time"

	errs "knockd/internal/errors"
)

// Config holds every tuneable for a knockd process.
type Config struct {
	// ── Mode ─────────────────────────────────────────────────────────
	Listen bool // serve jokes; otherwise run the interactive client

	// ── Connection ───────────────────────────────────────────────────
	Host    string        // client: server host
	Port    int           // serve: listen port; client: destination port
	Timeout time.Duration // client: dial timeout

	// ── Catalog ──────────────────────────────────────────────────────
	DBPath string // SQLite database with the jokes table

	// ── Lifecycle ────────────────────────────────────────────────────
	IdleTimeout time.Duration // shut down after this long with zero sessions

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &errs.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "port out of range 1-65535",
		}
	}

	if c.Listen {
		if c.DBPath == "" {
			return &errs.ConfigError{
				Field:   "db",
				Message: "joke database path is required in listen mode",
				Hint:    "point --db at a SQLite file with a jokes(setup, punchline) table",
			}
		}
		if c.IdleTimeout <= 0 {
			return &errs.ConfigError{
				Field:   "idle-timeout",
				Value:   c.IdleTimeout,
				Message: "idle timeout must be positive",
			}
		}
		return nil
	}

	if c.Host == "" {
		return &errs.ConfigError{
			Field:   "host",
			Message: "server host is required (use --help for usage)",
		}
	}
	return nil
}
