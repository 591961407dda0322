package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the port both server and client use unless told
	// otherwise.
	DefaultPort = 8079

	// DefaultHost is where the client connects by default.
	DefaultHost = "127.0.0.1"

	// DefaultDBPath is the SQLite joke database path.
	DefaultDBPath = "jokes.db"

	// DefaultIdleTimeout is how long the server tolerates zero live
	// sessions before shutting itself down.
	DefaultIdleTimeout = 10 * time.Second

	// DefaultDialTimeout is the client's connection timeout.
	DefaultDialTimeout = 30 * time.Second

	// DefaultAcceptTick bounds each accept wait so the acceptor can
	// service shutdown and idle checks without a timer goroutine.
	DefaultAcceptTick = 1 * time.Second

	// DefaultDrainPoll is how often a stopping server re-checks the
	// live session count while waiting for clients to finish.
	DefaultDrainPoll = 100 * time.Millisecond
)
