// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of the joke server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
//
// The active-session gauge doubles as the live-session counter that
// drives idle shutdown: workers increment it on start and decrement it
// on exit, and the acceptor reads it on every tick.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for the server process.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	sessionsActive atomic.Int64
	sessionsTotal  atomic.Int64
	jokesCompleted atomic.Int64
	corrections    atomic.Int64
	exhausted      atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionStarted increments both the active and total counters.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionEnded decrements the active session counter and returns the
// number of sessions still running.
func (c *Collector) SessionEnded() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Add(-1)
}

// ActiveSessions returns the current number of live sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── Dialogue metrics ─────────────────────────────────────────────────

// JokeCompleted records one joke delivered through to its punchline.
func (c *Collector) JokeCompleted() {
	if c == nil {
		return
	}
	c.jokesCompleted.Add(1)
}

// JokesCompleted returns the total punchlines delivered.
func (c *Collector) JokesCompleted() int64 {
	if c == nil {
		return 0
	}
	return c.jokesCompleted.Load()
}

// CorrectionSent records one in-band protocol correction.
func (c *Collector) CorrectionSent() {
	if c == nil {
		return
	}
	c.corrections.Add(1)
}

// Corrections returns the total corrections sent.
func (c *Collector) Corrections() int64 {
	if c == nil {
		return 0
	}
	return c.corrections.Load()
}

// CatalogExhausted records a session that ran out of jokes.
func (c *Collector) CatalogExhausted() {
	if c == nil {
		return
	}
	c.exhausted.Add(1)
}

// Exhausted returns how many sessions drained the whole catalog.
func (c *Collector) Exhausted() int64 {
	if c == nil {
		return 0
	}
	return c.exhausted.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	JokesCompleted   int64  `json:"jokes_completed"`
	Corrections      int64  `json:"corrections"`
	CatalogExhausted int64  `json:"catalog_exhausted"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:   c.sessionsActive.Load(),
		SessionsTotal:    c.sessionsTotal.Load(),
		JokesCompleted:   c.jokesCompleted.Load(),
		Corrections:      c.corrections.Load(),
		CatalogExhausted: c.exhausted.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
