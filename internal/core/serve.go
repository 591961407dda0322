package core

import (
	"context"
	"fmt"
	"net"
	"time"

	"knockd/config"
	"knockd/internal/catalog"
	"knockd/internal/dialogue"
	errs "knockd/internal/errors"
	"knockd/internal/metrics"
	"knockd/internal/retry"
	"knockd/internal/session"
	"knockd/util"
)

// ServeMode accepts inbound connections and runs the joke dialogue on
// each one in its own goroutine.  The accept loop is single-threaded
// and polls the listener with a bounded deadline (one tick) so it can
// also service shutdown requests and the idle-shutdown check without a
// dedicated timer goroutine.
type ServeMode struct {
	Address     string // ":port"
	Source      catalog.Source
	IdleTimeout time.Duration

	// AcceptTick and DrainPoll default to the config package values
	// when zero.  Tests shorten them.
	AcceptTick time.Duration
	DrainPoll  time.Duration

	// Handler overrides the dialogue engine when non-nil (tests).
	// When nil, Run loads the catalog from Source and serves jokes.
	Handler Handler

	Metrics *metrics.Collector
	Logger  *util.Logger

	// Backoff paces retries after consecutive accept failures.
	Backoff *retry.Backoff
}

// Run loads the catalog, binds the listener, and serves until the
// context is cancelled or the idle timeout fires.  An empty catalog or
// an unavailable listen address fails before any connection is served.
func (m *ServeMode) Run(ctx context.Context) error {
	handler := m.Handler
	if handler == nil {
		cat, err := catalog.Load(ctx, m.Source, m.Logger)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		handler = &dialogue.Engine{Catalog: cat, Metrics: m.Metrics, Logger: m.Logger}
	}

	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return errs.Wrap("listen", m.Address, err)
	}
	tln := ln.(*net.TCPListener)
	defer tln.Close()

	m.Logger.Info("listening on %s", tln.Addr())

	// Idle timer state: started when the live count is observed at
	// zero on a tick, reset whenever a session exists.
	var idleSince time.Time
	idling := false
	failures := 0

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("shutdown requested, no longer accepting")
			tln.Close()
			return m.drain()
		default:
		}

		if err := tln.SetDeadline(time.Now().Add(m.tick())); err != nil {
			return errs.Wrap("listen", m.Address, err)
		}

		conn, err := tln.Accept()
		if err != nil {
			var ne net.Error
			if errs.As(err, &ne) && ne.Timeout() {
				// Tick elapsed with nothing to accept: housekeeping.
				failures = 0
				if m.idleExpired(&idling, &idleSince) {
					m.Logger.Info("no live sessions for %s, shutting down", m.IdleTimeout)
					return nil
				}
				continue
			}

			// Accept failures are never fatal: log, pace, continue.
			failures++
			m.Metrics.RecordError(err.Error())
			if errs.IsRetryable(err) {
				m.Logger.Warn("accept: %v", err)
			} else {
				m.Logger.Error("accept: %v", err)
			}
			time.Sleep(m.backoff().Delay(failures))
			continue
		}

		failures = 0
		idling = false

		m.Metrics.SessionStarted()
		sess := session.New(conn)
		m.Logger.Info("client connected from %s (%d active)",
			sess.RemoteAddr(), m.Metrics.ActiveSessions())

		go m.runSession(ctx, handler, sess)
	}
}

// runSession drives one session to completion and releases it.
func (m *ServeMode) runSession(ctx context.Context, h Handler, sess *session.Session) {
	defer func() {
		sess.Close()
		left := m.Metrics.SessionEnded()
		m.Logger.Info("client %s disconnected (%d active)", sess.RemoteAddr(), left)
	}()

	if err := h.Handle(ctx, sess); err != nil {
		if errs.Is(err, errs.ErrConnectionLost) {
			m.Logger.Verbose("session %s: %v", sess.RemoteAddr(), err)
		} else {
			m.Logger.Warn("session %s: %v", sess.RemoteAddr(), err)
		}
	}
}

// idleExpired advances the two-state idle timer on a tick and reports
// whether the grace period has fully elapsed with zero live sessions.
func (m *ServeMode) idleExpired(idling *bool, idleSince *time.Time) bool {
	if m.Metrics.ActiveSessions() > 0 {
		*idling = false
		return false
	}
	if !*idling {
		*idling = true
		*idleSince = time.Now()
		m.Logger.Verbose("no live sessions; idle shutdown in %s", m.IdleTimeout)
		return false
	}
	return time.Since(*idleSince) >= m.IdleTimeout
}

// drain blocks until every in-flight session has finished.  Sessions
// are never severed by shutdown; their clients end them.
func (m *ServeMode) drain() error {
	if n := m.Metrics.ActiveSessions(); n > 0 {
		m.Logger.Info("waiting for %d session(s) to finish", n)
	}
	for m.Metrics.ActiveSessions() > 0 {
		time.Sleep(m.drainPoll())
	}
	m.Logger.Info("server shut down")
	return nil
}

// ── defaults ─────────────────────────────────────────────────────────

func (m *ServeMode) tick() time.Duration {
	if m.AcceptTick > 0 {
		return m.AcceptTick
	}
	return config.DefaultAcceptTick
}

func (m *ServeMode) drainPoll() time.Duration {
	if m.DrainPoll > 0 {
		return m.DrainPoll
	}
	return config.DefaultDrainPoll
}

func (m *ServeMode) backoff() *retry.Backoff {
	if m.Backoff == nil {
		m.Backoff = &retry.Backoff{
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     m.tick(),
			Multiplier:   2.0,
			Jitter:       true,
		}
	}
	return m.Backoff
}
