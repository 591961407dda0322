// Package session represents a single connection lifecycle, binding a
// network connection with line-framed I/O and the per-client dialogue
// state.
//
// Sessions decouple the dialogue engine from concrete I/O sources — the
// engine doesn't need to know whether it's talking to a TCP peer or a
// net.Pipe in a test, it just uses the session's line reader/writer.
package session

import (
	"math/rand"
	"net"
	"time"

	"knockd/internal/lineio"
)

// Session encapsulates the runtime context for a single connection:
// the connection itself, line-framed I/O over it, the set of joke
// indices already told to this client, and a private random source so
// concurrent sessions never contend on a shared generator.
type Session struct {
	Conn net.Conn
	R    *lineio.Reader
	W    *lineio.Writer

	told map[int]struct{}
	rng  *rand.Rand
}

// New creates a Session bound to the given connection.
func New(conn net.Conn) *Session {
	return &Session{
		Conn: conn,
		R:    lineio.NewReader(conn),
		W:    lineio.NewWriter(conn),
		told: make(map[int]struct{}),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MarkTold records that the joke at index i has been told.  The told
// set only ever grows for the life of the session.
func (s *Session) MarkTold(i int) { s.told[i] = struct{}{} }

// WasTold reports whether the joke at index i has already been told.
func (s *Session) WasTold(i int) bool {
	_, ok := s.told[i]
	return ok
}

// ToldCount returns how many jokes this client has heard.
func (s *Session) ToldCount() int { return len(s.told) }

// Intn draws from the session's private random source.
func (s *Session) Intn(n int) int { return s.rng.Intn(n) }

// RemoteAddr returns the peer address for logging.
func (s *Session) RemoteAddr() string {
	if s.Conn == nil {
		return "?"
	}
	return s.Conn.RemoteAddr().String()
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}
