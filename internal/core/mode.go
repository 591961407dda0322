// Package core is the orchestration layer.  It composes the transport,
// session, and dialogue layers into complete operational modes and
// provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	lineio  →  session  →  dialogue  →  core  →  cmd (CLI)
package core

import (
	"context"

	"knockd/internal/session"
)

// Mode represents a complete operational mode of knockd (serve or
// client).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

// Handler runs the per-connection behaviour of the server.  The
// production handler is the dialogue engine's session loop; tests
// substitute their own.
type Handler interface {
	// Handle blocks until the session is over.
	Handle(ctx context.Context, sess *session.Session) error
}
