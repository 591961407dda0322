package dialogue

import (
	"context"

	errs "knockd/internal/errors"
	"knockd/internal/session"
)

// Loop runs jokes for one session until the client declines another,
// the catalog runs dry, or the connection is lost.
//
// The context is accepted for interface symmetry with other
// per-connection handlers but deliberately not used to interrupt the
// dialogue: an external shutdown stops new connections, while in-flight
// sessions finish naturally.
func (e *Engine) Loop(_ context.Context, sess *session.Session) error {
	for {
		switch e.PlayJoke(sess) {
		case Exhausted:
			return nil
		case Lost:
			return errs.ErrConnectionLost
		}

		more, ok := e.askAnother(sess)
		if !ok {
			return errs.ErrConnectionLost
		}
		if !more {
			return nil
		}
	}
}

// Handle makes the engine usable as the server's per-connection
// handler.
func (e *Engine) Handle(ctx context.Context, sess *session.Session) error {
	return e.Loop(ctx, sess)
}

// askAnother runs the Y/N continuation sub-dialogue.  The prompt is
// repeated verbatim until a valid answer arrives; invalid answers only
// earn a one-line reminder and never advance or end the session.
// ok=false means the connection died.
func (e *Engine) askAnother(sess *session.Session) (more, ok bool) {
	for {
		if sess.W.WriteLine(anotherPrompt) != nil {
			return false, false
		}
		reply, err := sess.R.ReadLine()
		if err != nil {
			return false, false
		}

		switch {
		case answersMatch(reply, "Y") || answersMatch(reply, "yes"):
			return true, true
		case answersMatch(reply, "N") || answersMatch(reply, "no"):
			return false, true
		}

		if sess.W.WriteLine(anotherReminder) != nil {
			return false, false
		}
	}
}
