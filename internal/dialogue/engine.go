// Package dialogue drives the knock-knock exchange over a session.
//
// The engine is a small state machine: select an untold joke, demand
// "Who's there?", demand "<setup> who?", deliver the punchline.  Wrong
// answers are corrected in-band and re-prompted; they never end the
// session.  Only connection loss or running out of jokes does.
package dialogue

import (
	"strings"

	"knockd/internal/catalog"
	"knockd/internal/metrics"
	"knockd/internal/session"
	"knockd/util"
)

// Wire lines of the protocol.  Prompts carry the "<input>" marker,
// which tells the peer to reply with exactly one line.
const (
	knockPrompt     = "Knock knock! <input>"
	knockExpect     = "Who's there?"
	exhaustedLine   = "I have no more jokes to tell."
	anotherPrompt   = "Would you like to listen to another? (Y/N) <input>"
	anotherReminder = "Please reply with Y or N."
)

// Outcome is the result of one PlayJoke run.
type Outcome int

const (
	// Completed: the punchline was delivered.
	Completed Outcome = iota
	// Exhausted: every joke in the catalog has been told to this
	// client.  Session-ending, but not an error.
	Exhausted
	// Lost: a read or write failed mid-exchange.
	Lost
)

// Engine runs joke exchanges against sessions.  One Engine serves all
// sessions concurrently; it holds no per-session state.
type Engine struct {
	Catalog *catalog.Catalog
	Metrics *metrics.Collector
	Logger  *util.Logger
}

// PlayJoke drives exactly one complete knock-knock exchange.
//
// The selected joke is marked told before the first prompt goes out,
// so a client who answers the second step wrong and restarts the
// exchange keeps the same joke — it is never re-picked, and no other
// joke is burned.
func (e *Engine) PlayJoke(sess *session.Session) Outcome {
	idx, ok := e.pickUntold(sess)
	if !ok {
		// Best effort: the session is over either way.
		sess.W.WriteLine(exhaustedLine) //nolint:errcheck
		e.Metrics.CatalogExhausted()
		e.Logger.Verbose("Catalog exhausted for %s after %d jokes", sess.RemoteAddr(), sess.ToldCount())
		return Exhausted
	}
	sess.MarkTold(idx)
	e.Logger.Debug("Telling joke %d/%d to %s", idx+1, e.Catalog.Size(), sess.RemoteAddr())

	joke := e.Catalog.Get(idx)
	whoExpect := joke.Setup + " who?"

	// Outer loop = one full knock/who cycle.  A wrong second answer
	// restarts the cycle for the same joke; recursion would let an
	// adversarial client grow the stack without bound.
	for {
		if !e.awaitKnockAck(sess) {
			return Lost
		}

		if sess.W.WriteLine(joke.Setup+" <input>") != nil {
			return Lost
		}
		reply, err := sess.R.ReadLine()
		if err != nil {
			return Lost
		}
		if answersMatch(reply, whoExpect) {
			break
		}
		e.Metrics.CorrectionSent()
		if sess.W.WriteLine(correctionLine(whoExpect)) != nil {
			return Lost
		}
	}

	if sess.W.WriteLine(joke.Punchline) != nil {
		return Lost
	}
	e.Metrics.JokeCompleted()
	return Completed
}

// awaitKnockAck prompts "Knock knock!" until the client answers
// "Who's there?" or the connection dies.  Wrong answers get a
// correction and a fresh prompt; nothing else changes.
func (e *Engine) awaitKnockAck(sess *session.Session) bool {
	for {
		if sess.W.WriteLine(knockPrompt) != nil {
			return false
		}
		reply, err := sess.R.ReadLine()
		if err != nil {
			return false
		}
		if answersMatch(reply, knockExpect) {
			return true
		}
		e.Metrics.CorrectionSent()
		if sess.W.WriteLine(correctionLine(knockExpect)) != nil {
			return false
		}
	}
}

// pickUntold selects uniformly at random among catalog indices not yet
// told to this session.
func (e *Engine) pickUntold(sess *session.Session) (int, bool) {
	avail := make([]int, 0, e.Catalog.Size()-sess.ToldCount())
	for i := 0; i < e.Catalog.Size(); i++ {
		if !sess.WasTold(i) {
			avail = append(avail, i)
		}
	}
	if len(avail) == 0 {
		return 0, false
	}
	return avail[sess.Intn(len(avail))], true
}

// correctionLine names the exact expected text, making the dialogue
// self-documenting.
func correctionLine(expected string) string {
	return `You are supposed to say, "` + expected + `". Let's try again.`
}

// answersMatch compares a client reply against the expected text,
// ignoring case and surrounding whitespace.  Deliberately never fuzzy:
// a misspelling is a wrong answer.
func answersMatch(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}
