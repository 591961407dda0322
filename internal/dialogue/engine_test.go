package dialogue

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"knockd/internal/catalog"
	"knockd/internal/lineio"
	"knockd/internal/metrics"
	"knockd/internal/session"
	"knockd/util"
)

// peer is the client end of a net.Pipe, speaking the wire protocol.
type peer struct {
	t    *testing.T
	r    *lineio.Reader
	w    *lineio.Writer
	conn net.Conn
}

func (p *peer) expect(want string) {
	p.t.Helper()
	line, err := p.r.ReadLine()
	if err != nil {
		p.t.Fatalf("read (want %q): %v", want, err)
	}
	if line != want {
		p.t.Fatalf("server sent %q, want %q", line, want)
	}
}

func (p *peer) expectContains(sub string) string {
	p.t.Helper()
	line, err := p.r.ReadLine()
	if err != nil {
		p.t.Fatalf("read (want line containing %q): %v", sub, err)
	}
	if !strings.Contains(line, sub) {
		p.t.Fatalf("server sent %q, want it to contain %q", line, sub)
	}
	return line
}

func (p *peer) read() string {
	p.t.Helper()
	line, err := p.r.ReadLine()
	if err != nil {
		p.t.Fatalf("read: %v", err)
	}
	return line
}

func (p *peer) send(s string) {
	p.t.Helper()
	if err := p.w.WriteLine(s); err != nil {
		p.t.Fatalf("send %q: %v", s, err)
	}
}

// playJoke answers one complete exchange correctly, optionally
// flubbing each step once first, and returns the punchline.
func (p *peer) playJoke(flubFirst, flubSecond bool) string {
	p.t.Helper()

	p.expect("Knock knock! <input>")
	if flubFirst {
		p.send("Whom?")
		p.expectContains(`"Who's there?"`)
		p.expect("Knock knock! <input>")
	}
	p.send("Who's there?")

	setupLine := p.expectContains(" <input>")
	setup := strings.TrimSuffix(setupLine, " <input>")

	if flubSecond {
		p.send("what?")
		p.expectContains(`"` + setup + ` who?"`)
		// Full restart of the knock/who exchange — same joke.
		p.expect("Knock knock! <input>")
		p.send("Who's there?")
		p.expect(setup + " <input>")
	}
	p.send(setup + " who?")

	return p.read() // punchline
}

// newPipeEngine wires an engine to one end of a net.Pipe and returns
// the peer end.  The returned closer shuts both ends down.
func newPipeEngine(jokes []catalog.Joke) (*Engine, *session.Session, *peer, func(), error) {
	cat, err := catalog.Load(context.Background(), catalog.SliceSource(jokes), util.NewLogger(0))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	server, client := net.Pipe()
	closer := func() {
		server.Close()
		client.Close()
	}
	// net.Pipe never times out on its own; a deadline keeps a broken
	// test from hanging the run.
	client.SetDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck

	sess := session.New(server)
	e := &Engine{Catalog: cat, Metrics: metrics.New(), Logger: util.NewLogger(0)}
	p := &peer{r: lineio.NewReader(client), w: lineio.NewWriter(client), conn: client}
	return e, sess, p, closer, nil
}

func newTestEngine(t *testing.T, jokes []catalog.Joke) (*Engine, *session.Session, *peer) {
	t.Helper()

	e, sess, p, closer, err := newPipeEngine(jokes)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	t.Cleanup(closer)
	p.t = t
	return e, sess, p
}

func playAsync(e *Engine, sess *session.Session) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() { ch <- e.PlayJoke(sess) }()
	return ch
}

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("PlayJoke did not finish")
		return Lost
	}
}

var booJoke = catalog.Joke{Setup: "Boo", Punchline: "Don't cry, it's only a joke!"}

func TestPlayJokeHappyPath(t *testing.T) {
	e, sess, p := newTestEngine(t, []catalog.Joke{booJoke})
	done := playAsync(e, sess)

	p.expect("Knock knock! <input>")
	p.send("Who's there?")
	p.expect("Boo <input>")
	p.send("Boo who?")
	p.expect("Don't cry, it's only a joke!")

	if out := waitOutcome(t, done); out != Completed {
		t.Errorf("outcome = %v, want Completed", out)
	}
	if got := e.Metrics.JokesCompleted(); got != 1 {
		t.Errorf("JokesCompleted = %d, want 1", got)
	}
}

func TestWrongFirstReply(t *testing.T) {
	e, sess, p := newTestEngine(t, []catalog.Joke{booJoke})
	done := playAsync(e, sess)

	p.expect("Knock knock! <input>")
	p.send("Who there?")
	// Exactly one correction naming the expected text, then a fresh
	// prompt for the same joke.
	p.expect(`You are supposed to say, "Who's there?". Let's try again.`)
	p.expect("Knock knock! <input>")
	p.send("Who's there?")
	p.expect("Boo <input>")
	p.send("Boo who?")
	p.expect("Don't cry, it's only a joke!")

	if out := waitOutcome(t, done); out != Completed {
		t.Errorf("outcome = %v, want Completed", out)
	}
	if got := e.Metrics.Corrections(); got != 1 {
		t.Errorf("Corrections = %d, want 1", got)
	}
}

func TestWrongSecondReplyRestartsWholeExchange(t *testing.T) {
	e, sess, p := newTestEngine(t, []catalog.Joke{booJoke})
	done := playAsync(e, sess)

	p.expect("Knock knock! <input>")
	p.send("Who's there?")
	p.expect("Boo <input>")
	p.send("Boo hoo?")
	p.expect(`You are supposed to say, "Boo who?". Let's try again.`)
	// Not a mere re-prompt: the full knock/who cycle repeats, and the
	// punchline is unreachable until both steps are re-answered.
	p.expect("Knock knock! <input>")
	p.send("Who's there?")
	p.expect("Boo <input>") // same joke, never re-selected
	p.send("Boo who?")
	p.expect("Don't cry, it's only a joke!")

	if out := waitOutcome(t, done); out != Completed {
		t.Errorf("outcome = %v, want Completed", out)
	}
}

func TestRepliesAreCaseAndWhitespaceInsensitive(t *testing.T) {
	e, sess, p := newTestEngine(t, []catalog.Joke{booJoke})
	done := playAsync(e, sess)

	p.expect("Knock knock! <input>")
	p.send("  WHO'S THERE?  ")
	p.expect("Boo <input>")
	p.send("\tboo WHO?")
	p.expect("Don't cry, it's only a joke!")

	if out := waitOutcome(t, done); out != Completed {
		t.Errorf("outcome = %v, want Completed", out)
	}
}

func TestMisspellingIsNotAccepted(t *testing.T) {
	e, sess, p := newTestEngine(t, []catalog.Joke{booJoke})
	done := playAsync(e, sess)

	p.expect("Knock knock! <input>")
	p.send("Whos there?") // missing apostrophe: wrong, never fuzzy-matched
	p.expect(`You are supposed to say, "Who's there?". Let's try again.`)
	p.expect("Knock knock! <input>")
	p.send("Who's there?")
	p.expect("Boo <input>")
	p.send("Boo who?")
	p.expect("Don't cry, it's only a joke!")

	waitOutcome(t, done)
}

func TestCatalogExhaustion(t *testing.T) {
	e, sess, p := newTestEngine(t, []catalog.Joke{booJoke})

	done := playAsync(e, sess)
	p.playJoke(false, false)
	if out := waitOutcome(t, done); out != Completed {
		t.Fatalf("first joke outcome = %v, want Completed", out)
	}

	done = playAsync(e, sess)
	p.expect("I have no more jokes to tell.")
	if out := waitOutcome(t, done); out != Exhausted {
		t.Errorf("outcome = %v, want Exhausted", out)
	}
	if got := e.Metrics.Exhausted(); got != 1 {
		t.Errorf("Exhausted = %d, want 1", got)
	}
}

func TestConnectionLossAbortsExchange(t *testing.T) {
	e, sess, p := newTestEngine(t, []catalog.Joke{booJoke})
	done := playAsync(e, sess)

	p.expect("Knock knock! <input>")
	p.conn.Close()

	if out := waitOutcome(t, done); out != Lost {
		t.Errorf("outcome = %v, want Lost", out)
	}
}

// Selection never repeats a told joke within a session, even when
// exchanges are restarted mid-joke by wrong answers.
func TestSelectionNeverRepeats(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "jokes")

		jokes := make([]catalog.Joke, n)
		for i := range jokes {
			jokes[i] = catalog.Joke{
				Setup:     "Setup" + string(rune('A'+i)),
				Punchline: "Punchline" + string(rune('A'+i)),
			}
		}

		e, sess, p, closer, err := newPipeEngine(jokes)
		if err != nil {
			rt.Fatalf("load catalog: %v", err)
		}
		defer closer()

		seen := make(map[string]bool)
		for i := 0; i < n; i++ {
			flubFirst := rapid.Bool().Draw(rt, "flub_first")
			flubSecond := rapid.Bool().Draw(rt, "flub_second")

			done := make(chan Outcome, 1)
			go func() { done <- e.PlayJoke(sess) }()

			punchline := p.playJokeQuiet(rt, flubFirst, flubSecond)
			if out := <-done; out != Completed {
				rt.Fatalf("joke %d outcome = %v, want Completed", i, out)
			}
			if seen[punchline] {
				rt.Fatalf("punchline %q delivered twice", punchline)
			}
			seen[punchline] = true
		}

		// One more run must report exhaustion.
		done := make(chan Outcome, 1)
		go func() { done <- e.PlayJoke(sess) }()
		line, err := p.r.ReadLine()
		if err != nil || line != "I have no more jokes to tell." {
			rt.Fatalf("after %d jokes got (%q, %v), want exhaustion line", n, line, err)
		}
		if out := <-done; out != Exhausted {
			rt.Fatalf("outcome = %v, want Exhausted", out)
		}
	})
}

// playJokeQuiet mirrors playJoke but reports through *rapid.T.
func (p *peer) playJokeQuiet(rt *rapid.T, flubFirst, flubSecond bool) string {
	readLine := func() string {
		line, err := p.r.ReadLine()
		if err != nil {
			rt.Fatalf("read: %v", err)
		}
		return line
	}
	send := func(s string) {
		if err := p.w.WriteLine(s); err != nil {
			rt.Fatalf("send %q: %v", s, err)
		}
	}

	if got := readLine(); got != "Knock knock! <input>" {
		rt.Fatalf("got %q, want knock prompt", got)
	}
	if flubFirst {
		send("nope")
		readLine() // correction
		readLine() // fresh prompt
	}
	send("Who's there?")

	setup := strings.TrimSuffix(readLine(), " <input>")
	if flubSecond {
		send("nope")
		readLine() // correction
		if got := readLine(); got != "Knock knock! <input>" {
			rt.Fatalf("got %q, want knock prompt after restart", got)
		}
		send("Who's there?")
		if got := strings.TrimSuffix(readLine(), " <input>"); got != setup {
			rt.Fatalf("restart switched joke: %q -> %q", setup, got)
		}
	}
	send(setup + " who?")
	return readLine()
}
