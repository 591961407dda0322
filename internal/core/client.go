package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"knockd/internal/lineio"
	"knockd/internal/transport"
	"knockd/util"
)

// inputMarker is the protocol convention for "reply with one line".
const inputMarker = "<input>"

// ClientMode dials the joke server and relays the dialogue to the
// user: server lines are printed, and whenever a line carries the
// <input> marker one line is read from stdin and sent back.
type ClientMode struct {
	Dialer  transport.Dialer
	Address string
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ClientMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ClientMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// interactive reports whether replies come from a human at a terminal,
// in which case a reply prompt is printed.
func (m *ClientMode) interactive() bool {
	return m.Stdin == nil && term.IsTerminal(int(os.Stdin.Fd()))
}

// Run dials the server and relays the dialogue until either side
// closes the connection or stdin is exhausted.
func (m *ClientMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s", m.Address)

	conn, err := m.Dialer.Dial(ctx, "tcp", m.Address)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())

	r := lineio.NewReader(conn)
	w := lineio.NewWriter(conn)
	in := bufio.NewScanner(m.stdin())
	interactive := m.interactive()

	for {
		line, err := r.ReadLine()
		if err != nil {
			m.Logger.Verbose("server closed the connection")
			return nil
		}

		if !strings.Contains(line, inputMarker) {
			fmt.Fprintln(m.stdout(), line)
			continue
		}

		// Strip the marker for display, then send one reply line.
		fmt.Fprintln(m.stdout(), strings.TrimSpace(strings.ReplaceAll(line, inputMarker, "")))
		if interactive {
			fmt.Fprint(m.stdout(), "> ")
		}
		if !in.Scan() {
			return nil
		}
		if err := w.WriteLine(in.Text()); err != nil {
			return fmt.Errorf("send to %s: %w", m.Address, err)
		}
	}
}
