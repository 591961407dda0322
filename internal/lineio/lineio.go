// Package lineio frames a byte stream into newline-terminated text
// lines.  It is the only layer that touches raw connection bytes; the
// dialogue code above it deals purely in lines.
package lineio

import (
	"bufio"
	"io"
	"strings"
)

// MaxLineLen is the hard cap on a single inbound line.  A longer line
// is truncated at the cap and treated as complete, bounding memory per
// connection; the leftover bytes become the start of the next line.
const MaxLineLen = 4096

// Reader reads newline-terminated lines from a byte stream.  It must
// be the only reader of the stream: the buffering may consume bytes
// beyond the returned line.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps src in a line reader.
func NewReader(src io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(src)}
}

// ReadLine returns the next line without its terminator.  Carriage
// returns are stripped, so CRLF and LF peers look identical.  Any
// failure — including an orderly peer shutdown (zero-length read) —
// surfaces as the underlying error, and the caller must treat it as
// connection loss, not a recoverable condition.
func (r *Reader) ReadLine() (string, error) {
	var sb strings.Builder
	for {
		c, err := r.br.ReadByte()
		if err != nil {
			return "", err
		}
		switch c {
		case '\r':
			// normalize CRLF to LF
		case '\n':
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			if sb.Len() >= MaxLineLen {
				return sb.String(), nil
			}
		}
	}
}

// Writer writes newline-terminated lines to a byte stream.
type Writer struct {
	dst io.Writer
}

// NewWriter wraps dst in a line writer.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// WriteLine sends s, appending a terminator if the caller's text lacks
// one.  A short write or any other failure is returned as-is and means
// the connection is gone.
func (w *Writer) WriteLine(s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w.dst, s)
	return err
}
