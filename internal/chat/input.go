package chat

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Line is one line of local input, bounded when it was read.
type Line struct {
	Text       []byte
	Truncated  bool
	Terminated bool
}

// IsQuit reports whether the line is exactly the quit command and its newline.
func (l Line) IsQuit() bool {
	return l.Terminated && string(l.Text) == QuitCommand
}

// LineReader reads handles and chat lines from the local input source.
// Both reads share one buffer so nothing typed ahead is lost.
type LineReader struct {
	br *bufio.Reader
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{br: bufio.NewReader(r)}
}

// ReadLine reads up to and including the next newline, keeping at most max bytes
// of text. The rest of an over-long line is consumed and dropped. A final line
// without newline is returned unterminated; io.EOF is returned only when no byte
// was read.
func (r *LineReader) ReadLine(max int) (Line, error) {
	var line Line
	text := make([]byte, 0, max)
	read := false
	for {
		frag, err := r.br.ReadSlice('\n')
		if len(frag) > 0 {
			read = true
		}
		if n := len(frag); n > 0 && frag[n-1] == '\n' {
			frag = frag[:n-1]
			line.Terminated = true
		}
		if room := max - len(text); len(frag) > room {
			text = append(text, frag[:room]...)
			line.Truncated = true
		} else {
			text = append(text, frag...)
		}

		if line.Terminated {
			line.Text = text
			return line, nil
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && read:
			line.Text = text
			return line, nil
		case err != nil:
			return Line{}, err
		}
	}
}

// ReadToken skips leading whitespace, reads one whitespace-delimited token, and
// drops whatever else is left on that line.
func (r *LineReader) ReadToken() (string, error) {
	var token []byte
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(token) > 0 {
				return string(token), nil
			}
			return "", err
		}
		if isSpace(b) {
			if len(token) == 0 {
				continue
			}
			if b != '\n' {
				if _, err := r.br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
					return "", err
				}
			}
			return string(token), nil
		}
		token = append(token, b)
	}
}

// PromptHandle asks for the local handle until a valid one is entered.
func PromptHandle(in *LineReader, out io.Writer, max int) (Handle, error) {
	for {
		fmt.Fprintf(out, "Please enter a %d-character username: ", max)
		token, err := in.ReadToken()
		if err != nil {
			return "", fmt.Errorf("%w: failed to read handle: %w", ErrInput, err)
		}
		h, err := NewHandle(token, max)
		if err != nil {
			fmt.Fprintf(out, "Invalid username: %v\n", err)
			continue
		}
		return h, nil
	}
}

func isSpace(b byte) bool {
	return bytes.IndexByte([]byte(" \t\r\n\v\f"), b) >= 0
}
