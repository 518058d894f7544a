package chat

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	// DefaultMaxMessage is the largest message text, excluding the line terminator.
	DefaultMaxMessage = 500

	// DefaultMaxHandle bounds both the local handle and the peer handle read.
	DefaultMaxHandle = 10

	// QuitCommand ends the session when typed as a whole line.
	QuitCommand = `\quit`
)

var (
	ErrEmptyHandle   = errors.New("handle is empty")
	ErrHandleSpace   = errors.New("handle contains whitespace")
	ErrHandleTooLong = errors.New("handle is too long")
)

// Handle is a short identifier exchanged once per session.
type Handle string

// NewHandle validates a locally chosen handle.
func NewHandle(s string, max int) (Handle, error) {
	switch {
	case s == "":
		return "", ErrEmptyHandle
	case bytes.ContainsAny([]byte(s), " \t\r\n\v\f"):
		return "", ErrHandleSpace
	case len(s) > max:
		return "", fmt.Errorf("%w: %d bytes, at most %d allowed", ErrHandleTooLong, len(s), max)
	}
	return Handle(s), nil
}

// PeerHandle wraps the raw bytes a peer sent during the handshake.
// The bytes are not validated.
func PeerHandle(b []byte) Handle {
	return Handle(b)
}

func (h Handle) String() string {
	return string(h)
}

// Message is one line of chat text bounded to a maximum length.
// The text never includes the line terminator.
type Message struct {
	text      []byte
	truncated bool
}

// NewMessage copies at most max bytes of text, dropping one trailing newline first.
func NewMessage(text []byte, max int) Message {
	text = bytes.TrimSuffix(text, []byte("\n"))
	m := Message{}
	if len(text) > max {
		text = text[:max]
		m.truncated = true
	}
	m.text = append(make([]byte, 0, len(text)+1), text...)
	return m
}

// Text returns the message text without terminator.
func (m Message) Text() []byte {
	return m.text
}

// Bytes returns the wire form: the text followed by a newline.
func (m Message) Bytes() []byte {
	return append(m.text[:len(m.text):len(m.text)], '\n')
}

// Len returns the length of the text.
func (m Message) Len() int {
	return len(m.text)
}

// Truncated reports whether NewMessage had to cut the text.
func (m Message) Truncated() bool {
	return m.truncated
}
