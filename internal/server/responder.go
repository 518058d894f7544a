package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/omochice/toy-handle-chat/internal/chat"
)

// ErrQuit ends the conversation with the current peer.
var ErrQuit = errors.New("quit")

// Responder produces the reply to each received message.
type Responder interface {
	Reply(ctx context.Context, from chat.Handle, text []byte) ([]byte, error)
}

// Echo replies with the received text and its newline.
type Echo struct{}

// Reply implements Responder.
func (Echo) Reply(ctx context.Context, from chat.Handle, text []byte) ([]byte, error) {
	return append(append([]byte(nil), text...), '\n'), nil
}

// Interactive asks the operator for every reply.
type Interactive struct {
	In         *chat.LineReader
	Out        io.Writer
	Handle     chat.Handle
	MaxMessage int
}

// Reply implements Responder. It prompts until the operator enters between
// one and MaxMessage bytes. The quit command or end of input returns ErrQuit.
func (r *Interactive) Reply(ctx context.Context, from chat.Handle, text []byte) ([]byte, error) {
	for {
		fmt.Fprintf(r.Out, "%s> ", r.Handle)
		line, err := r.In.ReadLine(r.MaxMessage)
		if errors.Is(err, io.EOF) {
			return nil, ErrQuit
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read reply: %w", err)
		}
		if string(line.Text) == chat.QuitCommand {
			return nil, ErrQuit
		}
		if len(line.Text) == 0 || line.Truncated {
			continue
		}
		return line.Text, nil
	}
}

// PromptHandle asks the operator for the server handle until a valid one is entered.
func PromptHandle(in *chat.LineReader, out io.Writer, max int) (chat.Handle, error) {
	for {
		fmt.Fprintf(out, "Please enter a user name of %d characters or less: ", max)
		line, err := in.ReadLine(max + 1)
		if err != nil {
			return "", fmt.Errorf("%w: failed to read handle: %w", chat.ErrInput, err)
		}
		if h, err := chat.NewHandle(string(line.Text), max); err == nil && !line.Truncated {
			return h, nil
		}
	}
}
