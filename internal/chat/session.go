package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Step is a state of the chat loop.
type Step int

const (
	StepPromptUser Step = iota
	StepAwaitLocalInput
	StepSending
	StepAwaitingReply
	StepDisplaying
	StepClosed
)

// String returns the string representation of Step
func (s Step) String() string {
	switch s {
	case StepPromptUser:
		return "PROMPT_USER"
	case StepAwaitLocalInput:
		return "AWAIT_LOCAL_INPUT"
	case StepSending:
		return "SENDING"
	case StepAwaitingReply:
		return "AWAITING_REPLY"
	case StepDisplaying:
		return "DISPLAYING"
	case StepClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Outcome tells how a session that ended without error was closed.
type Outcome int

const (
	OutcomeQuit Outcome = iota
	OutcomeInputClosed
	OutcomePeerClosed
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeQuit:
		return "QUIT"
	case OutcomeInputClosed:
		return "INPUT_CLOSED"
	case OutcomePeerClosed:
		return "PEER_CLOSED"
	default:
		return "UNKNOWN"
	}
}

// SessionConfig holds the fixed parameters of a chat session.
type SessionConfig struct {
	Local      Handle
	Peer       Handle
	MaxMessage int
	Logger     *zap.Logger
}

// Session runs the lock-step chat loop over an established, handshaken Conn.
// It owns the Conn and closes it on every exit path.
type Session struct {
	conn       Conn
	in         *LineReader
	out        io.Writer
	local      Handle
	peer       Handle
	maxMessage int
	logger     *zap.Logger
	step       Step
	closed     bool
}

// NewSession creates a Session. The Conn is owned by the Session from here on.
func NewSession(conn Conn, in *LineReader, out io.Writer, cfg SessionConfig) *Session {
	if cfg.MaxMessage <= 0 {
		cfg.MaxMessage = DefaultMaxMessage
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Session{
		conn:       conn,
		in:         in,
		out:        out,
		local:      cfg.Local,
		peer:       cfg.Peer,
		maxMessage: cfg.MaxMessage,
		logger:     cfg.Logger,
		step:       StepPromptUser,
	}
}

// Step returns the current state of the loop.
func (s *Session) Step() Step {
	return s.step
}

// Run alternates prompt, send, receive and display until the user quits,
// local input ends, the peer closes, or an I/O error occurs.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	var (
		outcome Outcome
		msg     Message
		payload []byte
	)
	// One extra byte so an echoed line of maximum length fits with its newline.
	reply := make([]byte, s.maxMessage+1)

	for {
		switch s.step {
		case StepPromptUser:
			fmt.Fprintf(s.out, "%s> ", s.local)
			s.next(StepAwaitLocalInput)

		case StepAwaitLocalInput:
			line, err := s.in.ReadLine(s.maxMessage)
			if errors.Is(err, io.EOF) {
				outcome = OutcomeInputClosed
				s.next(StepClosed)
				continue
			}
			if err != nil {
				s.Close()
				return outcome, fmt.Errorf("%w: failed to read input: %w", ErrInput, err)
			}
			if line.IsQuit() {
				outcome = OutcomeQuit
				s.next(StepClosed)
				continue
			}
			msg = NewMessage(line.Text, s.maxMessage)
			if line.Truncated || msg.Truncated() {
				s.logger.Debug("message truncated", zap.Int("max", s.maxMessage))
			}
			s.next(StepSending)

		case StepSending:
			if err := s.conn.Write(ctx, msg.Bytes()); err != nil {
				s.Close()
				return outcome, fmt.Errorf("%w: failed to send message: %w", ErrSend, err)
			}
			s.logger.Debug("message sent", zap.Int("bytes", msg.Len()+1))
			s.next(StepAwaitingReply)

		case StepAwaitingReply:
			clear(reply)
			n, err := s.conn.Read(ctx, reply)
			if n == 0 {
				if err == nil || errors.Is(err, io.EOF) {
					fmt.Fprintln(s.out, "Connection closed by server")
					outcome = OutcomePeerClosed
					s.next(StepClosed)
					continue
				}
				s.Close()
				return outcome, fmt.Errorf("%w: failed to receive message: %w", ErrReceive, err)
			}
			// A read error that came with data surfaces on the next read.
			payload = reply[:n]
			s.logger.Debug("reply received", zap.Int("bytes", n))
			s.next(StepDisplaying)

		case StepDisplaying:
			fmt.Fprintf(s.out, "%s> %s\n", s.peer, payload)
			msg, payload = Message{}, nil
			s.next(StepPromptUser)

		case StepClosed:
			s.Close()
			fmt.Fprintln(s.out, "Closed Connection")
			s.logger.Debug("session closed", zap.Stringer("outcome", outcome))
			return outcome, nil
		}
	}
}

// Close releases the Conn. It is safe to call more than once.
func (s *Session) Close() {
	s.step = StepClosed
	if s.closed {
		return
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("failed to close connection", zap.Error(err))
	}
}

func (s *Session) next(step Step) {
	s.logger.Debug("chat step", zap.Stringer("from", s.step), zap.Stringer("to", step))
	s.step = step
}
