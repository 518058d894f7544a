// Package client runs one chat session: resolve, connect, handshake, chat.
package client

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/config"
	"github.com/omochice/toy-handle-chat/internal/resolve"
	"github.com/omochice/toy-handle-chat/internal/transport/tcp"
	"github.com/omochice/toy-handle-chat/internal/transport/ws"
)

// State is the stage of a session. States only move forward.
type State int

const (
	StateResolving State = iota
	StateConnecting
	StateHandshaking
	StateChatting
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateResolving:
		return "RESOLVING"
	case StateConnecting:
		return "CONNECTING"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateChatting:
		return "CHATTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Options carries the collaborators of a Client.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Logger *zap.Logger

	// Lookup replaces the system resolver when set.
	Lookup resolve.Lookup
}

// Client represents a single chat session with one peer.
type Client struct {
	cfg      config.Client
	in       *chat.LineReader
	out      io.Writer
	logger   *zap.Logger
	resolver *resolve.Resolver
	state    State
	local    chat.Handle
	peer     chat.Handle
}

// New creates a new Client instance
func New(cfg config.Client, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:      cfg,
		in:       chat.NewLineReader(opts.Stdin),
		out:      opts.Stdout,
		logger:   logger,
		resolver: resolve.New(opts.Lookup, logger),
		state:    StateResolving,
	}
}

// State returns the current session state.
func (c *Client) State() State {
	return c.state
}

// LocalHandle returns the handle entered at session start.
func (c *Client) LocalHandle() chat.Handle {
	return c.local
}

// PeerHandle returns the handle received in the handshake.
func (c *Client) PeerHandle() chat.Handle {
	return c.peer
}

// Run prompts for the local handle and drives the session to Closed.
// The connection, once made, is released on every return path.
func (c *Client) Run(ctx context.Context) (chat.Outcome, error) {
	defer c.advance(StateClosed)

	local, err := chat.PromptHandle(c.in, c.out, c.cfg.MaxHandle)
	if err != nil {
		return 0, err
	}
	c.local = local

	endpoints, err := c.resolver.Resolve(ctx, c.cfg.Host, c.cfg.Port)
	if err != nil {
		return 0, err
	}

	c.advance(StateConnecting)
	conn, err := c.dial(ctx, endpoints)
	if err != nil {
		return 0, err
	}

	c.advance(StateHandshaking)
	peer, err := chat.Handshake(ctx, conn, c.local, c.cfg.PeerHandleBuffer)
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			c.logger.Debug("failed to close connection", zap.Error(cerr))
		}
		return 0, err
	}
	c.peer = peer
	c.logger.Debug("handshake complete",
		zap.String("local", c.local.String()),
		zap.String("peer", c.peer.String()),
		zap.String("remote", conn.RemoteAddr()),
	)

	c.advance(StateChatting)
	session := chat.NewSession(conn, c.in, c.out, chat.SessionConfig{
		Local:      c.local,
		Peer:       c.peer,
		MaxMessage: c.cfg.MaxMessage,
		Logger:     c.logger,
	})
	return session.Run(ctx)
}

func (c *Client) dial(ctx context.Context, endpoints []resolve.Endpoint) (chat.Conn, error) {
	tcpDialer := &tcp.Dialer{
		TryAll:     c.cfg.TryAllEndpoints,
		Framing:    tcp.Framing(c.cfg.Framing),
		MaxPayload: max(c.cfg.MaxMessage+1, c.cfg.PeerHandleBuffer),
		Logger:     c.logger,
	}

	switch c.cfg.Transport {
	case config.TransportWS:
		d := &ws.Dialer{TCP: tcpDialer, Path: c.cfg.WSPath, Logger: c.logger}
		return d.Dial(ctx, c.cfg.Host, endpoints)
	case config.TransportTCP:
		return tcpDialer.Dial(ctx, endpoints)
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", chat.ErrConnect, c.cfg.Transport)
	}
}

func (c *Client) advance(next State) {
	if next <= c.state {
		return
	}
	c.logger.Debug("session state", zap.Stringer("from", c.state), zap.Stringer("to", next))
	c.state = next
}
