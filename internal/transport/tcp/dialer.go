package tcp

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/resolve"
)

// Framing selects how chat bytes are enveloped on the stream.
type Framing string

const (
	// FramingRaw sends bytes as typed, with no delimiter or length prefix.
	FramingRaw Framing = "raw"
	// FramingProto sends each write as a length-delimited protobuf record.
	FramingProto Framing = "proto"
)

// Dialer establishes one connection to a resolved endpoint.
type Dialer struct {
	// TryAll dials candidates in order until one connects. When false only
	// the first candidate is attempted.
	TryAll bool

	Framing Framing

	// MaxPayload bounds a received frame when Framing is FramingProto.
	MaxPayload int

	Logger *zap.Logger
}

// Dial connects and wraps the connection in the configured framing.
func (d *Dialer) Dial(ctx context.Context, endpoints []resolve.Endpoint) (chat.Conn, error) {
	conn, err := d.DialNet(ctx, endpoints)
	if err != nil {
		return nil, err
	}
	if d.Framing == FramingProto {
		return NewFramedConn(conn, d.MaxPayload), nil
	}
	return NewConn(conn), nil
}

// DialNet connects and returns the bare net.Conn.
// Errors wrap chat.ErrSocket when no socket could be created and
// chat.ErrConnect when the connect itself failed.
func (d *Dialer) DialNet(ctx context.Context, endpoints []resolve.Endpoint) (net.Conn, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoint to dial", chat.ErrConnect)
	}
	if !d.TryAll {
		endpoints = endpoints[:1]
	}

	var errs error
	for _, ep := range endpoints {
		conn, err := dialOne(ctx, ep)
		if err == nil {
			logger.Debug("connected", zap.Stringer("endpoint", ep), zap.String("local", conn.LocalAddr().String()))
			return conn, nil
		}
		logger.Debug("dial failed", zap.Stringer("endpoint", ep), zap.Error(err))
		errs = multierr.Append(errs, err)
	}
	return nil, errs
}

func dialOne(ctx context.Context, ep resolve.Endpoint) (net.Conn, error) {
	created := false
	nd := net.Dialer{
		// Control runs once the socket exists and before connect.
		Control: func(network, address string, c syscall.RawConn) error {
			created = true
			return nil
		},
	}

	conn, err := nd.DialContext(ctx, ep.Network(), ep.String())
	if err != nil {
		if !created {
			return nil, fmt.Errorf("%w: %w", chat.ErrSocket, err)
		}
		return nil, fmt.Errorf("%w: failed to connect to %s: %w", chat.ErrConnect, ep, err)
	}
	return conn, nil
}
