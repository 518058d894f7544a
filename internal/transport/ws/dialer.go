package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/resolve"
	"github.com/omochice/toy-handle-chat/internal/transport/tcp"
)

// Dialer performs the WebSocket handshake over a connection made by the TCP establisher.
type Dialer struct {
	TCP    *tcp.Dialer
	Path   string
	Logger *zap.Logger
}

// Dial connects to one of endpoints and upgrades to WebSocket. host is sent as
// the Host header. A failed upgrade wraps chat.ErrConnect.
func (d *Dialer) Dial(ctx context.Context, host string, endpoints []resolve.Endpoint) (chat.Conn, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoint to dial", chat.ErrConnect)
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tcpDialer := d.TCP
	if tcpDialer == nil {
		tcpDialer = &tcp.Dialer{Logger: logger}
	}

	path := d.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(int(endpoints[0].AddrPort().Port()))),
		Path:   path,
	}

	dialer := ws.Dialer{
		NetDial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return tcpDialer.DialNet(ctx, endpoints)
		},
	}

	conn, br, _, err := dialer.Dial(ctx, u.String())
	if err != nil {
		if errors.Is(err, chat.ErrSocket) || errors.Is(err, chat.ErrConnect) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: websocket handshake with %s failed: %w", chat.ErrConnect, u.String(), err)
	}

	logger.Debug("websocket established", zap.String("url", u.String()))
	return NewClientConn(conn, br), nil
}
