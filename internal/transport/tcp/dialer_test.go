package tcp_test

import (
	"context"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/resolve"
	"github.com/omochice/toy-handle-chat/internal/transport/tcp"
)

func listen(t *testing.T) (net.Listener, resolve.Endpoint) {
	t.Helper()
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	ap := netip.MustParseAddrPort(l.Addr().String())
	return l, resolve.NewEndpoint(ap.Addr(), ap.Port())
}

// closedEndpoint returns an endpoint nothing listens on.
func closedEndpoint(t *testing.T) resolve.Endpoint {
	t.Helper()
	l, ep := listen(t)
	l.Close()
	return ep
}

func TestDialer_Dial(t *testing.T) {
	l, ep := listen(t)
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	d := &tcp.Dialer{Framing: tcp.FramingRaw}
	conn, err := d.Dial(context.Background(), []resolve.Endpoint{ep})
	require.NoError(t, err)
	defer conn.Close()

	peer := <-accepted
	defer peer.Close()
	assert.Equal(t, peer.LocalAddr().String(), conn.RemoteAddr())
	assert.IsType(t, &tcp.Conn{}, conn)
}

func TestDialer_DialFramed(t *testing.T) {
	l, ep := listen(t)
	defer l.Close()

	d := &tcp.Dialer{Framing: tcp.FramingProto, MaxPayload: 501}
	conn, err := d.Dial(context.Background(), []resolve.Endpoint{ep})
	require.NoError(t, err)
	defer conn.Close()

	assert.IsType(t, &tcp.FramedConn{}, conn)
}

func TestDialer_ConnectRefused(t *testing.T) {
	d := &tcp.Dialer{}
	_, err := d.Dial(context.Background(), []resolve.Endpoint{closedEndpoint(t)})
	assert.ErrorIs(t, err, chat.ErrConnect)
	assert.NotErrorIs(t, err, chat.ErrSocket)
}

func TestDialer_NoEndpoints(t *testing.T) {
	d := &tcp.Dialer{}
	_, err := d.Dial(context.Background(), nil)
	assert.ErrorIs(t, err, chat.ErrConnect)
}

func TestDialer_FirstCandidateOnly(t *testing.T) {
	l, good := listen(t)
	defer l.Close()

	d := &tcp.Dialer{}
	_, err := d.Dial(context.Background(), []resolve.Endpoint{closedEndpoint(t), good})
	assert.ErrorIs(t, err, chat.ErrConnect)
}

func TestDialer_TryAll(t *testing.T) {
	l, good := listen(t)
	defer l.Close()

	d := &tcp.Dialer{TryAll: true}
	conn, err := d.Dial(context.Background(), []resolve.Endpoint{closedEndpoint(t), good})
	require.NoError(t, err)
	conn.Close()
}

func TestDialer_TryAllExhausted(t *testing.T) {
	d := &tcp.Dialer{TryAll: true}
	_, err := d.Dial(context.Background(), []resolve.Endpoint{closedEndpoint(t), closedEndpoint(t)})
	assert.ErrorIs(t, err, chat.ErrConnect)
}
