package ws_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/netip"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/resolve"
	wstransport "github.com/omochice/toy-handle-chat/internal/transport/ws"
)

func TestConn_ImplementsInterface(t *testing.T) {
	var _ chat.Conn = (*wstransport.Conn)(nil)
}

// startUpgradeServer accepts one connection, upgrades it and hands it to handle.
func startUpgradeServer(t *testing.T, handle func(c *wstransport.Conn)) resolve.Endpoint {
	t.Helper()
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		c, err := wstransport.Upgrade(conn, bufio.NewReader(conn))
		if err != nil {
			conn.Close()
			return
		}
		defer c.Close()
		handle(c)
	}()

	ap := netip.MustParseAddrPort(l.Addr().String())
	return resolve.NewEndpoint(ap.Addr(), ap.Port())
}

func TestDialer_RoundTrip(t *testing.T) {
	ep := startUpgradeServer(t, func(c *wstransport.Conn) {
		buf := make([]byte, 64)
		n, err := c.Read(context.Background(), buf)
		if err != nil {
			return
		}
		c.Write(context.Background(), buf[:n])
	})

	d := &wstransport.Dialer{Path: "/chat"}
	conn, err := d.Dial(context.Background(), "localhost", []resolve.Endpoint{ep})
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	require.NoError(t, conn.Write(ctx, []byte("hello\n")))

	buf := make([]byte, 64)
	n, err := conn.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(buf[:n]))
}

func TestConn_LargeMessageSplitsAcrossReads(t *testing.T) {
	ep := startUpgradeServer(t, func(c *wstransport.Conn) {
		c.Write(context.Background(), []byte("0123456789abcdef"))
		c.Read(context.Background(), make([]byte, 1))
	})

	d := &wstransport.Dialer{}
	conn, err := d.Dial(context.Background(), "localhost", []resolve.Endpoint{ep})
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 10)
	n, err := conn.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(buf[:n]))

	n, err = conn.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(buf[:n]))
}

func TestConn_PeerCloseIsEOF(t *testing.T) {
	ep := startUpgradeServer(t, func(c *wstransport.Conn) {})

	d := &wstransport.Dialer{}
	conn, err := d.Dial(context.Background(), "localhost", []resolve.Endpoint{ep})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Read(context.Background(), make([]byte, 8))
	assert.ErrorIs(t, err, io.EOF)
}

func TestDialer_NotWebSocket(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("HTTP/1.1 400 Bad Request\r\nContent-Length: 0\r\n\r\n"))
		conn.Close()
	}()

	ap := netip.MustParseAddrPort(l.Addr().String())
	d := &wstransport.Dialer{}
	_, err = d.Dial(context.Background(), "localhost", []resolve.Endpoint{resolve.NewEndpoint(ap.Addr(), ap.Port())})
	assert.ErrorIs(t, err, chat.ErrConnect)
}

func TestUpgrade_ServerReadsClientFrames(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	upgraded := make(chan *wstransport.Conn, 1)
	go func() {
		c, err := wstransport.Upgrade(server, nil)
		if err != nil {
			upgraded <- nil
			return
		}
		upgraded <- c
	}()

	dialer := ws.Dialer{
		NetDial: func(ctx context.Context, network, addr string) (net.Conn, error) { return client, nil },
	}
	_, _, _, err := dialer.Dial(context.Background(), "ws://peer/")
	require.NoError(t, err)

	c := <-upgraded
	require.NotNil(t, c)

	go wsutil.WriteClientBinary(client, []byte("alice"))

	buf := make([]byte, 10)
	n, err := c.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "alice", string(buf[:n]))
}
