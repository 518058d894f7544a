// Package ws provides the WebSocket transport implementation using gobwas/ws.
package ws

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Conn adapts a WebSocket over net.Conn to chat.Conn interface.
// Every WebSocket message is one read's worth of bytes; a message larger
// than the read buffer is handed out across several reads.
type Conn struct {
	conn          net.Conn
	rw            io.ReadWriter
	state         ws.State
	readBuffer    []byte
	readBufferPos int
	mu            sync.Mutex
}

// NewClientConn wraps the client side of an established WebSocket.
// reader may be nil, or hold bytes the handshake read past the response.
func NewClientConn(conn net.Conn, reader *bufio.Reader) *Conn {
	return newConn(conn, reader, ws.StateClientSide)
}

// NewServerConn wraps the server side of an upgraded WebSocket.
func NewServerConn(conn net.Conn, reader *bufio.Reader) *Conn {
	return newConn(conn, reader, ws.StateServerSide)
}

func newConn(conn net.Conn, reader *bufio.Reader, state ws.State) *Conn {
	rw := struct {
		io.Reader
		io.Writer
	}{conn, conn}
	if reader != nil {
		rw.Reader = reader
	}
	return &Conn{conn: conn, rw: rw, state: state}
}

// Read implements chat.Conn.
// A close frame from the peer is reported as io.EOF.
func (c *Conn) Read(ctx context.Context, p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readBufferPos < len(c.readBuffer) {
		n := copy(p, c.readBuffer[c.readBufferPos:])
		c.readBufferPos += n
		if c.readBufferPos >= len(c.readBuffer) {
			c.readBuffer = nil
			c.readBufferPos = 0
		}
		return n, nil
	}

	if dl, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(dl); err != nil {
			return 0, err
		}
	}

	data, _, err := wsutil.ReadData(c.rw, c.state)
	if err != nil {
		var closed wsutil.ClosedError
		if errors.As(err, &closed) || errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, err
	}

	n := copy(p, data)
	if n < len(data) {
		c.readBuffer = data[n:]
		c.readBufferPos = 0
	}
	return n, nil
}

// Write implements chat.Conn.
// Writes one binary message.
func (c *Conn) Write(ctx context.Context, p []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(dl); err != nil {
			return err
		}
	}
	return wsutil.WriteMessage(c.conn, c.state, ws.OpBinary, p)
}

// Close implements chat.Conn.
// Sends a close frame on a best-effort basis before closing the socket.
func (c *Conn) Close() error {
	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	_ = wsutil.WriteMessage(c.conn, c.state, ws.OpClose, body)
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
