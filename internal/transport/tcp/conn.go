// Package tcp provides the TCP transport: connection establishment and chat.Conn adapters.
package tcp

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"
)

// Conn adapts net.Conn to chat.Conn interface.
type Conn struct {
	conn   net.Conn
	reader io.Reader
}

// NewConn wraps a net.Conn.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, reader: conn}
}

// NewConnWithReader wraps a net.Conn whose first bytes were already buffered
// by reader, e.g. after protocol detection.
func NewConnWithReader(conn net.Conn, reader *bufio.Reader) *Conn {
	return &Conn{conn: conn, reader: reader}
}

// Read implements chat.Conn.
// A single read of whatever bytes are available, at most len(p).
func (c *Conn) Read(ctx context.Context, p []byte) (int, error) {
	if err := applyDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return 0, err
	}
	return c.reader.Read(p)
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, p []byte) error {
	if err := applyDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
		return err
	}
	_, err := c.conn.Write(p)
	return err
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// applyDeadline mirrors a context deadline onto the socket. Without one the
// call blocks indefinitely.
func applyDeadline(ctx context.Context, set func(time.Time) error) error {
	if ctx == nil {
		return nil
	}
	if dl, ok := ctx.Deadline(); ok {
		return set(dl)
	}
	return nil
}
