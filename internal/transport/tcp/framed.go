package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"

	"github.com/omochice/toy-handle-chat/pkg/protocol"
)

// FramedConn adapts net.Conn to chat.Conn using length-delimited protobuf
// frames. The first frame in each direction carries the handle, every later
// frame carries chat text. One frame is one read's worth of bytes.
type FramedConn struct {
	conn       net.Conn
	reader     *bufio.Reader
	maxPayload int
	sent       int
	received   int
}

// NewFramedConn wraps a net.Conn. Frames with a payload over maxPayload are rejected.
func NewFramedConn(conn net.Conn, maxPayload int) *FramedConn {
	return NewFramedConnWithReader(conn, bufio.NewReader(conn), maxPayload)
}

// NewFramedConnWithReader wraps a net.Conn whose first bytes were already buffered by reader.
func NewFramedConnWithReader(conn net.Conn, reader *bufio.Reader, maxPayload int) *FramedConn {
	return &FramedConn{conn: conn, reader: reader, maxPayload: maxPayload}
}

// Read implements chat.Conn.
// Payload beyond len(p) is dropped.
func (c *FramedConn) Read(ctx context.Context, p []byte) (int, error) {
	if err := applyDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return 0, err
	}
	msg, err := protocol.ReadFrame(c.reader, c.maxPayload)
	if err != nil {
		return 0, err
	}
	if want := frameType(c.received); msg.Type != want {
		return 0, fmt.Errorf("unexpected %s frame, want %s", msg.Type, want)
	}
	c.received++
	return copy(p, msg.Payload), nil
}

// Write implements chat.Conn.
func (c *FramedConn) Write(ctx context.Context, p []byte) error {
	if err := applyDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
		return err
	}
	if err := protocol.WriteFrame(c.conn, protocol.Message{Type: frameType(c.sent), Payload: p}); err != nil {
		return err
	}
	c.sent++
	return nil
}

// Close implements chat.Conn.
func (c *FramedConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *FramedConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func frameType(seq int) protocol.MessageType {
	if seq == 0 {
		return protocol.MessageTypeHandle
	}
	return protocol.MessageTypeText
}
