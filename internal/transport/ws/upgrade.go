package ws

import (
	"bufio"
	"fmt"
	"net"

	"github.com/gobwas/ws"
)

// bufferedConn reads through the bufio.Reader that already holds peeked bytes.
type bufferedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (bc *bufferedConn) Read(p []byte) (int, error) {
	return bc.reader.Read(p)
}

// Upgrade completes the server side of the WebSocket handshake on conn,
// reading the request through reader.
func Upgrade(conn net.Conn, reader *bufio.Reader) (*Conn, error) {
	if reader == nil {
		reader = bufio.NewReader(conn)
	}
	if _, err := ws.Upgrade(&bufferedConn{Conn: conn, reader: reader}); err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	return NewServerConn(conn, reader), nil
}
