package server

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"os"
	"time"
)

type protocolType int

const (
	protocolTCP protocolType = iota
	protocolHTTP
)

// httpMethods are the request-line prefixes that mark a WebSocket upgrade.
var httpMethods = [][]byte{
	[]byte("GET "),
	[]byte("POST"),
	[]byte("PUT "),
	[]byte("HEAD"),
	[]byte("OPTI"), // OPTIONS
	[]byte("CONN"), // CONNECT
}

// detectProtocol peeks at the first bytes to determine protocol type.
// A raw client may send a handle shorter than the peek, so the peek gives up
// after wait and whatever arrived decides.
func detectProtocol(conn net.Conn, wait time.Duration) (protocolType, *bufio.Reader, error) {
	reader := bufio.NewReader(conn)

	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return protocolTCP, reader, err
	}
	peek, err := reader.Peek(4)
	if derr := conn.SetReadDeadline(time.Time{}); derr != nil {
		return protocolTCP, reader, derr
	}
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		return protocolTCP, reader, err
	}

	for _, m := range httpMethods {
		if bytes.HasPrefix(peek, m) {
			return protocolHTTP, reader, nil
		}
	}

	// Default to TCP for anything else
	return protocolTCP, reader, nil
}
