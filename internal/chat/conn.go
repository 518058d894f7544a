// Package chat provides the handshake and the half-duplex chat loop shared by all transports.
package chat

import "context"

// Conn abstracts a bidirectional connection for both TCP and WebSocket.
// This interface isolates transport details from chat logic.
type Conn interface {
	// Read performs a single read into p and returns the number of bytes received.
	// Returns io.EOF when the peer has closed the connection.
	Read(ctx context.Context, p []byte) (int, error)

	// Write sends all of p.
	Write(ctx context.Context, p []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
