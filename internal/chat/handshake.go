package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Handshake sends the local handle and then reads the peer handle with a single
// read of at most bufSize bytes. A peer handle longer than bufSize is truncated.
func Handshake(ctx context.Context, conn Conn, local Handle, bufSize int) (Handle, error) {
	if bufSize <= 0 {
		bufSize = DefaultMaxHandle
	}

	if err := conn.Write(ctx, []byte(local)); err != nil {
		return "", fmt.Errorf("%w: failed to send handle: %w", ErrHandshake, err)
	}

	buf := make([]byte, bufSize)
	n, err := conn.Read(ctx, buf)
	if n > 0 {
		return PeerHandle(buf[:n]), nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: peer closed before sending its handle", ErrHandshake)
	}
	return "", fmt.Errorf("%w: failed to receive handle: %w", ErrHandshake, err)
}
