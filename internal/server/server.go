// Package server implements the peer side of the handle-chat protocol. It
// serves one connection at a time over TCP or WebSocket on a single port.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/config"
	"github.com/omochice/toy-handle-chat/internal/transport/tcp"
	"github.com/omochice/toy-handle-chat/internal/transport/ws"
)

const (
	// clientHandleBuffer is the single read used for the client's handle.
	clientHandleBuffer = 1024

	detectWait = 200 * time.Millisecond
)

// Server represents the chat peer server
type Server struct {
	cfg       config.Server
	handle    chat.Handle
	responder Responder
	out       io.Writer
	logger    *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	active   net.Conn
	stopped  bool

	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Server instance. Received messages are printed to out.
func New(cfg config.Server, handle chat.Handle, responder Responder, out io.Writer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		handle:    handle,
		responder: responder,
		out:       out,
		logger:    logger,
		quit:      make(chan struct{}),
	}
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the listening socket. Every successful Listen must be
// followed by Serve.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.wg.Add(1)

	s.logger.Info("server started",
		zap.String("addr", listener.Addr().String()),
		zap.String("handle", s.handle.String()),
		zap.Bool("websocket", s.cfg.WebSocket),
		zap.String("framing", s.cfg.Framing),
	)
	return nil
}

// Serve accepts connections and handles them one at a time.
// It returns nil once Stop has been called.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("failed to accept connection", zap.Error(err))
				continue
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		if !s.setActive(conn) {
			conn.Close()
			return nil
		}
		s.handleConnection(conn)
		s.setActive(nil)
		s.logger.Info("waiting for new connection")
	}
}

// Stop closes the listener and the active connection, then waits for Serve to return.
func (s *Server) Stop() {
	s.quitOnce.Do(func() {
		close(s.quit)
	})

	s.mu.Lock()
	s.stopped = true
	if s.listener != nil {
		s.listener.Close()
	}
	if s.active != nil {
		s.active.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) setActive(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped && conn != nil {
		return false
	}
	s.active = conn
	return true
}

// handleConnection runs the handshake and the reply loop for one peer.
func (s *Server) handleConnection(netConn net.Conn) {
	logger := s.logger.With(zap.String("remote", netConn.RemoteAddr().String()))
	logger.Info("received connection")

	conn, err := s.wrap(netConn)
	if err != nil {
		logger.Warn("failed to set up connection", zap.Error(err))
		netConn.Close()
		return
	}
	defer conn.Close()

	ctx := context.Background()
	client, err := s.handshake(ctx, conn)
	if err != nil {
		logger.Warn("handshake failed", zap.Error(err))
		return
	}
	logger = logger.With(zap.String("client", client.String()))
	logger.Debug("handshake complete")

	if err := s.chat(ctx, conn, client); err != nil {
		logger.Warn("chat ended with error", zap.Error(err))
		return
	}
	logger.Info("connection closed")
}

// wrap detects the peer's protocol and adapts the connection to chat.Conn.
func (s *Server) wrap(conn net.Conn) (chat.Conn, error) {
	maxPayload := max(s.cfg.MaxMessage+1, clientHandleBuffer)

	if !s.cfg.WebSocket {
		if s.cfg.Framing == config.FramingProto {
			return tcp.NewFramedConn(conn, maxPayload), nil
		}
		return tcp.NewConn(conn), nil
	}

	proto, reader, err := detectProtocol(conn, detectWait)
	if err != nil {
		return nil, fmt.Errorf("failed to detect protocol: %w", err)
	}
	switch {
	case proto == protocolHTTP:
		return ws.Upgrade(conn, reader)
	case s.cfg.Framing == config.FramingProto:
		return tcp.NewFramedConnWithReader(conn, reader, maxPayload), nil
	default:
		return tcp.NewConnWithReader(conn, reader), nil
	}
}

// handshake receives the client's handle and then sends ours.
func (s *Server) handshake(ctx context.Context, conn chat.Conn) (chat.Handle, error) {
	buf := make([]byte, clientHandleBuffer)
	n, err := conn.Read(ctx, buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return "", fmt.Errorf("%w: failed to receive handle: %w", chat.ErrHandshake, err)
	}
	if err := conn.Write(ctx, []byte(s.handle)); err != nil {
		return "", fmt.Errorf("%w: failed to send handle: %w", chat.ErrHandshake, err)
	}
	return chat.PeerHandle(buf[:n]), nil
}

// chat prints each received line and sends back the responder's reply until
// the client closes or the responder quits.
func (s *Server) chat(ctx context.Context, conn chat.Conn, client chat.Handle) error {
	buf := make([]byte, s.cfg.MaxMessage+1)
	for {
		clear(buf)
		n, err := conn.Read(ctx, buf)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %w", chat.ErrReceive, err)
		}

		text := bytes.TrimSuffix(buf[:n], []byte("\n"))
		fmt.Fprintf(s.out, "%s> %s\n", client, text)

		reply, err := s.responder.Reply(ctx, client, text)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, reply); err != nil {
			return fmt.Errorf("%w: %w", chat.ErrSend, err)
		}
	}
}
