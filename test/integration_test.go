package test

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/omochice/toy-handle-chat/internal/client"
	"github.com/omochice/toy-handle-chat/internal/config"
	"github.com/omochice/toy-handle-chat/internal/server"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startEchoServer(t *testing.T, mutate func(*config.Server)) (host, port string) {
	t.Helper()
	cfg := config.DefaultServer()
	cfg.Address = "127.0.0.1:0"
	if mutate != nil {
		mutate(&cfg)
	}

	srv := server.New(cfg, "srv", server.Echo{}, io.Discard, zaptest.NewLogger(t))
	require.NoError(t, srv.Listen())
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		srv.Stop()
		assert.NoError(t, <-done)
	})

	host, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	return host, port
}

func runClient(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = client.Main(context.Background(), "chatclient", args, client.Options{
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Logger: zaptest.NewLogger(t),
	}, &errOut)
	return code, out.String(), errOut.String()
}

// TestIntegration_EchoRoundTrip runs a full session against the echo peer
func TestIntegration_EchoRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		server func(*config.Server)
		flags  []string
	}{
		{name: "raw tcp"},
		{name: "raw tcp without detection", server: func(c *config.Server) { c.WebSocket = false }},
		{name: "websocket", flags: []string{"-transport", "ws"}},
		{
			name:   "proto framing",
			server: func(c *config.Server) { c.Framing = config.FramingProto },
			flags:  []string{"-framing", "proto"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port := startEchoServer(t, tt.server)

			args := append(append([]string{}, tt.flags...), host, port)
			code, stdout, stderr := runClient(t, "alice\nhello\nsecond line\n\\quit\n", args...)

			assert.Equal(t, 0, code, stderr)
			assert.Contains(t, stdout, "Please enter a 10-character username: ")
			assert.Contains(t, stdout, "srv> hello\n")
			assert.Contains(t, stdout, "srv> second line\n")
			assert.True(t, strings.HasSuffix(stdout, "alice> Closed Connection\n"), stdout)
		})
	}
}

// TestIntegration_MaxLengthMessage sends a line at the size limit and one past it
func TestIntegration_MaxLengthMessage(t *testing.T) {
	host, port := startEchoServer(t, nil)

	exact := strings.Repeat("a", 500)
	over := strings.Repeat("b", 600)
	code, stdout, stderr := runClient(t, "alice\n"+exact+"\n"+over+"\n\\quit\n", host, port)

	assert.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "srv> "+exact+"\n")
	assert.Contains(t, stdout, "srv> "+strings.Repeat("b", 500)+"\n")
	assert.NotContains(t, stdout, strings.Repeat("b", 501))
}

// TestIntegration_InputClosed ends the session when stdin runs out
func TestIntegration_InputClosed(t *testing.T) {
	host, port := startEchoServer(t, nil)

	code, stdout, _ := runClient(t, "alice\nhello\n", host, port)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "srv> hello\n")
	assert.Contains(t, stdout, "Closed Connection\n")
}

// TestIntegration_SequentialClients checks the peer accepts a new client after the first quits
func TestIntegration_SequentialClients(t *testing.T) {
	host, port := startEchoServer(t, nil)

	for _, name := range []string{"first", "second"} {
		code, stdout, stderr := runClient(t, name+"\nping\n\\quit\n", host, port)
		assert.Equal(t, 0, code, stderr)
		assert.Contains(t, stdout, "srv> ping\n")
	}
}

// TestIntegration_ConnectionRefused reports a connect failure with exit status 1
func TestIntegration_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	l.Close()

	code, _, stderr := runClient(t, "alice\n", host, port)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error connecting socket")
}

// TestIntegration_Usage rejects a wrong argument count
func TestIntegration_Usage(t *testing.T) {
	code, stdout, stderr := runClient(t, "", "127.0.0.1")

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Usage: chatclient [flags] <host> <port>")
}
