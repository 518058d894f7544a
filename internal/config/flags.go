package config

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/omochice/toy-handle-chat/internal/chat"
)

// ParseClient parses `name [flags] <host> <port>`. A wrong number of
// positional arguments prints the usage text and returns an error wrapping
// chat.ErrUsage. -h returns flag.ErrHelp.
func ParseClient(name string, args []string, stderr io.Writer) (Client, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <host> <port>\n", name)
		fs.PrintDefaults()
	}

	def := DefaultClient()
	set := def
	path := fs.String("config", "", "YAML config file")
	fs.StringVar(&set.Transport, "transport", def.Transport, "Transport: tcp or ws")
	fs.StringVar(&set.Framing, "framing", def.Framing, "Framing over tcp: raw or proto")
	fs.StringVar(&set.WSPath, "ws-path", def.WSPath, "Request path for the ws transport")
	fs.IntVar(&set.MaxMessage, "max-message", def.MaxMessage, "Maximum message length in bytes")
	fs.IntVar(&set.MaxHandle, "max-handle", def.MaxHandle, "Maximum local handle length in bytes")
	fs.IntVar(&set.PeerHandleBuffer, "peer-handle-buffer", def.PeerHandleBuffer, "Bytes read for the peer handle")
	fs.BoolVar(&set.TryAllEndpoints, "try-all", def.TryAllEndpoints, "Try every resolved address until one connects")
	fs.StringVar(&set.LogLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Client{}, err
		}
		return Client{}, fmt.Errorf("%w: %w", chat.ErrUsage, err)
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return Client{}, fmt.Errorf("%w: expected 2 arguments, got %d", chat.ErrUsage, fs.NArg())
	}

	cfg := def
	if *path != "" {
		if err := LoadFile(*path, &cfg); err != nil {
			return Client{}, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Transport = set.Transport
		case "framing":
			cfg.Framing = set.Framing
		case "ws-path":
			cfg.WSPath = set.WSPath
		case "max-message":
			cfg.MaxMessage = set.MaxMessage
		case "max-handle":
			cfg.MaxHandle = set.MaxHandle
		case "peer-handle-buffer":
			cfg.PeerHandleBuffer = set.PeerHandleBuffer
		case "try-all":
			cfg.TryAllEndpoints = set.TryAllEndpoints
		case "log-level":
			cfg.LogLevel = set.LogLevel
		}
	})
	cfg.Host, cfg.Port = fs.Arg(0), fs.Arg(1)

	if err := cfg.Validate(); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// ParseServer parses `name [flags] [port]`. A bare port overrides -addr.
func ParseServer(name string, args []string, stderr io.Writer) (Server, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] [port]\n", name)
		fs.PrintDefaults()
	}

	def := DefaultServer()
	set := def
	path := fs.String("config", "", "YAML config file")
	fs.StringVar(&set.Address, "addr", def.Address, "Address to listen on for both TCP and WebSocket (e.g., :8080)")
	fs.StringVar(&set.Handle, "handle", def.Handle, "Server handle; prompted for when empty")
	fs.StringVar(&set.Mode, "mode", def.Mode, "Reply mode: interactive or echo")
	fs.StringVar(&set.Framing, "framing", def.Framing, "Framing for tcp peers: raw or proto")
	fs.BoolVar(&set.WebSocket, "websocket", def.WebSocket, "Accept WebSocket upgrades on the same port")
	fs.IntVar(&set.MaxMessage, "max-message", def.MaxMessage, "Maximum message length in bytes")
	fs.IntVar(&set.MaxHandle, "max-handle", def.MaxHandle, "Maximum handle length in bytes")
	fs.StringVar(&set.LogLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Server{}, err
		}
		return Server{}, fmt.Errorf("%w: %w", chat.ErrUsage, err)
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return Server{}, fmt.Errorf("%w: expected at most 1 argument, got %d", chat.ErrUsage, fs.NArg())
	}

	cfg := def
	if *path != "" {
		if err := LoadFile(*path, &cfg); err != nil {
			return Server{}, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Address = set.Address
		case "handle":
			cfg.Handle = set.Handle
		case "mode":
			cfg.Mode = set.Mode
		case "framing":
			cfg.Framing = set.Framing
		case "websocket":
			cfg.WebSocket = set.WebSocket
		case "max-message":
			cfg.MaxMessage = set.MaxMessage
		case "max-handle":
			cfg.MaxHandle = set.MaxHandle
		case "log-level":
			cfg.LogLevel = set.LogLevel
		}
	})
	if fs.NArg() == 1 {
		cfg.Address = ":" + fs.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}
