// Package config loads client and server settings from defaults, an optional
// YAML file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	TransportTCP = "tcp"
	TransportWS  = "ws"

	FramingRaw   = "raw"
	FramingProto = "proto"

	ModeInteractive = "interactive"
	ModeEcho        = "echo"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Client holds the chat client settings.
type Client struct {
	Host string `yaml:"-"`
	Port string `yaml:"-"`

	Transport        string `yaml:"transport"`
	Framing          string `yaml:"framing"`
	WSPath           string `yaml:"ws_path"`
	MaxMessage       int    `yaml:"max_message"`
	MaxHandle        int    `yaml:"max_handle"`
	PeerHandleBuffer int    `yaml:"peer_handle_buffer"`
	TryAllEndpoints  bool   `yaml:"try_all_endpoints"`
	LogLevel         string `yaml:"log_level"`
}

// DefaultClient returns the client defaults.
func DefaultClient() Client {
	return Client{
		Transport:        TransportTCP,
		Framing:          FramingRaw,
		WSPath:           "/",
		MaxMessage:       500,
		MaxHandle:        10,
		PeerHandleBuffer: 10,
		LogLevel:         "warn",
	}
}

// Validate checks the client settings.
func (c Client) Validate() error {
	switch {
	case c.Host == "" || c.Port == "":
		return fmt.Errorf("%w: host and port are required", ErrInvalid)
	case c.Transport != TransportTCP && c.Transport != TransportWS:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Transport)
	case c.Framing != FramingRaw && c.Framing != FramingProto:
		return fmt.Errorf("%w: unknown framing %q", ErrInvalid, c.Framing)
	case c.Transport == TransportWS && c.Framing == FramingProto:
		return fmt.Errorf("%w: proto framing is only available over tcp", ErrInvalid)
	case c.MaxMessage <= 0 || c.MaxHandle <= 0 || c.PeerHandleBuffer <= 0:
		return fmt.Errorf("%w: sizes must be positive", ErrInvalid)
	}
	return nil
}

// Server holds the peer server settings.
type Server struct {
	Address    string `yaml:"address"`
	Handle     string `yaml:"handle"`
	Mode       string `yaml:"mode"`
	Framing    string `yaml:"framing"`
	WebSocket  bool   `yaml:"websocket"`
	MaxMessage int    `yaml:"max_message"`
	MaxHandle  int    `yaml:"max_handle"`
	LogLevel   string `yaml:"log_level"`
}

// DefaultServer returns the server defaults.
func DefaultServer() Server {
	return Server{
		Address:    ":8080",
		Mode:       ModeInteractive,
		Framing:    FramingRaw,
		WebSocket:  true,
		MaxMessage: 500,
		MaxHandle:  10,
		LogLevel:   "info",
	}
}

// Validate checks the server settings. An empty Handle is allowed and
// means the operator is prompted for one.
func (s Server) Validate() error {
	switch {
	case s.Address == "":
		return fmt.Errorf("%w: address is required", ErrInvalid)
	case s.Mode != ModeInteractive && s.Mode != ModeEcho:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, s.Mode)
	case s.Framing != FramingRaw && s.Framing != FramingProto:
		return fmt.Errorf("%w: unknown framing %q", ErrInvalid, s.Framing)
	case s.MaxMessage <= 0 || s.MaxHandle <= 0:
		return fmt.Errorf("%w: sizes must be positive", ErrInvalid)
	case len(s.Handle) > s.MaxHandle:
		return fmt.Errorf("%w: handle longer than %d bytes", ErrInvalid, s.MaxHandle)
	}
	return nil
}

// LoadFile decodes the YAML file at path over dst. Keys missing from the
// file keep the values already in dst.
func LoadFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %w", ErrInvalid, path, err)
	}
	return nil
}
