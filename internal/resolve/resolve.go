// Package resolve turns a host and port/service pair into IPv4 stream endpoints.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"go.uber.org/zap"

	"github.com/omochice/toy-handle-chat/internal/chat"
)

// Network is the only address family and transport the resolver yields.
const Network = "tcp4"

// Endpoint is a resolved IPv4 address and port.
type Endpoint struct {
	addr netip.AddrPort
}

// NewEndpoint builds an Endpoint from an address and port.
func NewEndpoint(ip netip.Addr, port uint16) Endpoint {
	return Endpoint{addr: netip.AddrPortFrom(ip.Unmap(), port)}
}

// Network returns the network name to dial.
func (e Endpoint) Network() string {
	return Network
}

// AddrPort returns the address and port.
func (e Endpoint) AddrPort() netip.AddrPort {
	return e.addr
}

// String returns the endpoint in host:port form.
func (e Endpoint) String() string {
	return e.addr.String()
}

// Lookup is the subset of *net.Resolver the Resolver needs.
type Lookup interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// Resolver resolves hosts to IPv4 endpoints.
type Resolver struct {
	lookup Lookup
	logger *zap.Logger
}

// New creates a Resolver. A nil lookup uses net.DefaultResolver.
func New(lookup Lookup, logger *zap.Logger) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve returns every IPv4 candidate for host and port, in resolver order.
func (r *Resolver) Resolve(ctx context.Context, host, port string) ([]Endpoint, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", chat.ErrResolve)
	}
	if port == "" {
		return nil, fmt.Errorf("%w: empty port", chat.ErrResolve)
	}

	p, err := r.port(ctx, port)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", chat.ErrResolve, err)
	}

	addrs, err := r.lookup.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", chat.ErrResolve, err)
	}

	var endpoints []Endpoint
	for _, a := range addrs {
		if a = a.Unmap(); a.Is4() {
			endpoints = append(endpoints, NewEndpoint(a, p))
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: no IPv4 address for %q", chat.ErrResolve, host)
	}

	r.logger.Debug("resolved",
		zap.String("host", host),
		zap.String("port", port),
		zap.Int("candidates", len(endpoints)),
		zap.Stringer("first", endpoints[0]),
	)
	return endpoints, nil
}

func (r *Resolver) port(ctx context.Context, service string) (uint16, error) {
	if n, err := strconv.ParseUint(service, 10, 16); err == nil {
		return uint16(n), nil
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("invalid port %q", service)
	}
	n, err := r.lookup.LookupPort(ctx, "tcp", service)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}
