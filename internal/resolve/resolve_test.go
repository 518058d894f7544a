package resolve_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/resolve"
)

type fakeLookup struct {
	addrs     map[string][]netip.Addr
	ports     map[string]int
	hostCalls int
}

func (f *fakeLookup) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	f.hostCalls++
	if network != "ip4" {
		return nil, errors.New("unexpected network " + network)
	}
	addrs, ok := f.addrs[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func (f *fakeLookup) LookupPort(ctx context.Context, network, service string) (int, error) {
	p, ok := f.ports[service]
	if !ok {
		return 0, errors.New("unknown port")
	}
	return p, nil
}

func newFake() *fakeLookup {
	return &fakeLookup{
		addrs: map[string][]netip.Addr{
			"chat.example": {
				netip.MustParseAddr("10.0.0.1"),
				netip.MustParseAddr("2001:db8::1"),
				netip.MustParseAddr("10.0.0.2"),
			},
			"v6only.example": {netip.MustParseAddr("2001:db8::2")},
			"mapped.example": {netip.MustParseAddr("::ffff:192.0.2.7")},
		},
		ports: map[string]int{"chat": 30020},
	}
}

func TestResolve_IPv4Only(t *testing.T) {
	r := resolve.New(newFake(), nil)

	eps, err := r.Resolve(context.Background(), "chat.example", "30020")
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "10.0.0.1:30020", eps[0].String())
	assert.Equal(t, "10.0.0.2:30020", eps[1].String())
	assert.Equal(t, "tcp4", eps[0].Network())
}

func TestResolve_ServiceName(t *testing.T) {
	r := resolve.New(newFake(), nil)

	eps, err := r.Resolve(context.Background(), "chat.example", "chat")
	require.NoError(t, err)
	assert.Equal(t, uint16(30020), eps[0].AddrPort().Port())
}

func TestResolve_MappedAddress(t *testing.T) {
	r := resolve.New(newFake(), nil)

	eps, err := r.Resolve(context.Background(), "mapped.example", "1")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.7:1", eps[0].String())
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		host string
		port string
	}{
		{"empty host", "", "80"},
		{"empty port", "chat.example", ""},
		{"unknown host", "nowhere.example", "80"},
		{"ipv6 only", "v6only.example", "80"},
		{"unknown service", "chat.example", "nope"},
		{"port out of range", "chat.example", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resolve.New(newFake(), nil)
			eps, err := r.Resolve(context.Background(), tt.host, tt.port)
			assert.ErrorIs(t, err, chat.ErrResolve)
			assert.Empty(t, eps)
		})
	}
}

func TestResolve_Literal(t *testing.T) {
	r := resolve.New(nil, nil)

	eps, err := r.Resolve(context.Background(), "127.0.0.1", "8080")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "127.0.0.1:8080", eps[0].String())
}
