package endpoint

import (
	"context"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rotatingResolver hands out its addresses starting one further along on
// every call.
type rotatingResolver struct {
	mu    sync.Mutex
	addrs []netip.Addr
	n     int
}

func (r *rotatingResolver) LookupNetIP(context.Context, string) ([]netip.Addr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]netip.Addr, len(r.addrs))
	for i := range r.addrs {
		out[i] = r.addrs[(i+r.n)%len(r.addrs)]
	}
	r.n++
	return out, nil
}

func TestResolveFixed(t *testing.T) {
	t.Parallel()

	ap := netip.MustParseAddrPort("192.0.2.1:80")
	r := Fixed(ap)
	res := &rotatingResolver{addrs: []netip.Addr{netip.MustParseAddr("198.51.100.1")}}

	first, err := r.Resolve(context.Background(), res)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), res)
	require.NoError(t, err)

	assert.Equal(t, []netip.AddrPort{ap}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, res.n, "fixed address must not consult the resolver")
}

func TestResolveDomain(t *testing.T) {
	t.Parallel()

	a := netip.MustParseAddr("192.0.2.1")
	b := netip.MustParseAddr("192.0.2.2")
	res := &rotatingResolver{addrs: []netip.Addr{a, b}}
	r := Domain("rr.example", 8443)

	first, err := r.Resolve(context.Background(), res)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), res)
	require.NoError(t, err)

	assert.Equal(t, []netip.AddrPort{netip.AddrPortFrom(a, 8443), netip.AddrPortFrom(b, 8443)}, first)
	assert.Equal(t, []netip.AddrPort{netip.AddrPortFrom(b, 8443), netip.AddrPortFrom(a, 8443)}, second)

	// The value itself is untouched by resolution.
	assert.Equal(t, Domain("rr.example", 8443), r)
	assert.Equal(t, "rr.example:8443", r.String())
}
