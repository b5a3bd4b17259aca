package dialer

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/die-net/relay/internal/endpoint"
	"github.com/die-net/relay/internal/testutil"
)

type listResolver struct {
	mu    sync.Mutex
	addrs []netip.Addr
	calls int
}

func (r *listResolver) LookupNetIP(context.Context, string) ([]netip.Addr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.addrs, nil
}

func TestDialFixed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echo := testutil.StartEchoTCPServer(t, ctx)
	ap := netip.MustParseAddrPort(echo.Addr().String())

	d := New(Config{})
	opts := &endpoint.ConnectOpts{Net: endpoint.NetConfig{DialTimeout: time.Second}}

	c, err := d.DialRemote(ctx, endpoint.Fixed(ap), opts)
	require.NoError(t, err)
	defer c.Close()

	testutil.AssertEcho(t, c, c, []byte("fixed"))
	assert.Equal(t, echo.Addr().String(), c.RemoteAddr().String())
}

func TestDialDomainFailover(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echo := testutil.StartEchoTCPServer(t, ctx)
	echoAP := netip.MustParseAddrPort(echo.Addr().String())

	// 127.0.0.2 is on loopback but has no listener on this port.
	res := &listResolver{addrs: []netip.Addr{netip.MustParseAddr("127.0.0.2"), echoAP.Addr()}}
	d := New(Config{Resolver: res})
	remote := endpoint.Domain("svc.test", echoAP.Port())

	for i := range 2 {
		c, err := d.DialRemote(ctx, remote, &endpoint.ConnectOpts{Net: endpoint.NetConfig{DialTimeout: 500 * time.Millisecond}})
		require.NoError(t, err)
		testutil.AssertEcho(t, c, c, []byte("domain"))
		_ = c.Close()
		assert.Equal(t, i+1, res.calls)
	}
}

func TestDialAllFail(t *testing.T) {
	t.Parallel()

	closed := netip.MustParseAddrPort(testutil.ClosedPort(t))
	d := New(Config{Resolver: &listResolver{}})

	_, err := d.DialRemote(context.Background(), endpoint.Fixed(closed), &endpoint.ConnectOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), closed.String())

	_, err = d.DialRemote(context.Background(), endpoint.Domain("empty.test", 1), &endpoint.ConnectOpts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoAddress)
}

func TestDialSendThrough(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	accepted := make(chan net.Addr, 1)
	ln, wait := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		accepted <- c.RemoteAddr()
	})
	defer wait()

	d := New(Config{})
	opts := &endpoint.ConnectOpts{SendThrough: netip.MustParseAddrPort("127.0.0.1:0")}

	c, err := d.DialRemote(ctx, endpoint.Fixed(netip.MustParseAddrPort(ln.Addr().String())), opts)
	require.NoError(t, err)
	defer c.Close()

	peer := (<-accepted).(*net.TCPAddr)
	assert.Equal(t, "127.0.0.1", peer.IP.String())
}
