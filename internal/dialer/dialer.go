package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"github.com/die-net/relay/internal/endpoint"
	"github.com/die-net/relay/internal/sockopt"
)

var errNoAddress = errors.New("no address to dial")

// Dialer is shared by all endpoints; it holds no per-connection state.
type Dialer struct {
	res   endpoint.Resolver
	tuner sockopt.Tuner
}

func New(cfg Config) *Dialer {
	tuner := cfg.Tuner
	if tuner == nil {
		tuner = sockopt.Default()
	}
	return &Dialer{res: cfg.Resolver, tuner: tuner}
}

// DialRemote connects to remote under opts. A domain remote is resolved by
// this call alone; each resolved address is tried in turn and the first
// connection wins.
func (d *Dialer) DialRemote(ctx context.Context, remote endpoint.RemoteAddr, opts *endpoint.ConnectOpts) (net.Conn, error) {
	addrs, err := remote.Resolve(ctx, d.res)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", remote, err)
	}

	nd := d.netDialer(opts)

	lastErr := errNoAddress
	for _, ap := range addrs {
		conn, err := nd.DialContext(ctx, "tcp", ap.String())
		if err == nil {
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.SetKeepAliveConfig(opts.Net.KeepAlive)
			}
			return conn, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("dial %s: %w", remote, lastErr)
}

// netDialer returns a net.Dialer enforcing opts. When both a source address
// and an interface are set, the source bind happens first and the interface
// bind second, both before connect.
func (d *Dialer) netDialer(opts *endpoint.ConnectOpts) *net.Dialer {
	nd := &net.Dialer{Timeout: opts.Net.DialTimeout, KeepAlive: -1}

	through := opts.SendThrough
	iface := opts.BindInterface
	if iface == "" || !sockopt.BindToDeviceSupported {
		if through.IsValid() {
			nd.LocalAddr = net.TCPAddrFromAddrPort(through)
		}
		return nd
	}

	nd.Control = func(_, _ string, c syscall.RawConn) error {
		return d.bind(c, through, iface)
	}
	return nd
}

func (d *Dialer) bind(c syscall.RawConn, through netip.AddrPort, iface string) error {
	if through.IsValid() {
		if err := d.tuner.BindSource(c, through); err != nil {
			return err
		}
	}
	if err := d.tuner.BindToDevice(c, iface); err != nil && !sockopt.IsUnsupported(err) {
		return err
	}
	return nil
}
