package endpoint

import (
	"context"
	"net"
	"net/netip"
	"strconv"
)

// Resolver looks up the addresses of a host name.
type Resolver interface {
	LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error)
}

// RemoteAddr is the relay target. A fixed address was resolved once at
// configuration time and never changes. A domain address keeps only the name
// and port; it is resolved again on every dial and the result is not stored.
type RemoteAddr struct {
	domain bool
	addr   netip.AddrPort
	host   string
	port   uint16
}

// Fixed returns a RemoteAddr that always dials ap.
func Fixed(ap netip.AddrPort) RemoteAddr {
	return RemoteAddr{addr: ap}
}

// Domain returns a RemoteAddr that resolves host on each dial.
func Domain(host string, port uint16) RemoteAddr {
	return RemoteAddr{domain: true, host: host, port: port}
}

// IsDomain reports whether r is resolved per dial.
func (r RemoteAddr) IsDomain() bool {
	return r.domain
}

// AddrPort returns the fixed address. ok is false for a domain address.
func (r RemoteAddr) AddrPort() (ap netip.AddrPort, ok bool) {
	return r.addr, !r.domain
}

// Host returns the host name of a domain address, or the IP of a fixed one.
func (r RemoteAddr) Host() string {
	if r.domain {
		return r.host
	}
	return r.addr.Addr().String()
}

// Port returns the target port.
func (r RemoteAddr) Port() uint16 {
	if r.domain {
		return r.port
	}
	return r.addr.Port()
}

func (r RemoteAddr) String() string {
	if r.domain {
		return net.JoinHostPort(r.host, strconv.Itoa(int(r.port)))
	}
	return r.addr.String()
}

// Resolve returns the candidate addresses for a single dial, in the order
// they should be tried.
func (r RemoteAddr) Resolve(ctx context.Context, res Resolver) ([]netip.AddrPort, error) {
	if !r.domain {
		return []netip.AddrPort{r.addr}, nil
	}

	ips, err := res.LookupNetIP(ctx, r.host)
	if err != nil {
		return nil, err
	}

	addrs := make([]netip.AddrPort, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, netip.AddrPortFrom(ip, r.port))
	}
	return addrs, nil
}
