package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// DefaultTimeout bounds a synchronous lookup.
const DefaultTimeout = 5 * time.Second

type Config struct {
	Mode Mode

	// Nameservers are host or host:port entries. Empty means the system
	// resolver.
	Nameservers []string

	Timeout time.Duration
}

// Resolver looks up host names. It is safe for concurrent use and holds no
// per-name state.
type Resolver struct {
	mode    Mode
	timeout time.Duration
	servers []string
	client  *dns.Client
	system  *net.Resolver
}

// New validates cfg and returns a Resolver.
func New(cfg Config) (*Resolver, error) {
	r := &Resolver{
		mode:    cfg.Mode,
		timeout: cfg.Timeout,
		system:  net.DefaultResolver,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}

	for _, s := range cfg.Nameservers {
		addr, err := nameserverAddr(s)
		if err != nil {
			return nil, err
		}
		r.servers = append(r.servers, addr)
	}
	if len(r.servers) > 0 {
		r.client = &dns.Client{Net: "udp", Timeout: r.timeout}
	}

	return r, nil
}

func nameserverAddr(s string) (string, error) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.String(), nil
	}
	if ip, err := netip.ParseAddr(s); err == nil {
		return netip.AddrPortFrom(ip, 53).String(), nil
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil || host == "" {
		return "", fmt.Errorf("invalid nameserver %q", s)
	}
	return net.JoinHostPort(host, port), nil
}

// Mode returns the configured address family mode.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// LookupNetIP resolves host to addresses ordered by the resolver's mode. A
// literal IP is returned as is.
func (r *Resolver) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{ip}, nil
	}

	var (
		addrs []netip.Addr
		err   error
	)
	if r.client != nil {
		addrs, err = r.exchange(ctx, host)
	} else {
		addrs, err = r.system.LookupNetIP(ctx, r.mode.network(), host)
	}
	if err != nil {
		return nil, err
	}

	addrs = r.mode.order(addrs)
	if len(addrs) == 0 {
		return nil, &net.DNSError{Err: "no suitable address", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

// LookupSync is LookupNetIP bounded by the configured timeout. It is meant
// for configuration-time checks.
func (r *Resolver) LookupSync(host string) ([]netip.Addr, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.LookupNetIP(ctx, host)
}

func (r *Resolver) queryTypes() []uint16 {
	switch r.mode {
	case IPv4Only:
		return []uint16{dns.TypeA}
	case IPv6Only:
		return []uint16{dns.TypeAAAA}
	case IPv6ThenIPv4:
		return []uint16{dns.TypeAAAA, dns.TypeA}
	default:
		return []uint16{dns.TypeA, dns.TypeAAAA}
	}
}

func (r *Resolver) exchange(ctx context.Context, host string) ([]netip.Addr, error) {
	var (
		addrs   []netip.Addr
		lastErr error
	)
	for _, qtype := range r.queryTypes() {
		got, err := r.query(ctx, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		addrs = append(addrs, got...)
	}
	if len(addrs) == 0 {
		if lastErr == nil {
			lastErr = &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
		}
		return nil, lastErr
	}
	return addrs, nil
}

var errServFail = errors.New("server failure")

// query asks each nameserver in turn until one gives a definitive answer.
func (r *Resolver) query(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = fmt.Errorf("query %s %s: %w", server, dns.TypeToString[qtype], err)
			continue
		}

		switch in.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, &net.DNSError{Err: "no such host", Name: host, Server: server, IsNotFound: true}
		default:
			lastErr = fmt.Errorf("query %s %s: %w: %s", server, dns.TypeToString[qtype], errServFail, dns.RcodeToString[in.Rcode])
			continue
		}

		var addrs []netip.Addr
		for _, rr := range in.Answer {
			switch v := rr.(type) {
			case *dns.A:
				if ip, ok := netip.AddrFromSlice(v.A.To4()); ok {
					addrs = append(addrs, ip)
				}
			case *dns.AAAA:
				if ip, ok := netip.AddrFromSlice(v.AAAA.To16()); ok {
					addrs = append(addrs, ip)
				}
			}
		}
		return addrs, nil
	}
	return nil, lastErr
}
