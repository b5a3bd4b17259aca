package endpoint

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/die-net/relay/internal/sockopt"
	"github.com/die-net/relay/internal/transport"
)

const defaultLookupTimeout = 5 * time.Second

// Builder turns Configs into Endpoints.
type Builder struct {
	// Resolver validates domain remotes at build time.
	Resolver Resolver
	// LookupTimeout bounds each build-time lookup.
	LookupTimeout time.Duration
	Log           *zap.Logger
}

// Build parses every field of cfg.
func (b *Builder) Build(cfg Config) (*Endpoint, error) {
	local, err := b.BuildLocal(cfg.Listen)
	if err != nil {
		return nil, err
	}

	remote, err := b.BuildRemote(cfg.Remote)
	if err != nil {
		return nil, err
	}

	pair, err := BuildTransport(cfg.ListenTransport, cfg.RemoteTransport)
	if err != nil {
		return nil, err
	}

	through := BuildSendThrough(cfg.Through)
	if cfg.Through != "" && !through.IsValid() {
		b.log().Warn("ignoring unusable through address", zap.String("through", cfg.Through))
	}

	if cfg.Interface != "" && !sockopt.BindToDeviceSupported {
		b.log().Warn("interface binding is not supported on this platform, ignoring",
			zap.String("interface", cfg.Interface))
	}

	return &Endpoint{
		Local:  local,
		Remote: remote,
		Opts: ConnectOpts{
			SendThrough:   through,
			BindInterface: cfg.Interface,
			Transport:     pair,
			Net:           cfg.Net,
		},
	}, nil
}

// BuildLocal parses the listen address. A host name that resolves to several
// addresses yields the first one.
func (b *Builder) BuildLocal(listen string) (*net.TCPAddr, error) {
	if listen == "" {
		return nil, &ConfigError{Field: "listen", Value: listen, Err: errors.New("empty")}
	}
	addr, err := net.ResolveTCPAddr("tcp", listen)
	if err != nil {
		return nil, &ConfigError{Field: "listen", Value: listen, Err: err}
	}
	return addr, nil
}

// BuildRemote parses the remote address. A literal ip:port yields a fixed
// address. Anything else is split on the last ':' into host and port, and the
// host must resolve now, though the answer is discarded.
func (b *Builder) BuildRemote(remote string) (RemoteAddr, error) {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return Fixed(ap), nil
	}

	i := strings.LastIndexByte(remote, ':')
	if i < 0 {
		return RemoteAddr{}, &ConfigError{Field: "remote", Value: remote, Err: errors.New("missing port")}
	}
	host, portStr := remote[:i], remote[i+1:]

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return RemoteAddr{}, &ConfigError{Field: "remote", Value: remote, Err: errors.New("invalid port")}
	}
	if host == "" {
		return RemoteAddr{}, &ConfigError{Field: "remote", Value: remote, Err: errors.New("missing host")}
	}

	// An unbracketed IPv6 literal still names a fixed address.
	if ip, err := netip.ParseAddr(host); err == nil {
		return Fixed(netip.AddrPortFrom(ip, uint16(port))), nil
	}

	if err := b.validateHost(host); err != nil {
		return RemoteAddr{}, &ConfigError{Field: "remote", Value: remote, Err: err}
	}
	return Domain(host, uint16(port)), nil
}

func (b *Builder) validateHost(host string) error {
	if b.Resolver == nil {
		return errors.New("no resolver configured")
	}

	timeout := b.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := b.Resolver.LookupNetIP(ctx, host)
	return err
}

// BuildSendThrough parses the source address to bind. A full address is used
// as is; a bare IP, with or without brackets, gets port 0. Anything else,
// including the empty string, yields the zero AddrPort.
func BuildSendThrough(through string) netip.AddrPort {
	if through == "" {
		return netip.AddrPort{}
	}

	if addr, err := net.ResolveTCPAddr("tcp", through); err == nil && addr.IP != nil {
		ap := addr.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}

	ipstr := strings.NewReplacer("[", "", "]", "").Replace(through)
	if ip, err := netip.ParseAddr(ipstr); err == nil {
		return netip.AddrPortFrom(ip, 0)
	}
	return netip.AddrPort{}
}

// BuildTransport builds the transport pair from the listen and remote
// descriptors, or returns nil if neither enables anything.
func BuildTransport(listenTransport, remoteTransport string) (*transport.Pair, error) {
	pair, err := transport.Build(listenTransport, remoteTransport)
	if err != nil {
		return nil, &ConfigError{Field: "transport", Value: listenTransport + " | " + remoteTransport, Err: err}
	}
	return pair, nil
}

func (b *Builder) log() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}
