package endpoint

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/die-net/relay/internal/transport"
)

// NetConfig is the socket tuning applied to both legs of a relay.
type NetConfig struct {
	// DialTimeout bounds each outbound connect attempt.
	DialTimeout time.Duration
	// HandshakeTimeout bounds the transport handshake on each leg.
	HandshakeTimeout time.Duration
	KeepAlive        net.KeepAliveConfig
}

// ConnectOpts is the outbound policy of an endpoint.
type ConnectOpts struct {
	// SendThrough is the source address to bind before connecting. The
	// zero value means let the kernel choose.
	SendThrough netip.AddrPort
	// BindInterface names the egress interface, or is empty.
	BindInterface string
	// Transport is nil for a plain relay.
	Transport *transport.Pair

	Net NetConfig
}

// Endpoint is one relay rule. It is never modified after Build returns and is
// shared by every connection accepted on its listener.
type Endpoint struct {
	Local  *net.TCPAddr
	Remote RemoteAddr
	Opts   ConnectOpts
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("%s -> %s", e.Local, e.Remote)
}

// Config holds the textual fields of one rule as they appear in a
// configuration file or on the command line.
type Config struct {
	Listen          string `yaml:"listen"`
	Remote          string `yaml:"remote"`
	Through         string `yaml:"through,omitempty"`
	Interface       string `yaml:"interface,omitempty"`
	ListenTransport string `yaml:"listen_transport,omitempty"`
	RemoteTransport string `yaml:"remote_transport,omitempty"`

	Net NetConfig `yaml:"-"`
}

// ConfigError is a fatal configuration problem in one field.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
