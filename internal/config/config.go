package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/die-net/relay/internal/dns"
	"github.com/die-net/relay/internal/endpoint"
)

const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultTCPKeepAlive     = "45:45:3"
)

// ErrNoEndpoints is returned when neither the file nor the command line
// names a single endpoint.
var ErrNoEndpoints = errors.New("no endpoints configured")

type File struct {
	Log       Log        `yaml:"log"`
	DNS       DNS        `yaml:"dns"`
	Network   Network    `yaml:"network"`
	Nofile    uint64     `yaml:"nofile"`
	PipeCap   int        `yaml:"pipe_cap"`
	Endpoints []Endpoint `yaml:"endpoints"`
}

type Log struct {
	Level string `yaml:"level"`

	// Output is a file path, or stderr/stdout. Empty means stderr.
	Output string `yaml:"output"`
}

type DNS struct {
	Mode        string   `yaml:"mode"`
	Nameservers []string `yaml:"nameservers"`
	Timeout     Duration `yaml:"timeout"`
}

// Network holds connection tuning. Zero fields in an endpoint's override
// inherit the global value.
type Network struct {
	DialTimeout      Duration `yaml:"dial_timeout"`
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
	TCPKeepAlive     string   `yaml:"tcp_keepalive"`
}

type Endpoint struct {
	endpoint.Config `yaml:",inline"`

	Network *Network `yaml:"network,omitempty"`
}

// Default returns the settings used when no file is given.
func Default() *File {
	return &File{
		Log: Log{Level: "info"},
		DNS: DNS{Mode: dns.IPv4AndIPv6.String(), Timeout: Duration(dns.DefaultTimeout)},
		Network: Network{
			DialTimeout:      Duration(DefaultDialTimeout),
			HandshakeTimeout: Duration(DefaultHandshakeTimeout),
			TCPKeepAlive:     DefaultTCPKeepAlive,
		},
	}
}

// Load reads path on top of Default.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Config path is operator supplied.
	if err != nil {
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML document on top of Default. Unknown keys are errors.
func Parse(data []byte) (*File, error) {
	f := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return f, nil
}

// merge returns n with the non-zero fields of o applied.
func (n Network) merge(o *Network) Network {
	if o == nil {
		return n
	}
	if o.DialTimeout != 0 {
		n.DialTimeout = o.DialTimeout
	}
	if o.HandshakeTimeout != 0 {
		n.HandshakeTimeout = o.HandshakeTimeout
	}
	if o.TCPKeepAlive != "" {
		n.TCPKeepAlive = o.TCPKeepAlive
	}
	return n
}

func (n Network) NetConfig() (endpoint.NetConfig, error) {
	ka, err := ParseTCPKeepAlive(n.TCPKeepAlive)
	if err != nil {
		return endpoint.NetConfig{}, fmt.Errorf("tcp_keepalive: %w", err)
	}
	return endpoint.NetConfig{
		DialTimeout:      n.DialTimeout.Duration(),
		HandshakeTimeout: n.HandshakeTimeout.Duration(),
		KeepAlive:        ka,
	}, nil
}

// EndpointConfigs returns one endpoint.Config per configured endpoint with
// its network settings resolved. All invalid entries are reported together.
func (f *File) EndpointConfigs() ([]endpoint.Config, error) {
	if len(f.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	out := make([]endpoint.Config, 0, len(f.Endpoints))
	var errs error
	for i, e := range f.Endpoints {
		nc, err := f.Network.merge(e.Network).NetConfig()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("endpoints[%d]: %w", i, err))
			continue
		}
		cfg := e.Config
		cfg.Net = nc
		out = append(out, cfg)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func (f *File) DNSConfig() (dns.Config, error) {
	mode, err := dns.ParseMode(f.DNS.Mode)
	if err != nil {
		return dns.Config{}, err
	}
	return dns.Config{
		Mode:        mode,
		Nameservers: f.DNS.Nameservers,
		Timeout:     f.DNS.Timeout.Duration(),
	}, nil
}
