package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/die-net/relay/internal/dns"
)

const sampleConfig = `
log:
  level: debug
dns:
  mode: ipv6_then_ipv4
  nameservers: [127.0.0.1:5353, "::1"]
  timeout: 2s
network:
  dial_timeout: 3s
  tcp_keepalive: "off"
nofile: 4096
pipe_cap: 65536
endpoints:
  - listen: 0.0.0.0:5000
    remote: example.com:443
    through: 192.0.2.1
    remote_transport: tls;sni=example.com
  - listen: "[::]:5001"
    remote: 10.0.0.1:22
    interface: eth0
    network:
      handshake_timeout: 30
      tcp_keepalive: "10:5:2"
`

func TestParse(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", f.Log.Level)
	assert.Equal(t, uint64(4096), f.Nofile)
	assert.Equal(t, 65536, f.PipeCap)

	dc, err := f.DNSConfig()
	require.NoError(t, err)
	assert.Equal(t, dns.IPv6ThenIPv4, dc.Mode)
	assert.Equal(t, []string{"127.0.0.1:5353", "::1"}, dc.Nameservers)
	assert.Equal(t, 2*time.Second, dc.Timeout)

	eps, err := f.EndpointConfigs()
	require.NoError(t, err)
	require.Len(t, eps, 2)

	assert.Equal(t, "0.0.0.0:5000", eps[0].Listen)
	assert.Equal(t, "example.com:443", eps[0].Remote)
	assert.Equal(t, "192.0.2.1", eps[0].Through)
	assert.Equal(t, "tls;sni=example.com", eps[0].RemoteTransport)
	assert.Equal(t, 3*time.Second, eps[0].Net.DialTimeout)
	assert.Equal(t, DefaultHandshakeTimeout, eps[0].Net.HandshakeTimeout)
	assert.False(t, eps[0].Net.KeepAlive.Enable)

	// Per-endpoint network settings override only what they name.
	assert.Equal(t, "eth0", eps[1].Interface)
	assert.Equal(t, 3*time.Second, eps[1].Net.DialTimeout)
	assert.Equal(t, 30*time.Second, eps[1].Net.HandshakeTimeout)
	assert.Equal(t, net.KeepAliveConfig{Enable: true, Idle: 10 * time.Second, Interval: 5 * time.Second, Count: 2}, eps[1].Net.KeepAlive)
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), f)

	_, err = f.EndpointConfigs()
	assert.ErrorIs(t, err, ErrNoEndpoints)

	dc, err := f.DNSConfig()
	require.NoError(t, err)
	assert.Equal(t, dns.IPv4AndIPv6, dc.Mode)
	assert.Equal(t, dns.DefaultTimeout, dc.Timeout)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "unknown key", in: "listen: 0.0.0.0:1\n"},
		{name: "bad duration", in: "network:\n  dial_timeout: soon\n"},
		{name: "wrong type", in: "nofile: many\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestEndpointConfigsReportsEveryBadEntry(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(`
endpoints:
  - listen: 127.0.0.1:1
    remote: 127.0.0.1:2
    network: {tcp_keepalive: sometimes}
  - listen: 127.0.0.1:3
    remote: 127.0.0.1:4
  - listen: 127.0.0.1:5
    remote: 127.0.0.1:6
    network: {tcp_keepalive: "1:2"}
`))
	require.NoError(t, err)

	_, err = f.EndpointConfigs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoints[0]")
	assert.Contains(t, err.Error(), "endpoints[2]")
	assert.NotContains(t, err.Error(), "endpoints[1]")
}

func TestDNSConfigBadMode(t *testing.T) {
	t.Parallel()

	f := Default()
	f.DNS.Mode = "ipv5"
	_, err := f.DNSConfig()
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Endpoints, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseTCPKeepAlive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    net.KeepAliveConfig
		wantErr bool
	}{
		{in: "on", want: net.KeepAliveConfig{Enable: true}},
		{in: " OFF ", want: net.KeepAliveConfig{}},
		{in: "45:45:3", want: net.KeepAliveConfig{Enable: true, Idle: 45 * time.Second, Interval: 45 * time.Second, Count: 3}},
		{in: "", wantErr: true},
		{in: "1:2", wantErr: true},
		{in: "0:1:1", wantErr: true},
		{in: "1:x:1", wantErr: true},
		{in: "1:1:-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTCPKeepAlive(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	log, err := Log{Level: "warn"}.NewLogger(false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = Log{Level: "warn"}.NewLogger(true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	path := filepath.Join(t.TempDir(), "relay.log")
	log, err = Log{Output: path}.NewLogger(false)
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	_, err = Log{Level: "chatty"}.NewLogger(false)
	assert.Error(t, err)
}
