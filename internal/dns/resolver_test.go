package dns

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/die-net/relay/internal/testutil"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: IPv4AndIPv6},
		{in: "ipv4_only", want: IPv4Only},
		{in: " IPv6_Only ", want: IPv6Only},
		{in: "ipv4_then_ipv6", want: IPv4ThenIPv6},
		{in: "ipv6_then_ipv4", want: IPv6ThenIPv4},
		{in: "ipv4_and_ipv6", want: IPv4AndIPv6},
		{in: "both", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, must(ParseMode(got.String())))
		})
	}
}

func must(m Mode, err error) Mode {
	if err != nil {
		panic(err)
	}
	return m
}

func TestModeOrder(t *testing.T) {
	t.Parallel()

	v4 := netip.MustParseAddr("192.0.2.1")
	v6 := netip.MustParseAddr("2001:db8::1")

	tests := []struct {
		mode Mode
		want []netip.Addr
	}{
		{mode: IPv4AndIPv6, want: []netip.Addr{v6, v4}},
		{mode: IPv4Only, want: []netip.Addr{v4}},
		{mode: IPv6Only, want: []netip.Addr{v6}},
		{mode: IPv4ThenIPv6, want: []netip.Addr{v4, v6}},
		{mode: IPv6ThenIPv4, want: []netip.Addr{v6, v4}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got := tt.mode.order([]netip.Addr{v6, v4})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNameserverAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1.1.1.1", want: "1.1.1.1:53"},
		{in: "1.1.1.1:5353", want: "1.1.1.1:5353"},
		{in: "2606:4700::1111", want: "[2606:4700::1111]:53"},
		{in: "[2606:4700::1111]:853", want: "[2606:4700::1111]:853"},
		{in: "dns.example:53", want: "dns.example:53"},
		{in: "dns.example", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := nameserverAddr(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupLiteral(t *testing.T) {
	t.Parallel()

	r, err := New(Config{})
	require.NoError(t, err)

	got, err := r.LookupNetIP(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("203.0.113.9")}, got)
}

func TestLookupNameserver(t *testing.T) {
	t.Parallel()

	a1 := netip.MustParseAddr("10.0.0.1")
	a2 := netip.MustParseAddr("10.0.0.2")
	a6 := netip.MustParseAddr("fd00::1")

	server := testutil.StartDNSServer(t, map[string][]netip.Addr{
		"rr.test.":   {a1, a2},
		"dual.test.": {a1, a6},
	})

	r, err := New(Config{Nameservers: []string{server}, Mode: IPv4Only})
	require.NoError(t, err)

	first, err := r.LookupSync("rr.test")
	require.NoError(t, err)
	second, err := r.LookupSync("rr.test")
	require.NoError(t, err)

	assert.ElementsMatch(t, []netip.Addr{a1, a2}, first)
	assert.ElementsMatch(t, []netip.Addr{a1, a2}, second)
	assert.NotEqual(t, first, second, "answers are not cached")

	dual, err := New(Config{Nameservers: []string{server}, Mode: IPv6ThenIPv4})
	require.NoError(t, err)
	got, err := dual.LookupSync("dual.test")
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{a6, a1}, got)

	_, err = r.LookupSync("missing.test")
	var dnsErr *net.DNSError
	require.ErrorAs(t, err, &dnsErr)
	assert.True(t, dnsErr.IsNotFound)
}

func TestLookupNameserverFallback(t *testing.T) {
	t.Parallel()

	a1 := netip.MustParseAddr("10.0.0.1")
	server := testutil.StartDNSServer(t, map[string][]netip.Addr{"up.test.": {a1}})

	// A closed UDP port first; the second server answers.
	dead := testutil.ClosedPort(t)
	r, err := New(Config{Nameservers: []string{dead, server}, Mode: IPv4Only, Timeout: 500 * time.Millisecond})
	require.NoError(t, err)

	got, err := r.LookupSync("up.test")
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{a1}, got)
}
