package dns

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

// Mode selects which address families a lookup returns and in what order.
type Mode int

const (
	IPv4AndIPv6 Mode = iota
	IPv4Only
	IPv6Only
	IPv4ThenIPv6
	IPv6ThenIPv4
)

var modeNames = map[Mode]string{
	IPv4AndIPv6:  "ipv4_and_ipv6",
	IPv4Only:     "ipv4_only",
	IPv6Only:     "ipv6_only",
	IPv4ThenIPv6: "ipv4_then_ipv6",
	IPv6ThenIPv4: "ipv6_then_ipv4",
}

// ParseMode parses a mode name. The empty string is IPv4AndIPv6.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return IPv4AndIPv6, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown dns mode %q", s)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// network is the net.Resolver network argument for m.
func (m Mode) network() string {
	switch m {
	case IPv4Only:
		return "ip4"
	case IPv6Only:
		return "ip6"
	default:
		return "ip"
	}
}

// order filters and sorts addrs in place according to m.
func (m Mode) order(addrs []netip.Addr) []netip.Addr {
	switch m {
	case IPv4Only:
		return slices.DeleteFunc(addrs, func(a netip.Addr) bool { return !a.Unmap().Is4() })
	case IPv6Only:
		return slices.DeleteFunc(addrs, func(a netip.Addr) bool { return a.Unmap().Is4() })
	case IPv4ThenIPv6:
		slices.SortStableFunc(addrs, func(a, b netip.Addr) int { return familyRank(b) - familyRank(a) })
	case IPv6ThenIPv4:
		slices.SortStableFunc(addrs, func(a, b netip.Addr) int { return familyRank(a) - familyRank(b) })
	}
	return addrs
}

func familyRank(a netip.Addr) int {
	if a.Unmap().Is4() {
		return 1
	}
	return 0
}
