//go:build linux || darwin || openbsd || netbsd

package sockopt

import (
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/sys/unix"
)

func bindSource(c syscall.RawConn, addr netip.AddrPort) error {
	var sa unix.Sockaddr
	ip := addr.Addr().Unmap()
	if ip.Is4() {
		sa = &unix.SockaddrInet4{Port: int(addr.Port()), Addr: ip.As4()}
	} else {
		sa6 := &unix.SockaddrInet6{Port: int(addr.Port()), Addr: ip.As16()}
		if zone := ip.Zone(); zone != "" {
			ifi, err := net.InterfaceByName(zone)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			sa6.ZoneId = uint32(ifi.Index)
		}
		sa = sa6
	}

	var bindErr error
	err := c.Control(func(fd uintptr) {
		bindErr = unix.Bind(int(fd), sa)
	})
	if err != nil {
		return err
	}
	if bindErr != nil {
		return fmt.Errorf("bind %s: %w", addr, bindErr)
	}
	return nil
}

func nofileLimit() (uint64, uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, 0, fmt.Errorf("getrlimit nofile: %w", err)
	}
	return lim.Cur, lim.Max, nil
}

func setNofileLimit(n uint64) error {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return fmt.Errorf("getrlimit nofile: %w", err)
	}

	lim.Cur = n
	if n > lim.Max {
		lim.Max = n
	}

	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return fmt.Errorf("setrlimit nofile %d: %w", n, err)
	}
	return nil
}
