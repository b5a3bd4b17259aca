//go:build linux

package sockopt

import (
	"fmt"
	"net/netip"
	"syscall"

	"golang.org/x/sys/unix"
)

// BindToDeviceSupported is true where SO_BINDTODEVICE exists.
const BindToDeviceSupported = true

type linuxTuner struct{}

// Default returns the tuner for the running platform.
func Default() Tuner {
	return linuxTuner{}
}

func (linuxTuner) BindSource(c syscall.RawConn, addr netip.AddrPort) error {
	return bindSource(c, addr)
}

// BindToDevice sets SO_BINDTODEVICE. BSDs have no equivalent socket option
// (IP_SENDIF was never merged), hence Linux only.
func (linuxTuner) BindToDevice(c syscall.RawConn, iface string) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.BindToDevice(int(fd), iface)
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return fmt.Errorf("bind to device %q: %w", iface, opErr)
	}
	return nil
}

func (linuxTuner) PipeCap(n int) int {
	if n <= 0 {
		return 0
	}
	return n
}

func (linuxTuner) NofileLimit() (uint64, uint64, error) {
	return nofileLimit()
}

func (linuxTuner) SetNofileLimit(n uint64) error {
	return setNofileLimit(n)
}
