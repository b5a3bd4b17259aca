//go:build darwin || openbsd || netbsd

package sockopt

import (
	"errors"
	"net/netip"
	"syscall"
)

// BindToDeviceSupported is true where SO_BINDTODEVICE exists.
const BindToDeviceSupported = false

type bsdTuner struct{}

// Default returns the tuner for the running platform.
func Default() Tuner {
	return bsdTuner{}
}

func (bsdTuner) BindSource(c syscall.RawConn, addr netip.AddrPort) error {
	return bindSource(c, addr)
}

func (bsdTuner) BindToDevice(_ syscall.RawConn, _ string) error {
	return errors.ErrUnsupported
}

func (bsdTuner) PipeCap(_ int) int {
	return 0
}

func (bsdTuner) NofileLimit() (uint64, uint64, error) {
	return nofileLimit()
}

func (bsdTuner) SetNofileLimit(n uint64) error {
	return setNofileLimit(n)
}
