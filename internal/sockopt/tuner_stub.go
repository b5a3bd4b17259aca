//go:build !linux && !darwin && !openbsd && !netbsd

package sockopt

import (
	"errors"
	"net/netip"
	"syscall"
)

// BindToDeviceSupported is true where SO_BINDTODEVICE exists.
const BindToDeviceSupported = false

type noopTuner struct{}

// Default returns the tuner for the running platform.
func Default() Tuner {
	return noopTuner{}
}

func (noopTuner) BindSource(_ syscall.RawConn, _ netip.AddrPort) error {
	return errors.ErrUnsupported
}

func (noopTuner) BindToDevice(_ syscall.RawConn, _ string) error {
	return errors.ErrUnsupported
}

func (noopTuner) PipeCap(_ int) int {
	return 0
}

func (noopTuner) NofileLimit() (uint64, uint64, error) {
	return 0, 0, errors.ErrUnsupported
}

func (noopTuner) SetNofileLimit(_ uint64) error {
	return errors.ErrUnsupported
}
