package sockopt

import (
	"errors"
	"net/netip"
	"syscall"

	"go.uber.org/zap"
)

// Tuner is the platform capability set used by the dialer and the relay.
//
// Operations the platform cannot perform return an error wrapping
// errors.ErrUnsupported; callers treat that as a no-op.
type Tuner interface {
	// BindSource binds the socket behind c to addr. It must run before
	// connect.
	BindSource(c syscall.RawConn, addr netip.AddrPort) error

	// BindToDevice restricts the socket behind c to egress via iface. It
	// must run before connect.
	BindToDevice(c syscall.RawConn, iface string) error

	// PipeCap returns the pipe capacity the zero-copy path should use when
	// n is requested, or 0 if zero-copy is unavailable.
	PipeCap(n int) int

	// NofileLimit returns the soft and hard RLIMIT_NOFILE values.
	NofileLimit() (cur, max uint64, err error)

	// SetNofileLimit sets the soft RLIMIT_NOFILE to n, raising the hard
	// limit along with it when n exceeds it.
	SetNofileLimit(n uint64) error
}

// IsUnsupported reports whether err came from an operation the platform does
// not implement.
func IsUnsupported(err error) bool {
	return errors.Is(err, errors.ErrUnsupported)
}

// RaiseNofileLimit tries to set the open file limit to n. Failure is logged
// as a warning and the process keeps the limit it already has. It returns
// the soft limit in effect afterwards, or 0 if it cannot be determined.
func RaiseNofileLimit(t Tuner, n uint64, log *zap.Logger) uint64 {
	cur, max, err := t.NofileLimit()
	if err != nil {
		log.Warn("failed to get nofile limit", zap.Error(err))
	}

	if n == 0 || n == cur {
		return cur
	}

	if err := t.SetNofileLimit(n); err != nil {
		log.Warn("failed to set nofile limit, continuing with reduced capacity",
			zap.Uint64("nofile", n),
			zap.Uint64("current", cur),
			zap.Uint64("hard", max),
			zap.Error(err))
		return cur
	}

	log.Info("set nofile limit", zap.Uint64("nofile", n))
	return n
}
