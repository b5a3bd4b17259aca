package relay

import (
	"go.uber.org/zap"

	"github.com/die-net/relay/internal/dialer"
)

const defaultBufferSize = 32 * 1024

type Config struct {
	Dialer *dialer.Dialer

	// PipeCap enables the splice(2) copy path with pipes of this many
	// bytes. Zero disables it. The value is fixed when the Engine is
	// created.
	PipeCap int

	// BufferSize is the buffer used by the userspace copy path.
	BufferSize int

	Log *zap.Logger
}
