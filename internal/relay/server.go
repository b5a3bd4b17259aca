package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/die-net/relay/internal/endpoint"
)

const maxAcceptDelay = time.Second

// Server accepts connections for one endpoint.
type Server struct {
	ctx    context.Context
	ep     *endpoint.Endpoint
	engine *Engine
	log    *zap.Logger
}

func NewServer(ctx context.Context, engine *Engine, ep *endpoint.Endpoint) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Server{ctx: ctx, ep: ep, engine: engine, log: engine.log.With(zap.Stringer("endpoint", ep))}
}

// Serve accepts connections on ln until it is closed, relaying each one on
// its own goroutine. In-flight sessions are left running when Serve returns.
func (s *Server) Serve(ln net.Listener) error {
	accepted := connectionsTotal.WithLabelValues(s.ep.Local.String())

	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if !isTemporary(err) {
				return fmt.Errorf("accept: %w", err)
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.log.Warn("accept error, retrying", zap.Duration("delay", delay), zap.Error(err))
			time.Sleep(delay)
			continue
		}
		delay = 0

		accepted.Inc()
		go s.engine.ConnectAndRelay(s.ctx, c, s.ep.Remote, &s.ep.Opts)
	}
}

// isTemporary reports accept errors that clear up on their own, such as
// running into the open file limit.
func isTemporary(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, syscall.ENOMEM) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNRESET)
}
