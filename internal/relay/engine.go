package relay

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/relay/internal/dialer"
	"github.com/die-net/relay/internal/endpoint"
	"github.com/die-net/relay/internal/transport"
)

// Engine runs relay sessions. It is safe for concurrent use.
type Engine struct {
	dialer *dialer.Dialer
	copier *copier
	log    *zap.Logger
}

func NewEngine(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	d := cfg.Dialer
	if d == nil {
		d = dialer.New(dialer.Config{})
	}
	return &Engine{
		dialer: d,
		copier: newCopier(cfg.PipeCap, cfg.BufferSize),
		log:    log,
	}
}

// ConnectAndRelay dials remote under opts and relays local to it until the
// session ends. It always closes local. Failures are logged at debug level
// and never returned.
//
// ctx bounds dialing and handshaking only; once bytes flow, the session runs
// until one of the streams ends.
func (e *Engine) ConnectAndRelay(ctx context.Context, local net.Conn, remote endpoint.RemoteAddr, opts *endpoint.ConnectOpts) {
	defer local.Close()

	activeConnections.Inc()
	defer activeConnections.Dec()

	if err := e.relay(ctx, local, remote, opts); err != nil {
		e.log.Debug("forward error, ignored",
			zap.Stringer("local", local.RemoteAddr()),
			zap.Stringer("remote", remote),
			zap.Error(err))
	}
}

func (e *Engine) relay(ctx context.Context, local net.Conn, remote endpoint.RemoteAddr, opts *endpoint.ConnectOpts) error {
	rc, err := e.dialer.DialRemote(ctx, remote, opts)
	if err != nil {
		errorsTotal.WithLabelValues(stageDial).Inc()
		return err
	}
	defer rc.Close()

	e.log.Info("connection established",
		zap.Stringer("local", local.RemoteAddr()),
		zap.Stringer("remote", remote),
		zap.Stringer("peer", rc.RemoteAddr()))

	left, right := local, rc
	if opts.Transport != nil {
		left, right, err = handshake(ctx, local, rc, opts.Transport, opts.Net.HandshakeTimeout)
		if err != nil {
			errorsTotal.WithLabelValues(stageHandshake).Inc()
			return err
		}
	}

	up, down, err := e.copier.CopyBidirectional(context.WithoutCancel(ctx), left, right)
	bytesTotal.WithLabelValues("up").Add(float64(up))
	bytesTotal.WithLabelValues("down").Add(float64(down))
	if err != nil {
		errorsTotal.WithLabelValues(stageCopy).Inc()
		return fmt.Errorf("relay: %w", err)
	}
	return nil
}

// aLongTimeAgo is a deadline that aborts blocked I/O immediately.
var aLongTimeAgo = time.Unix(1, 0)

// handshake runs the listen-side and remote-side handshakes concurrently. A
// failure on either side aborts the other. On success the deadlines set for
// the handshake are cleared.
func handshake(ctx context.Context, local, remote net.Conn, pair *transport.Pair, timeout time.Duration) (net.Conn, net.Conn, error) {
	if timeout > 0 {
		dl := time.Now().Add(timeout)
		_ = local.SetDeadline(dl)
		_ = remote.SetDeadline(dl)
	}

	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Not every layer honors ctx, so cancellation also expires the deadlines.
	stop := context.AfterFunc(hctx, func() {
		_ = local.SetDeadline(aLongTimeAgo)
		_ = remote.SetDeadline(aLongTimeAgo)
	})

	var (
		g           errgroup.Group
		left, right net.Conn
		acceptErr   error
		connectErr  error
	)
	g.Go(func() error {
		left, acceptErr = pair.Acceptor.Accept(hctx, local)
		if acceptErr != nil {
			cancel()
		}
		return nil
	})
	g.Go(func() error {
		right, connectErr = pair.Connector.Connect(hctx, remote)
		if connectErr != nil {
			cancel()
		}
		return nil
	})
	_ = g.Wait()

	if err := multierr.Combine(acceptErr, connectErr); err != nil {
		return nil, nil, fmt.Errorf("handshake: %w", err)
	}
	if !stop() {
		return nil, nil, fmt.Errorf("handshake: %w", context.Cause(hctx))
	}

	_ = local.SetDeadline(time.Time{})
	_ = remote.SetDeadline(time.Time{})
	return left, right, nil
}
