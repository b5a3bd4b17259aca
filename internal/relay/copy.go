package relay

import (
	"context"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

type copier struct {
	pipeCap int
	pool    *bufferPool
}

func newCopier(pipeCap, bufferSize int) *copier {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &copier{pipeCap: pipeCap, pool: newBufferPool(bufferSize)}
}

// CopyBidirectional relays between left and right until both directions
// reach EOF or either fails. EOF in one direction half-closes the other
// side's write end; an error closes both. Both conns are closed on return.
// up counts bytes from left to right, down from right to left.
func (cp *copier) CopyBidirectional(ctx context.Context, left, right net.Conn) (up, down int64, err error) {
	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	// A failed direction or a canceled ctx unblocks the other one.
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	g.Go(func() error {
		var err error
		up, err = cp.copyHalf(right, left)
		return err
	})

	g.Go(func() error {
		var err error
		down, err = cp.copyHalf(left, right)
		return err
	})

	err = g.Wait()
	return up, down, err
}

// copyHalf moves src to dst and half-closes dst on EOF.
func (cp *copier) copyHalf(dst, src net.Conn) (int64, error) {
	var (
		n   int64
		err error
	)
	if cp.pipeCap > 0 {
		var handled bool
		n, handled, err = spliceCopy(dst, src, cp.pipeCap)
		if !handled {
			n, err = cp.bufferedCopy(dst, src)
		}
	} else {
		n, err = cp.bufferedCopy(dst, src)
	}
	if err != nil {
		return n, err
	}

	closeWrite(dst)
	return n, nil
}

func (cp *copier) bufferedCopy(dst io.Writer, src io.Reader) (int64, error) {
	buf := cp.pool.Get()
	defer cp.pool.Put(buf)

	return io.CopyBuffer(dst, src, *buf)
}

func closeWrite(c net.Conn) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
}
