//go:build linux

package relay

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

const spliceFlags = unix.SPLICE_F_MOVE | unix.SPLICE_F_NONBLOCK

// spliceCopy moves src to dst through a pipe of pipeCap bytes without
// copying into userspace. handled is false when either side is not a plain
// TCP socket or splicing is unavailable before any byte moved; the caller
// then falls back to a buffered copy.
func spliceCopy(dst, src net.Conn, pipeCap int) (written int64, handled bool, err error) {
	stc, ok := src.(*net.TCPConn)
	if !ok {
		return 0, false, nil
	}
	dtc, ok := dst.(*net.TCPConn)
	if !ok {
		return 0, false, nil
	}

	rc, err := stc.SyscallConn()
	if err != nil {
		return 0, false, nil
	}
	wc, err := dtc.SyscallConn()
	if err != nil {
		return 0, false, nil
	}

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return 0, false, nil
	}
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	// Keeps the kernel default size when pipeCap exceeds fs.pipe-max-size
	// for an unprivileged process.
	_, _ = unix.FcntlInt(uintptr(p[1]), unix.F_SETPIPE_SZ, pipeCap)

	for {
		n, err := spliceIn(rc, p[1], pipeCap)
		if err != nil {
			if written == 0 && (errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS)) {
				return 0, false, nil
			}
			return written, true, err
		}
		if n == 0 {
			return written, true, nil
		}

		for n > 0 {
			m, err := spliceOut(wc, p[0], n)
			written += int64(m)
			if err != nil {
				return written, true, err
			}
			n -= m
		}
	}
}

// spliceIn moves up to size bytes from the socket into the pipe. Zero with
// a nil error is EOF.
func spliceIn(rc syscall.RawConn, pipeW, size int) (int, error) {
	var (
		n    int64
		serr error
	)
	err := rc.Read(func(fd uintptr) bool {
		for {
			n, serr = unix.Splice(int(fd), nil, pipeW, nil, size, spliceFlags)
			if serr != unix.EINTR {
				break
			}
		}
		return serr != unix.EAGAIN
	})
	if err != nil {
		return 0, err
	}
	return int(n), serr
}

// spliceOut moves up to n buffered bytes from the pipe into the socket.
func spliceOut(wc syscall.RawConn, pipeR, n int) (int, error) {
	var (
		m    int64
		serr error
	)
	err := wc.Write(func(fd uintptr) bool {
		for {
			m, serr = unix.Splice(pipeR, nil, int(fd), nil, n, spliceFlags)
			if serr != unix.EINTR {
				break
			}
		}
		return serr != unix.EAGAIN
	})
	if err != nil {
		return 0, err
	}
	if serr != nil {
		return 0, serr
	}
	return int(m), nil
}
