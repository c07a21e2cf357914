package rtsp

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listen binds a non-blocking TCP listener on port with SO_REUSEADDR set,
// so the server can restart promptly after a crash without waiting out
// TIME_WAIT -- grounded on the teacher's internal/v4l2/device.go, which
// reaches for golang.org/x/sys/unix raw syscalls (there, ioctl; here,
// setsockopt) rather than anything higher-level.
//
// The standard library's net.ListenConfig does not expose a listen(2)
// backlog parameter, so the backlog is left at the runtime's default
// rather than the literal value 5; SO_REUSEADDR is the behavior that
// actually matters for restart responsiveness; and once accepted, the
// server only ever reads one client's socket at a time per tick
// regardless of how many connections the kernel has queued.
func listen(port int) (*net.TCPListener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	addr := net.JoinHostPort("", itoa(port))
	ln, err := lc.Listen(context.Background(), "tcp4", addr)
	if err != nil {
		return nil, err
	}
	return ln.(*net.TCPListener), nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
