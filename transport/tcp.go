package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swiftshare/limits"
)

const (
	// DefaultIOTimeout bounds every read and write on a transfer connection.
	DefaultIOTimeout = 30 * time.Second

	// DefaultDialTimeout bounds connection establishment.
	DefaultDialTimeout = 10 * time.Second

	// DefaultAcceptWait is how long one accept poll waits for a connection.
	DefaultAcceptWait = 50 * time.Millisecond
)

// ConnOptions controls socket tuning and I/O deadlines.
type ConnOptions struct {
	BufferSize int
	NoDelay    bool
	IOTimeout  time.Duration
}

// DefaultConnOptions returns 4 MiB buffers, TCP_NODELAY and a 30 second I/O timeout.
func DefaultConnOptions() ConnOptions {
	return ConnOptions{
		BufferSize: limits.SocketBufferSize,
		NoDelay:    true,
		IOTimeout:  DefaultIOTimeout,
	}
}

// Listener accepts transfer connections on a TCP port.
type Listener struct {
	ln   *net.TCPListener
	opts ConnOptions
}

// Listen binds all interfaces on port. Port 0 picks a free port.
func Listen(port uint16, opts ConnOptions) (*Listener, error) {
	return ListenAddr(net.JoinHostPort("", strconv.Itoa(int(port))), opts)
}

// ListenAddr binds the given host:port.
func ListenAddr(addr string, opts ConnOptions) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, newNetError("resolve", addr, err)
	}

	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ListenAddr",
			"addr":     addr,
			"error":    err.Error(),
		}).Error("Failed to bind listener")
		return nil, newNetError("listen", addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "ListenAddr",
		"addr":     ln.Addr().String(),
	}).Info("Listening for transfers")

	return &Listener{ln: ln, opts: opts}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port returns the bound port.
func (l *Listener) Port() uint16 {
	return uint16(l.ln.Addr().(*net.TCPAddr).Port)
}

// AcceptTimeout waits up to wait for one connection. It returns
// ErrAcceptTimeout when none arrived and ErrListenerClosed after Close.
func (l *Listener) AcceptTimeout(wait time.Duration) (*Conn, error) {
	if err := l.ln.SetDeadline(time.Now().Add(wait)); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, newNetError("accept", l.ln.Addr().String(), err)
	}

	tc, err := l.ln.AcceptTCP()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		if IsTimeout(err) {
			return nil, ErrAcceptTimeout
		}
		return nil, newNetError("accept", l.ln.Addr().String(), err)
	}

	return Wrap(tc, l.opts), nil
}

// Close stops the listener.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Dial connects to ip:port within timeout.
func Dial(ctx context.Context, ip string, port uint16, timeout time.Duration, opts ConnOptions) (*Conn, error) {
	addr := net.JoinHostPort(ip, strconv.Itoa(int(port)))
	dialer := net.Dialer{Timeout: timeout}

	c, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Dial",
			"addr":     addr,
			"error":    err.Error(),
		}).Warn("Failed to connect")
		return nil, newNetError("dial", addr, err)
	}

	return Wrap(c.(*net.TCPConn), opts), nil
}

// Conn is a tuned TCP connection whose reads and writes each get a fresh deadline.
type Conn struct {
	*net.TCPConn
	timeout time.Duration
}

// Wrap tunes tc and wraps it. Tuning failures are logged and ignored.
func Wrap(tc *net.TCPConn, opts ConnOptions) *Conn {
	tune(tc, opts)
	return &Conn{TCPConn: tc, timeout: opts.IOTimeout}
}

func tune(tc *net.TCPConn, opts ConnOptions) {
	var errs []error
	if opts.NoDelay {
		errs = append(errs, tc.SetNoDelay(true))
	}
	if opts.BufferSize > 0 {
		errs = append(errs, tc.SetReadBuffer(opts.BufferSize), tc.SetWriteBuffer(opts.BufferSize))
	}
	if err := errors.Join(errs...); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "tune",
			"remote_addr": tc.RemoteAddr().String(),
			"error":       err.Error(),
		}).Debug("Socket tuning incomplete")
	}
}

// SetIOTimeout changes the deadline applied to subsequent reads and writes.
// Zero disables deadlines.
func (c *Conn) SetIOTimeout(d time.Duration) {
	c.timeout = d
}

// IOTimeout returns the current per-operation timeout.
func (c *Conn) IOTimeout() time.Duration {
	return c.timeout
}

// Read reads with a fresh read deadline.
func (c *Conn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.TCPConn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.TCPConn.Read(p)
}

// Write writes all of p with a fresh write deadline.
func (c *Conn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.TCPConn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.TCPConn.Write(p)
}
