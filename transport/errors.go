package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
)

var (
	// ErrAcceptTimeout indicates no connection arrived within the accept wait.
	ErrAcceptTimeout = errors.New("accept timed out")

	// ErrListenerClosed indicates the listener has been closed.
	ErrListenerClosed = errors.New("listener closed")
)

// NetError represents a network error with additional context.
type NetError struct {
	Op   string // operation that caused the error
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *NetError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("swft %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("swft %s: %v", e.Op, e.Err)
}

func (e *NetError) Unwrap() error {
	return e.Err
}

// newNetError creates a new NetError
func newNetError(op, addr string, err error) *NetError {
	return &NetError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, ErrAcceptTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
