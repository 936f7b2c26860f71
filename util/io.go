package util

import (
	"errors"
	"io"
	"net"
	"os"
)

// DefaultBufSize is the size of a single socket read (4 KiB).  It is
// comfortably larger than a full ICB packet so one read usually holds
// several of them.
const DefaultBufSize = 4 * 1024

// IsClosed reports whether err is the expected result of reading from
// or writing to a connection that has been closed, locally or by the
// peer.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
