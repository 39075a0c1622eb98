package ports

import (
	"context"
	"io"
	"time"
)

// Conn is a stream connection to a test target.
// *net.TCPConn and every net.Conn satisfy this interface.
type Conn interface {
	io.ReadWriteCloser

	// SetReadDeadline bounds the next Read. A zero time disables the deadline.
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline bounds the next Write. A zero time disables the deadline.
	SetWriteDeadline(t time.Time) error
}

// Dialer opens connections to a test target.
type Dialer interface {
	// Dial connects to address (host:port). It makes exactly one attempt.
	Dial(ctx context.Context, address string) (Conn, error)
}
