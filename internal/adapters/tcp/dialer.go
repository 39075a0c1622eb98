// Package tcp implements ports.Dialer over TCP.
package tcp

import (
	"context"
	"net"
	"time"

	"github.com/bft-labs/panelreplay/internal/ports"
)

// Default dial settings.
const (
	DefaultDialTimeout = 10 * time.Second
	DefaultKeepAlive   = 30 * time.Second
)

// Dialer opens TCP connections with a bounded connect time.
type Dialer struct {
	dialer net.Dialer
}

// NewDialer creates a Dialer. A non-positive timeout uses DefaultDialTimeout.
func NewDialer(timeout time.Duration) *Dialer {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return &Dialer{
		dialer: net.Dialer{
			Timeout:   timeout,
			KeepAlive: DefaultKeepAlive,
		},
	}
}

// Dial connects to address. It makes exactly one attempt.
func (d *Dialer) Dial(ctx context.Context, address string) (ports.Conn, error) {
	conn, err := d.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		// Commands are tiny; send each one as soon as it is written.
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}
