package app

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/panelreplay/internal/domain"
	"github.com/bft-labs/panelreplay/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// warnRecorder keeps the error field of every warning.
type warnRecorder struct {
	mockLogger
	mu   sync.Mutex
	errs []error
}

func (r *warnRecorder) Warn(msg string, fields ...ports.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			r.errs = append(r.errs, err)
		}
	}
}

func (r *warnRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// fakeConn records writes and serves scripted responses while honoring read deadlines.
type fakeConn struct {
	mu           sync.Mutex
	writes       [][]byte
	attempts     int
	failAt       int // write attempt (0-based) that fails; -1 for none
	readErr      error
	readDeadline time.Time
	kick         chan struct{}
	closed       bool
	closeCount   int

	responses  chan []byte
	afterWrite func(count int)
	written    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		failAt:    -1,
		kick:      make(chan struct{}),
		responses: make(chan []byte, 16),
		written:   make(chan struct{}, 64),
	}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, net.ErrClosed
	}
	attempt := c.attempts
	c.attempts++
	if attempt == c.failAt {
		c.mu.Unlock()
		return 0, errors.New("broken pipe")
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	count := len(c.writes)
	hook := c.afterWrite
	c.mu.Unlock()

	select {
	case c.written <- struct{}{}:
	default:
	}
	if hook != nil {
		hook(count)
	}
	return len(p), nil
}

func (c *fakeConn) Read(p []byte) (int, error) {
	for {
		c.mu.Lock()
		closed, readErr := c.closed, c.readErr
		deadline, kick := c.readDeadline, c.kick
		c.mu.Unlock()

		if closed {
			return 0, net.ErrClosed
		}
		if readErr != nil {
			return 0, readErr
		}

		var timer *time.Timer
		var timeout <-chan time.Time
		if !deadline.IsZero() {
			d := time.Until(deadline)
			if d <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer = time.NewTimer(d)
			timeout = timer.C
		}

		select {
		case data := <-c.responses:
			if timer != nil {
				timer.Stop()
			}
			return copy(p, data), nil
		case <-timeout:
			return 0, os.ErrDeadlineExceeded
		case <-kick:
			if timer != nil {
				timer.Stop()
			}
		}
	}
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readDeadline = t
	close(c.kick)
	c.kick = make(chan struct{})
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCount++
	return nil
}

func (c *fakeConn) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

func (c *fakeConn) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *fakeConn) waitWrite(timeout time.Duration) bool {
	select {
	case <-c.written:
		return true
	case <-time.After(timeout):
		return false
	}
}

// fakeDialer hands out scripted connections, one per Dial call.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	errs  []error
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, address string) (ports.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.dials
	d.dials++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.conns) {
		return d.conns[i], nil
	}
	return nil, errors.New("connection refused")
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recordingHandler tracks driver events for testing.
type recordingHandler struct {
	mu        sync.Mutex
	sent      []int
	responses []string
	states    []domain.SessionState
}

func (h *recordingHandler) OnCommandSent(index int, entry domain.CommandEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, index)
}

func (h *recordingHandler) OnResponse(index int, response []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, string(response))
}

func (h *recordingHandler) OnStateChange(previous, current domain.SessionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, current)
}

func entries(delay time.Duration, payloads ...string) []domain.CommandEntry {
	out := make([]domain.CommandEntry, len(payloads))
	for i, p := range payloads {
		out[i] = domain.NewCommandEntry([]byte(p), "command "+p, false, delay)
	}
	return out
}

func connect(t *testing.T, conn *fakeConn, opts ...Option) (*Driver, *Session) {
	t.Helper()
	d := NewDriver(&fakeDialer{conns: []*fakeConn{conn}}, append([]Option{WithLogger(mockLogger{})}, opts...)...)
	s, err := d.Connect(context.Background(), "panel:10000")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return d, s
}
