package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bft-labs/panelreplay/internal/domain"
	"github.com/bft-labs/panelreplay/internal/ports"
)

// Driver replays command sequences over sessions it opens with a Dialer.
type Driver struct {
	dialer ports.Dialer
	logger ports.Logger
	events ports.EventHandler
}

// Option configures optional behavior of a Driver.
type Option func(*Driver)

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger ports.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithEventHandler sets an observer for transmissions and state changes.
func WithEventHandler(handler ports.EventHandler) Option {
	return func(d *Driver) {
		d.events = handler
	}
}

// NewDriver creates a Driver that connects through dialer.
func NewDriver(dialer ports.Dialer, opts ...Option) *Driver {
	d := &Driver{
		dialer: dialer,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect opens a session to address. It makes exactly one attempt;
// failures are returned as *domain.ConnectionError.
func (d *Driver) Connect(ctx context.Context, address string) (*Session, error) {
	if address == "" {
		return nil, &domain.ConnectionError{Address: address, Err: domain.ErrInvalidConfig}
	}

	conn, err := d.dialer.Dial(ctx, address)
	if err != nil {
		d.logger.Error("connect failed", ports.String("address", address), ports.Err(err))
		return nil, &domain.ConnectionError{Address: address, Err: err}
	}

	d.logger.Info("connected", ports.String("address", address))
	return newSession(address, conn, d.logger, d.events), nil
}

// RunSequence transmits cfg.Sequence over session in order, one entry at a time.
//
// It returns nil after one pass when cfg.Loop is false, ctx.Err() when the
// context is canceled, and a *domain.TransportError when a write (or a
// response read other than a timeout) fails. Read timeouts are logged and
// the run continues. Only one RunSequence may run per session at a time.
func (d *Driver) RunSequence(ctx context.Context, session *Session, cfg domain.ReplayConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !session.acquire() {
		return domain.ErrSessionBusy
	}
	defer session.release()

	if session.State() != domain.SessionConnected {
		return domain.ErrSessionClosed
	}

	// Unblock a pending read or write as soon as the run is canceled.
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		past := time.Unix(1, 0)
		_ = session.conn.SetReadDeadline(past)
		_ = session.conn.SetWriteDeadline(past)
	})
	defer func() {
		if stop() {
			return
		}
		// The hook ran; clear its deadlines so the session stays usable.
		<-fired
		_ = session.conn.SetReadDeadline(time.Time{})
		_ = session.conn.SetWriteDeadline(time.Time{})
	}()

	r := &run{
		driver:  d,
		session: session,
		cfg:     cfg,
		buf:     make([]byte, cfg.BufferSize()),
	}

	for pass := 0; ; pass++ {
		for i, entry := range cfg.Sequence {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.send(ctx, i, entry); err != nil {
				return err
			}
			if entry.ExpectResponse {
				if err := r.awaitResponse(ctx, i, entry); err != nil {
					return err
				}
			}
			if err := sleepContext(ctx, entry.PostDelay); err != nil {
				return err
			}
		}

		if !cfg.Loop {
			d.logger.Info("sequence complete", ports.Int("commands", len(cfg.Sequence)))
			return nil
		}
		d.logger.Debug("sequence pass complete", ports.Int("pass", pass+1))
	}
}

// Shutdown closes the session. It is idempotent and safe after a fault.
func (d *Driver) Shutdown(session *Session) error {
	if session == nil {
		return nil
	}
	if err := session.close(); err != nil {
		d.logger.Warn("close failed", ports.String("address", session.address), ports.Err(err))
		return fmt.Errorf("close %s: %w", session.address, err)
	}
	return nil
}

// run holds the per-call state of RunSequence.
type run struct {
	driver  *Driver
	session *Session
	cfg     domain.ReplayConfig
	buf     []byte
}

func (r *run) send(ctx context.Context, index int, entry domain.CommandEntry) error {
	log := r.driver.logger
	log.Info("sending",
		ports.Int("index", index),
		ports.String("payload", string(entry.Payload)),
		ports.String("description", entry.Description),
	)

	conn := r.session.conn
	if r.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	n, err := conn.Write(entry.Payload)
	if err == nil && n < len(entry.Payload) {
		err = io.ErrShortWrite
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		terr := &domain.TransportError{Kind: domain.WriteFailed, Index: index, Description: entry.Label(), Err: err}
		r.session.fault(terr.Error())
		log.Error("write failed",
			ports.Int("index", index),
			ports.String("description", entry.Description),
			ports.Int("written", n),
			ports.Err(err),
		)
		return terr
	}

	if r.driver.events != nil {
		r.driver.events.OnCommandSent(index, entry)
	}
	return nil
}

func (r *run) awaitResponse(ctx context.Context, index int, entry domain.CommandEntry) error {
	log := r.driver.logger
	conn := r.session.conn

	if err := conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout)); err != nil {
		return r.readFailed(index, entry, err)
	}
	// A cancellation that fired before the deadline above was set would be overwritten by it.
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := conn.Read(r.buf)
	if n > 0 {
		resp := r.buf[:n]
		log.Debug("response",
			ports.Int("index", index),
			ports.Int("bytes", n),
			ports.String("data", string(resp)),
		)
		if r.driver.events != nil {
			r.driver.events.OnResponse(index, resp)
		}
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isTimeout(err) {
		terr := &domain.TransportError{Kind: domain.ReadTimeout, Index: index, Description: entry.Label(), Err: err}
		log.Warn("no response",
			ports.Int("index", index),
			ports.String("description", entry.Description),
			ports.Duration("timeout", r.cfg.ReadTimeout),
			ports.Err(terr),
		)
		return nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return r.readFailed(index, entry, err)
}

func (r *run) readFailed(index int, entry domain.CommandEntry, err error) error {
	terr := &domain.TransportError{Kind: domain.ReadFailed, Index: index, Description: entry.Label(), Err: err}
	r.session.fault(terr.Error())
	r.driver.logger.Error("read failed",
		ports.Int("index", index),
		ports.String("description", entry.Description),
		ports.Err(err),
	)
	return terr
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// noopLogger discards all log messages.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}
