package app

import (
	"context"
	"errors"
	"time"

	"github.com/bft-labs/panelreplay/internal/domain"
	"github.com/bft-labs/panelreplay/internal/ports"
)

// SupervisorConfig controls reconnect behavior around the driver.
type SupervisorConfig struct {
	// Address is the target host:port.
	Address string

	// Reconnect re-dials after a connection or transport fault and restarts
	// the sequence from its first entry. Without it the first fault is returned.
	Reconnect bool

	// MaxReconnects bounds the number of reconnect attempts. Zero is unlimited.
	MaxReconnects int

	// BackoffInitial and BackoffMax bound the wait between attempts.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Supervisor runs the replay loop for a whole process: connect, replay,
// shut down, and optionally reconnect or pick up a reloaded sequence.
type Supervisor struct {
	driver  *Driver
	cfg     SupervisorConfig
	replay  domain.ReplayConfig
	updates <-chan domain.ReplayConfig
	logger  ports.Logger
}

// NewSupervisor creates a Supervisor replaying replay through driver.
func NewSupervisor(driver *Driver, cfg SupervisorConfig, replay domain.ReplayConfig, logger ports.Logger) *Supervisor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Supervisor{
		driver: driver,
		cfg:    cfg,
		replay: replay,
		logger: logger,
	}
}

// Watch makes the supervisor restart from the first entry with every
// configuration received on updates.
func (s *Supervisor) Watch(updates <-chan domain.ReplayConfig) {
	s.updates = updates
}

// Run blocks until the sequence completes, ctx is canceled, or an
// unrecoverable error occurs. Cancellation is a clean exit and returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	bo := newBackoff(s.cfg.BackoffInitial, s.cfg.BackoffMax)
	attempts := 0
	replay := s.replay

	for {
		if next, ok := s.latestUpdate(); ok {
			replay = next
		}

		session, err := s.driver.Connect(ctx, s.cfg.Address)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !s.retry(ctx, &attempts, bo, err) {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			continue
		}
		bo.Reset()

		next, reloaded, err := s.runOnce(ctx, session, replay)
		if shutdownErr := s.driver.Shutdown(session); shutdownErr != nil {
			s.logger.Warn("shutdown error", ports.Err(shutdownErr))
		}

		switch {
		case reloaded:
			s.logger.Info("sequence reloaded, restarting",
				ports.Int("commands", len(next.Sequence)),
				ports.Bool("loop", next.Loop),
			)
			replay = next
		case ctx.Err() != nil:
			s.logger.Info("replay stopped")
			return nil
		case err == nil:
			return nil
		case isFatal(err):
			if !s.retry(ctx, &attempts, bo, err) {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		default:
			return err
		}
	}
}

// runOnce runs one sequence on session. It stops early and reports
// reloaded=true when a new configuration arrives.
func (s *Supervisor) runOnce(ctx context.Context, session *Session, replay domain.ReplayConfig) (domain.ReplayConfig, bool, error) {
	if s.updates == nil {
		return replay, false, s.driver.RunSequence(ctx, session, replay)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.driver.RunSequence(runCtx, session, replay)
	}()

	updates := s.updates
	for {
		select {
		case err := <-done:
			return replay, false, err
		case next, ok := <-updates:
			if !ok {
				// Watcher stopped; keep replaying the current sequence.
				updates = nil
				s.updates = nil
				continue
			}
			cancel()
			<-done
			if err := ctx.Err(); err != nil {
				return replay, false, err
			}
			return next, true, nil
		}
	}
}

// latestUpdate drains pending updates and returns the most recent one.
func (s *Supervisor) latestUpdate() (domain.ReplayConfig, bool) {
	var (
		latest domain.ReplayConfig
		found  bool
	)
	for s.updates != nil {
		select {
		case next, ok := <-s.updates:
			if !ok {
				s.updates = nil
				return latest, found
			}
			latest, found = next, true
		default:
			return latest, found
		}
	}
	return latest, found
}

// retry waits before the next attempt. It returns false when reconnecting
// is disabled, the attempt budget is spent, or ctx is canceled.
func (s *Supervisor) retry(ctx context.Context, attempts *int, bo *backoff, cause error) bool {
	if !s.cfg.Reconnect {
		return false
	}
	if s.cfg.MaxReconnects > 0 && *attempts >= s.cfg.MaxReconnects {
		s.logger.Error("giving up",
			ports.Int("attempts", *attempts),
			ports.Err(cause),
		)
		return false
	}
	*attempts++

	s.logger.Warn("reconnecting",
		ports.String("address", s.cfg.Address),
		ports.Int("attempt", *attempts),
		ports.Duration("backoff", bo.Current()),
		ports.Err(cause),
	)
	return bo.Sleep(ctx) == nil
}

// isFatal reports whether err is a transport fault that broke the session.
func isFatal(err error) bool {
	var terr *domain.TransportError
	return errors.As(err, &terr) && terr.Fatal()
}
