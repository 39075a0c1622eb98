// Package panelreplay replays a fixed command sequence against a panel
// bridge (an AlarmDecoder ser2sock port) for load testing.
//
// Example usage:
//
//	cfg := panelreplay.DefaultConfig()
//	cfg.Address = "192.168.3.120:10000"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := panelreplay.Run(ctx, cfg, zerolog.New(os.Stderr)); err != nil {
//	    log.Fatal(err)
//	}
package panelreplay

import (
	"context"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/panelreplay/internal/adapters/log"
	"github.com/bft-labs/panelreplay/internal/adapters/tcp"
	"github.com/bft-labs/panelreplay/internal/app"
	"github.com/bft-labs/panelreplay/internal/cliconfig"
	"github.com/bft-labs/panelreplay/internal/domain"
)

// Config holds the replay configuration.
// Use DefaultConfig() to get a Config with the relay load test preloaded.
type Config = cliconfig.Config

// CommandConfig is one configured command.
type CommandConfig = cliconfig.CommandConfig

// ReplayConfig is the validated, immutable form of a Config's sequence.
type ReplayConfig = domain.ReplayConfig

// Errors returned by Run, for use with errors.Is.
var (
	ErrConnection    = domain.ErrConnection
	ErrWriteFailed   = domain.ErrWriteFailed
	ErrReadFailed    = domain.ErrReadFailed
	ErrInvalidConfig = domain.ErrInvalidConfig
)

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set Address before calling Run.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Replayer connects to the target and replays the configured sequence.
type Replayer struct {
	sup *app.Supervisor
}

// New validates cfg and creates a Replayer logging to logger.
func New(cfg Config, logger zerolog.Logger) (*Replayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	replay, err := cfg.ReplayConfig()
	if err != nil {
		return nil, err
	}

	adapter := logAdapter.NewZerologAdapterWithLogger(logger)
	driver := app.NewDriver(tcp.NewDialer(cfg.DialTimeout), app.WithLogger(adapter))
	sup := app.NewSupervisor(driver, app.SupervisorConfig{
		Address:        cfg.Address,
		Reconnect:      cfg.Reconnect,
		MaxReconnects:  cfg.MaxReconnects,
		BackoffInitial: app.DefaultBackoffInitial,
		BackoffMax:     app.DefaultBackoffMax,
	}, replay, adapter)

	return &Replayer{sup: sup}, nil
}

// Watch restarts the sequence from its first entry with every configuration
// received on updates. Call it before Run.
func (r *Replayer) Watch(updates <-chan ReplayConfig) {
	r.sup.Watch(updates)
}

// Run blocks until the sequence completes (Loop false), the context is
// cancelled, or an unrecoverable error occurs. Cancellation returns nil.
func (r *Replayer) Run(ctx context.Context) error {
	return r.sup.Run(ctx)
}

// Run creates a Replayer for cfg and runs it.
func Run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	r, err := New(cfg, logger)
	if err != nil {
		return err
	}
	return r.Run(ctx)
}
