package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/panelreplay"
	logAdapter "github.com/bft-labs/panelreplay/internal/adapters/log"
	"github.com/bft-labs/panelreplay/internal/cliconfig"
	"github.com/bft-labs/panelreplay/internal/domain"
	"github.com/bft-labs/panelreplay/internal/ports"
)

const helpDescription = `
Replay a fixed command sequence against an AlarmDecoder ser2sock port to
load-test a panel bridge.

Each command is written in order; optionally the reply is awaited, then the
replay pauses before the next command. With --loop the sequence repeats until
interrupted (Ctrl-C). Every command and every fault is logged with its
description so panel behavior can be matched to the injected commands.

Configuration is read from the config file, then PANELREPLAY_* environment
variables, then flags (highest precedence).
`

var exampleUsage = strings.TrimSpace(`
  panelreplay --address 192.168.3.120
  panelreplay --address 192.168.3.120:10000 --command "4112#701|OPEN RELAY 1" --command "4112#801|CLOSE RELAY 1" --delay 5s
  panelreplay --config $HOME/.panelreplay/config.toml --watch --reconnect
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var commandFlags []string

	log := logAdapter.NewConsoleLogger(os.Stderr, "info")

	root := &cobra.Command{
		Use:     "panelreplay",
		Short:   "Replay panel commands over a ser2sock connection for load testing",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			// Determine config path
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			if cfgPath != "" && !cliconfig.FileExists(cfgPath) {
				return fmt.Errorf("config file %s not found", cfgPath)
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if changed["command"] {
				commands, err := cliconfig.ParseCommands(commandFlags)
				if err != nil {
					return err
				}
				cfg.Commands = commands
			}

			// Defaults and flags; file and env layers are applied on top of a copy
			// so a reload starts from the same base.
			base := cfg
			loadConfig := func() (cliconfig.Config, error) {
				c := base
				c.Commands = append([]cliconfig.CommandConfig(nil), base.Commands...)
				if cfgFile != "" && cliconfig.FileExists(cfgFile) {
					fc, err := cliconfig.LoadFileConfig(cfgFile)
					if err != nil {
						return c, fmt.Errorf("load config: %w", err)
					}
					if err := cliconfig.ApplyFileConfig(&c, fc, changed); err != nil {
						return c, err
					}
				}
				// Environment overrides file config but not explicit flags.
				if err := cliconfig.ApplyEnvConfig(&c, changed); err != nil {
					return c, err
				}
				if err := c.Validate(); err != nil {
					return c, err
				}
				return c, nil
			}

			loaded, err := loadConfig()
			if err != nil {
				return err
			}
			cfg = loaded

			log = logAdapter.NewConsoleLogger(os.Stderr, cfg.LogLevel)
			log.Info().Interface("config", cfg).Msg("configuration")
			logger := logAdapter.NewZerologAdapterWithLogger(log)

			r, err := panelreplay.New(cfg, log)
			if err != nil {
				return err
			}

			// Setup signal handling for graceful shutdown
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					log.Info().Msg("received signal, stopping...")
					cancel()
				case <-ctx.Done():
				}
			}()

			if cfg.Watch {
				if err := startWatcher(ctx, cfgFile, cfg.Address, loadConfig, r, logger); err != nil {
					return err
				}
			}

			if err := r.Run(ctx); err != nil {
				return err
			}
			log.Info().Msg("done")
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.panelreplay/config.toml)")
	root.Flags().StringVar(&cfg.Address, "address", cfg.Address, "target host[:port] of the ser2sock endpoint (port defaults to "+cliconfig.DefaultPort+")")
	root.Flags().StringArrayVar(&commandFlags, "command", nil, `command to send as "payload[|description]" (repeatable; "hex:" prefix for raw bytes)`)

	root.Flags().BoolVar(&cfg.Loop, "loop", cfg.Loop, "repeat the sequence until interrupted")
	root.Flags().BoolVar(&cfg.ExpectResponse, "expect-response", cfg.ExpectResponse, "wait for a reply after each command (unless set per command)")
	root.Flags().DurationVar(&cfg.DefaultDelay, "delay", cfg.DefaultDelay, "pause after each command (unless set per command)")

	root.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "maximum wait for a reply")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "maximum time for a single write (0 disables)")
	root.Flags().DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "connect timeout")
	root.Flags().IntVar(&cfg.ReadBufferSize, "read-buffer", cfg.ReadBufferSize, "maximum reply bytes read per command")

	root.Flags().BoolVar(&cfg.Reconnect, "reconnect", cfg.Reconnect, "reconnect and restart the sequence after a connection fault")
	root.Flags().IntVar(&cfg.MaxReconnects, "max-reconnects", cfg.MaxReconnects, "maximum reconnect attempts (0 = unlimited)")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the config file on change and restart the sequence")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Str("kind", errorKind(err)).Msg("panelreplay")
		os.Exit(1)
	}
}

// startWatcher reloads cfgFile on change and feeds the supervisor.
func startWatcher(ctx context.Context, cfgFile, address string, load func() (cliconfig.Config, error), r *panelreplay.Replayer, logger ports.Logger) error {
	if cfgFile == "" || !cliconfig.FileExists(cfgFile) {
		return fmt.Errorf("--watch requires a config file")
	}

	w := cliconfig.NewWatcher(cfgFile, reloadFunc(address, load, logger), logger, cliconfig.DefaultDebounceDelay)
	r.Watch(w.Updates())

	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Error("config watcher stopped", ports.Err(err))
		}
	}()
	return nil
}

// reloadFunc builds the replay configuration on every reload. The connection
// stays on address; a reloaded address only takes effect after a restart.
func reloadFunc(address string, load func() (cliconfig.Config, error), logger ports.Logger) cliconfig.LoadFunc {
	return func() (domain.ReplayConfig, error) {
		c, err := load()
		if err != nil {
			return domain.ReplayConfig{}, err
		}
		if c.Address != address {
			logger.Warn("address change ignored until restart",
				ports.String("address", address),
				ports.String("reloaded_address", c.Address),
			)
		}
		return c.ReplayConfig()
	}
}

// errorKind names the failure class for the exit log line.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrConnection):
		return "connection"
	case errors.Is(err, domain.ErrWriteFailed), errors.Is(err, domain.ErrReadFailed):
		return "transport"
	case errors.Is(err, domain.ErrInvalidConfig):
		return "config"
	default:
		return "error"
	}
}
