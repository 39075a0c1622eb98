package cliconfig

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds the PANELREPLAY_* environment variables.
// Values stay strings so an unset variable can be told apart from a zero value.
type EnvConfig struct {
	Address        string   `env:"PANELREPLAY_ADDRESS"`
	Loop           string   `env:"PANELREPLAY_LOOP"`
	ExpectResponse string   `env:"PANELREPLAY_EXPECT_RESPONSE"`
	DefaultDelay   string   `env:"PANELREPLAY_DELAY"`
	ReadTimeout    string   `env:"PANELREPLAY_READ_TIMEOUT"`
	WriteTimeout   string   `env:"PANELREPLAY_WRITE_TIMEOUT"`
	DialTimeout    string   `env:"PANELREPLAY_DIAL_TIMEOUT"`
	ReadBufferSize string   `env:"PANELREPLAY_READ_BUFFER"`
	Reconnect      string   `env:"PANELREPLAY_RECONNECT"`
	MaxReconnects  string   `env:"PANELREPLAY_MAX_RECONNECTS"`
	LogLevel       string   `env:"PANELREPLAY_LOG_LEVEL"`
	Watch          string   `env:"PANELREPLAY_WATCH"`
	Commands       []string `env:"PANELREPLAY_COMMANDS" envSeparator:";"`
}

// ParseEnv loads EnvConfig from the process environment.
func ParseEnv() (EnvConfig, error) {
	var ec EnvConfig
	if err := env.Parse(&ec); err != nil {
		return ec, fmt.Errorf("parse env: %w", err)
	}
	return ec, nil
}

// ApplyEnvConfig applies configuration from environment variables (PANELREPLAY_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	ec, err := ParseEnv()
	if err != nil {
		return err
	}

	s := newConfigSetter(changed)

	s.setString("address", ec.Address, &cfg.Address)
	s.setString("log-level", ec.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("delay", ec.DefaultDelay, &cfg.DefaultDelay); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", ec.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", ec.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", ec.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("read-buffer", ec.ReadBufferSize, &cfg.ReadBufferSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-reconnects", ec.MaxReconnects, &cfg.MaxReconnects); err != nil {
		return err
	}

	s.setBoolFromString("loop", ec.Loop, &cfg.Loop)
	s.setBoolFromString("expect-response", ec.ExpectResponse, &cfg.ExpectResponse)
	s.setBoolFromString("reconnect", ec.Reconnect, &cfg.Reconnect)
	s.setBoolFromString("watch", ec.Watch, &cfg.Watch)

	commands, err := ParseCommands(ec.Commands)
	if err != nil {
		return fmt.Errorf("parse PANELREPLAY_COMMANDS: %w", err)
	}
	s.setCommands("command", commands, &cfg.Commands)

	return nil
}
