package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Address        string        `toml:"address"`
	Loop           *bool         `toml:"loop"`
	ExpectResponse *bool         `toml:"expect_response"`
	DefaultDelay   string        `toml:"default_delay"`
	ReadTimeout    string        `toml:"read_timeout"`
	WriteTimeout   string        `toml:"write_timeout"`
	DialTimeout    string        `toml:"dial_timeout"`
	ReadBufferSize int           `toml:"read_buffer_size"`
	Reconnect      *bool         `toml:"reconnect"`
	MaxReconnects  *int          `toml:"max_reconnects"`
	LogLevel       string        `toml:"log_level"`
	Commands       []FileCommand `toml:"command"`
}

// FileCommand is one [[command]] table.
type FileCommand struct {
	Payload        string `toml:"payload"`
	PayloadHex     string `toml:"payload_hex"`
	Description    string `toml:"description"`
	ExpectResponse *bool  `toml:"expect_response"`
	PostDelay      string `toml:"post_delay"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.panelreplay/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".panelreplay", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("address", fc.Address, &cfg.Address)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("delay", fc.DefaultDelay, &cfg.DefaultDelay); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", fc.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}

	s.setInt("read-buffer", fc.ReadBufferSize, &cfg.ReadBufferSize)
	s.setIntPtr("max-reconnects", fc.MaxReconnects, &cfg.MaxReconnects)

	s.setBool("loop", fc.Loop, &cfg.Loop)
	s.setBool("expect-response", fc.ExpectResponse, &cfg.ExpectResponse)
	s.setBool("reconnect", fc.Reconnect, &cfg.Reconnect)

	commands, err := fileCommands(fc.Commands)
	if err != nil {
		return err
	}
	s.setCommands("command", commands, &cfg.Commands)

	return nil
}

func fileCommands(list []FileCommand) ([]CommandConfig, error) {
	out := make([]CommandConfig, 0, len(list))
	for i, fc := range list {
		cc := CommandConfig{
			Payload:        fc.Payload,
			PayloadHex:     fc.PayloadHex,
			Description:    fc.Description,
			ExpectResponse: fc.ExpectResponse,
		}
		if fc.PostDelay != "" {
			d, err := time.ParseDuration(fc.PostDelay)
			if err != nil {
				return nil, fmt.Errorf("parse command %d post_delay: %w", i, err)
			}
			cc.PostDelay = &d
		}
		out = append(out, cc)
	}
	return out, nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
