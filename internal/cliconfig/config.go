package cliconfig

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/panelreplay/internal/domain"
)

// DefaultPort is the AlarmDecoder ser2sock port, used when the address has none.
const DefaultPort = "10000"

// CommandConfig is one configured command before it is turned into a domain entry.
// Nil ExpectResponse and PostDelay inherit Config.ExpectResponse and Config.DefaultDelay.
type CommandConfig struct {
	Payload        string
	PayloadHex     string
	Description    string
	ExpectResponse *bool
	PostDelay      *time.Duration
}

// Config holds CLI configuration for panelreplay.
type Config struct {
	Address string

	Loop           bool
	ExpectResponse bool
	DefaultDelay   time.Duration

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	DialTimeout    time.Duration
	ReadBufferSize int

	Reconnect     bool
	MaxReconnects int

	LogLevel string
	Watch    bool

	Commands []CommandConfig
}

// DefaultCommands is the relay load test run against a test panel:
// two relays wired to zones on two partitions, faulted and restored in turn.
func DefaultCommands() []CommandConfig {
	return []CommandConfig{
		{Payload: "4112#701", Description: "OPEN RELAY 1 FAULTING ZONE 3 on Partition 2"},
		{Payload: "4112#801", Description: "CLOSE RELAY 1 RESTORING ZONE 3 on Partition 2"},
		{Payload: "4112#702", Description: "OPEN RELAY 2 FAULTING ZONE 2 on Partition 1"},
		{Payload: "4112#802", Description: "CLOSE RELAY 2 RESTORING ZONE 2 on Partition 1"},
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Loop:           true,
		ExpectResponse: true,
		DefaultDelay:   5 * time.Second,
		ReadTimeout:    2 * time.Second,
		DialTimeout:    10 * time.Second,
		ReadBufferSize: domain.DefaultReadBufferSize,
		LogLevel:       "info",
		Commands:       DefaultCommands(),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: address is required", domain.ErrInvalidConfig)
	}
	c.Address = NormalizeAddress(c.Address)

	if c.DefaultDelay < 0 {
		return fmt.Errorf("%w: delay must not be negative", domain.ErrInvalidConfig)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: read timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("%w: write timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: dial timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("%w: read buffer size must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxReconnects < 0 {
		return fmt.Errorf("%w: max reconnects must not be negative", domain.ErrInvalidConfig)
	}

	if _, err := c.ReplayConfig(); err != nil {
		return err
	}
	return nil
}

// ReplayConfig builds the immutable replay configuration.
func (c *Config) ReplayConfig() (domain.ReplayConfig, error) {
	seq := make([]domain.CommandEntry, 0, len(c.Commands))
	for i, cc := range c.Commands {
		entry, err := c.entry(cc)
		if err != nil {
			return domain.ReplayConfig{}, fmt.Errorf("command %d: %w", i, err)
		}
		seq = append(seq, entry)
	}

	rc := domain.ReplayConfig{
		Sequence:       seq,
		Loop:           c.Loop,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		ReadBufferSize: c.ReadBufferSize,
	}
	if err := rc.Validate(); err != nil {
		return domain.ReplayConfig{}, err
	}
	return rc, nil
}

func (c *Config) entry(cc CommandConfig) (domain.CommandEntry, error) {
	payload, err := cc.payload()
	if err != nil {
		return domain.CommandEntry{}, err
	}

	expect := c.ExpectResponse
	if cc.ExpectResponse != nil {
		expect = *cc.ExpectResponse
	}
	delay := c.DefaultDelay
	if cc.PostDelay != nil {
		delay = *cc.PostDelay
	}
	return domain.NewCommandEntry(payload, cc.Description, expect, delay), nil
}

func (cc CommandConfig) payload() ([]byte, error) {
	switch {
	case cc.Payload != "" && cc.PayloadHex != "":
		return nil, fmt.Errorf("%w: set only one of payload and payload_hex", domain.ErrInvalidConfig)
	case cc.PayloadHex != "":
		b, err := hex.DecodeString(strings.ReplaceAll(cc.PayloadHex, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: payload_hex: %v", domain.ErrInvalidConfig, err)
		}
		return b, nil
	default:
		return []byte(cc.Payload), nil
	}
}

// ParseCommand parses the --command flag form "payload[|description]".
// A payload prefixed with "hex:" is decoded as hex.
func ParseCommand(s string) (CommandConfig, error) {
	payload, desc, _ := strings.Cut(s, "|")
	if payload == "" {
		return CommandConfig{}, fmt.Errorf("%w: empty command %q", domain.ErrInvalidConfig, s)
	}
	cc := CommandConfig{Description: strings.TrimSpace(desc)}
	if h, ok := strings.CutPrefix(payload, "hex:"); ok {
		cc.PayloadHex = h
	} else {
		cc.Payload = payload
	}
	return cc, nil
}

// ParseCommands parses every entry with ParseCommand.
func ParseCommands(list []string) ([]CommandConfig, error) {
	out := make([]CommandConfig, 0, len(list))
	for _, s := range list {
		cc, err := ParseCommand(s)
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, nil
}

// NormalizeAddress appends DefaultPort when address has no port.
func NormalizeAddress(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	host := strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
	return net.JoinHostPort(host, DefaultPort)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value from a pointer if not nil and flag not changed.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination.
// Zero is kept since it is meaningful for some fields; Validate rejects
// out-of-range values. Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setCommands replaces the command list if not empty and flag not changed.
func (s *configSetter) setCommands(flag string, value []CommandConfig, dst *[]CommandConfig) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}
