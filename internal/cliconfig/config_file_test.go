package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
address = "192.168.3.120"
loop = false
read_timeout = "500ms"
default_delay = "1s"
read_buffer_size = 512
reconnect = true
max_reconnects = 3

[[command]]
payload = "4112#701"
description = "OPEN RELAY 1 FAULTING ZONE 3 on Partition 2"
post_delay = "5s"

[[command]]
payload_hex = "0d0a"
expect_response = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Address != "192.168.3.120" {
		t.Errorf("Address = %q", fc.Address)
	}
	if fc.Loop == nil || *fc.Loop {
		t.Errorf("Loop = %v, want false", fc.Loop)
	}
	if fc.ReadBufferSize != 512 || fc.MaxReconnects == nil || *fc.MaxReconnects != 3 {
		t.Errorf("ReadBufferSize = %d, MaxReconnects = %v", fc.ReadBufferSize, fc.MaxReconnects)
	}
	if len(fc.Commands) != 2 {
		t.Fatalf("len(Commands) = %d, want 2", len(fc.Commands))
	}
	if fc.Commands[1].PayloadHex != "0d0a" || fc.Commands[1].ExpectResponse == nil || *fc.Commands[1].ExpectResponse {
		t.Errorf("Commands[1] = %+v", fc.Commands[1])
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFileConfig() on missing file succeeded")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("address = [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFileConfig(bad); err == nil {
		t.Error("LoadFileConfig() on invalid TOML succeeded")
	}
}

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false
	five := 5
	zero := 0

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		check      func(t *testing.T, cfg Config)
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Address:        "10.0.0.5:10000",
				Loop:           &falseVal,
				ExpectResponse: &trueVal,
				DefaultDelay:   "2s",
				ReadTimeout:    "750ms",
				WriteTimeout:   "1s",
				DialTimeout:    "3s",
				ReadBufferSize: 256,
				Reconnect:      &trueVal,
				MaxReconnects:  &five,
				LogLevel:       "debug",
			},
			changed: map[string]bool{},
			initial: Config{Loop: true},
			check: func(t *testing.T, cfg Config) {
				want := Config{
					Address:        "10.0.0.5:10000",
					Loop:           false,
					ExpectResponse: true,
					DefaultDelay:   2 * time.Second,
					ReadTimeout:    750 * time.Millisecond,
					WriteTimeout:   time.Second,
					DialTimeout:    3 * time.Second,
					ReadBufferSize: 256,
					Reconnect:      true,
					MaxReconnects:  5,
					LogLevel:       "debug",
				}
				if !reflect.DeepEqual(cfg, want) {
					t.Errorf("config = %+v, want %+v", cfg, want)
				}
			},
		},
		{
			name:       "zero max reconnects means unlimited",
			fileConfig: FileConfig{MaxReconnects: &zero},
			changed:    map[string]bool{},
			initial:    Config{MaxReconnects: 5},
			check: func(t *testing.T, cfg Config) {
				if cfg.MaxReconnects != 0 {
					t.Errorf("MaxReconnects = %d, want 0", cfg.MaxReconnects)
				}
			},
		},
		{
			name:       "unset max reconnects keeps current value",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    Config{MaxReconnects: 5},
			check: func(t *testing.T, cfg Config) {
				if cfg.MaxReconnects != 5 {
					t.Errorf("MaxReconnects = %d, want 5", cfg.MaxReconnects)
				}
			},
		},
		{
			name:       "respects changed flags",
			fileConfig: FileConfig{Address: "file:10000", Loop: &falseVal, LogLevel: "warn"},
			changed:    map[string]bool{"address": true, "loop": true},
			initial:    Config{Address: "flag:10000", Loop: true},
			check: func(t *testing.T, cfg Config) {
				if cfg.Address != "flag:10000" {
					t.Errorf("Address = %q, want flag value", cfg.Address)
				}
				if !cfg.Loop {
					t.Errorf("Loop overridden by file despite flag")
				}
				if cfg.LogLevel != "warn" {
					t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
				}
			},
		},
		{
			name: "replaces commands",
			fileConfig: FileConfig{Commands: []FileCommand{
				{Payload: "4112#701", PostDelay: "100ms"},
				{PayloadHex: "0d0a", ExpectResponse: &falseVal},
			}},
			changed: map[string]bool{},
			initial: Config{Commands: DefaultCommands()},
			check: func(t *testing.T, cfg Config) {
				if len(cfg.Commands) != 2 {
					t.Fatalf("len(Commands) = %d, want 2", len(cfg.Commands))
				}
				if cfg.Commands[0].PostDelay == nil || *cfg.Commands[0].PostDelay != 100*time.Millisecond {
					t.Errorf("Commands[0].PostDelay = %v, want 100ms", cfg.Commands[0].PostDelay)
				}
				if cfg.Commands[1].PostDelay != nil {
					t.Errorf("Commands[1].PostDelay = %v, want inherited", *cfg.Commands[1].PostDelay)
				}
			},
		},
		{
			name:       "command flag wins over file commands",
			fileConfig: FileConfig{Commands: []FileCommand{{Payload: "file"}}},
			changed:    map[string]bool{"command": true},
			initial:    Config{Commands: []CommandConfig{{Payload: "flag"}}},
			check: func(t *testing.T, cfg Config) {
				if len(cfg.Commands) != 1 || cfg.Commands[0].Payload != "flag" {
					t.Errorf("Commands = %+v, want flag command", cfg.Commands)
				}
			},
		},
		{
			name:       "keeps defaults when file has no commands",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    Config{Commands: DefaultCommands()},
			check: func(t *testing.T, cfg Config) {
				if len(cfg.Commands) != 4 {
					t.Errorf("len(Commands) = %d, want 4", len(cfg.Commands))
				}
			},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{ReadTimeout: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "returns error for invalid post delay",
			fileConfig: FileConfig{Commands: []FileCommand{{Payload: "a", PostDelay: "later"}}},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), "parse") {
					t.Errorf("error = %v, want parse error", err)
				}
				return
			}
			tt.check(t, cfg)
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	want := filepath.Join(home, ".panelreplay", "config.toml")
	if got := DefaultConfigPath(); got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if FileExists(path) {
		t.Error("FileExists() = true before file was created")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false after file was created")
	}
}
