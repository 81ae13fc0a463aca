// Package config loads framemark settings and the small state file that
// remembers the last annotation worked on.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

// Config is the user configuration.
type Config struct {
	History   HistoryConfig   `toml:"history"`
	Tracker   TrackerConfig   `toml:"tracker"`
	Log       LogConfig       `toml:"log"`
	Workspace WorkspaceConfig `toml:"workspace"`
}

type HistoryConfig struct {
	// Depth is how many edits can be undone.
	Depth int `toml:"depth"`
}

type TrackerConfig struct {
	// Kind selects the predictor: "identity" or "kalman".
	Kind string `toml:"kind"`
	// Propagate forecasts every untouched object onto the next frame when
	// stepping forward.
	Propagate bool `toml:"propagate"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type WorkspaceConfig struct {
	// Dir holds working files of unsaved annotations. Empty means the
	// current directory.
	Dir string `toml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		History: HistoryConfig{Depth: 20},
		Tracker: TrackerConfig{Kind: "identity"},
		Log:     LogConfig{Level: "info"},
	}
}

// DefaultDir returns the directory holding the config and state files.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "framemark")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "framemark")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating its directory.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	if c.History.Depth <= 0 {
		return fmt.Errorf("history.depth must be positive, got %d", c.History.Depth)
	}
	switch c.Tracker.Kind {
	case "", "identity", "kalman":
	default:
		return fmt.Errorf("tracker.kind must be identity or kalman, got %q", c.Tracker.Kind)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LogLevel returns the configured level, falling back to info.
func (c Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
