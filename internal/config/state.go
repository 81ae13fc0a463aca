package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// State is remembered between runs.
type State struct {
	LastAnnotation string `toml:"last_annotation"`
}

// StatePath returns the state file that sits next to the config at configPath.
func StatePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "state.toml")
}

// LoadState reads the state file. A missing file yields an empty State.
func LoadState(path string) (State, error) {
	var st State
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("failed to read state: %w", err)
	}
	if err := toml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("failed to parse state %s: %w", path, err)
	}
	return st, nil
}

// SaveState writes the state file, creating its directory.
func SaveState(path string, st State) error {
	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Remember records path as the last annotation, resolved to an absolute path.
func Remember(statePath, annotation string) error {
	abs, err := filepath.Abs(annotation)
	if err != nil {
		return err
	}
	return SaveState(statePath, State{LastAnnotation: abs})
}
