// Package config reads and writes the synth's JSON settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cbegin/midisynth-go/internal/audio/backend"
	"github.com/cbegin/midisynth-go/internal/params"
	"github.com/cbegin/midisynth-go/internal/queue"
)

// QueueConfig bounds the event queue.
type QueueConfig struct {
	Capacity int          `json:"capacity"`
	Policy   queue.Policy `json:"policy"`
}

// Config is the main configuration structure
type Config struct {
	Ports          []string          `json:"ports,omitempty"`
	NoteDurationMs int               `json:"noteDurationMs"`
	MaxWaitMs      int               `json:"maxWaitMs"`
	ClampAMIndex   bool              `json:"clampAmIndex"`
	Queue          QueueConfig       `json:"queue"`
	Backend        backend.Name      `json:"backend"`
	LogLevel       slog.Level        `json:"logLevel"`
	Parameters     params.Parameters `json:"parameters"`
}

func DefaultConfig() *Config {
	return &Config{
		NoteDurationMs: 500,
		MaxWaitMs:      50,
		ClampAMIndex:   true,
		Queue:          QueueConfig{Capacity: 256, Policy: queue.DropOldest},
		Backend:        backend.Ebiten,
		LogLevel:       slog.LevelInfo,
		Parameters:     params.Default(),
	}
}

func (c *Config) NoteDuration() time.Duration {
	return time.Duration(c.NoteDurationMs) * time.Millisecond
}

func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMs) * time.Millisecond
}

func (c *Config) Validate() error {
	if c.NoteDurationMs <= 0 {
		return fmt.Errorf("noteDurationMs must be positive, got %d", c.NoteDurationMs)
	}
	if c.MaxWaitMs <= 0 {
		return fmt.Errorf("maxWaitMs must be positive, got %d", c.MaxWaitMs)
	}
	if c.Queue.Capacity < 0 {
		return fmt.Errorf("queue capacity must not be negative, got %d", c.Queue.Capacity)
	}
	if _, err := backend.Parse(string(c.Backend)); err != nil {
		return err
	}
	return c.Parameters.Validate()
}

// DefaultPath returns ~/.config/midisynth/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midisynth", "config.json"), nil
}

// Load reads the config at path, or returns defaults if the file does not
// exist. Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
