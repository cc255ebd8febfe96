// Package config loads and saves the board's configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file kept at the board root.
const FileName = ".kanban.yml"

// Config is the board-level configuration.
type Config struct {
	// Repo is the "owner/repo" identifier of the remote tracker. Empty
	// means auto-detection from the local git remote at sync time.
	Repo string `yaml:"repo,omitempty"`
	// DefaultStatus is where `new` places records. Defaults to backlog.
	DefaultStatus string `yaml:"default_status,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultStatus: "backlog",
		LogLevel:      "info",
	}
}

// Load reads the configuration at the board root. A missing file yields
// defaults, not an error.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the board root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
