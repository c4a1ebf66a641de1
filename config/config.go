// Package config loads the vmpatch configuration file and patch profiles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = "vmpatch"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Access selects the memory access backend: procmem or vm.
	Access string `yaml:"access"`

	// Resolver selects how process names are resolved: auto, pgrep or proc.
	Resolver string `yaml:"resolver"`

	Verbose bool `yaml:"verbose"`

	// Color is auto, always or never.
	Color string `yaml:"color"`

	// BytesPerLine is the hex dump width.
	BytesPerLine int `yaml:"bytes-per-line,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Access:       "procmem",
		Resolver:     "auto",
		Color:        "auto",
		BytesPerLine: 16,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/vmpatch/config.yml (or the platform equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDir, configFile), nil
}

// Load reads the configuration at path. An empty path means DefaultPath, and
// a missing default file yields Default. A missing explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return Parse(data)
}

// Parse decodes a configuration document on top of Default.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Access {
	case "procmem", "vm":
	default:
		return fmt.Errorf("config: unknown access %q", c.Access)
	}
	switch c.Resolver {
	case "auto", "pgrep", "proc":
	default:
		return fmt.Errorf("config: unknown resolver %q", c.Resolver)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: unknown color %q", c.Color)
	}
	if c.BytesPerLine <= 0 {
		return fmt.Errorf("config: bytes-per-line must be positive, got %d", c.BytesPerLine)
	}
	return nil
}
