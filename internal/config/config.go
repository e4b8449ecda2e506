// Package config provides persistent configuration storage for the dongle
// engine's operator-facing defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the persistent configuration. It never stores sensor state
// (paired MAC lists, discovered device paths) — only engine defaults that
// are not meaningfully derivable from the dongle itself.
type Config struct {
	// DefaultDevicePath is the hidraw character device to open when the
	// caller does not specify one explicitly.
	DefaultDevicePath string `json:"default_device_path,omitempty" yaml:"default_device_path,omitempty"`
	// CommandTimeoutMS is the default single-reply command timeout.
	CommandTimeoutMS int64 `json:"command_timeout_ms,omitempty" yaml:"command_timeout_ms,omitempty"`
	// ScanTimeoutMS is the default pairing-scan timeout.
	ScanTimeoutMS int64 `json:"scan_timeout_ms,omitempty" yaml:"scan_timeout_ms,omitempty"`
	// LogLevel is the default logger level (error/warn/info/debug/trace).
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".wyzesense-bridge"), nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from the default config file.
// Returns an empty Config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from the specified file path. The file
// format (JSON or YAML) is chosen by its extension. Returns an empty Config
// if the file doesn't exist.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return &cfg, nil
}

// Save writes the configuration to the default config file.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to the specified file path, in JSON or
// YAML depending on the file's extension.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CommandTimeout returns CommandTimeoutMS as a time.Duration, or def if
// unset.
func (c *Config) CommandTimeout(def time.Duration) time.Duration {
	if c.CommandTimeoutMS <= 0 {
		return def
	}
	return time.Duration(c.CommandTimeoutMS) * time.Millisecond
}

// ScanTimeout returns ScanTimeoutMS as a time.Duration, or def if unset.
func (c *Config) ScanTimeout(def time.Duration) time.Duration {
	if c.ScanTimeoutMS <= 0 {
		return def
	}
	return time.Duration(c.ScanTimeoutMS) * time.Millisecond
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
