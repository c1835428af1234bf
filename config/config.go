package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config contains all the configuration for the application
type Config struct {
	// Core settings
	AppName string            `toml:"app_name" yaml:"app_name"`
	Tags    map[string]string `toml:"tags" yaml:"tags"`
	Debug   bool              `toml:"debug" yaml:"debug"`

	// Pyroscope settings
	PyroscopeURL string `toml:"pyroscope_url" yaml:"pyroscope_url"`
	AuthToken    string `toml:"auth_token" yaml:"auth_token"`

	// Pipeline settings
	Interval        float64 `toml:"interval" yaml:"interval"`                 // seconds between batch sends
	BatchLimit      int     `toml:"batch_limit" yaml:"batch_limit"`           // snapshots per batch
	ConcurrentLimit int     `toml:"concurrent_limit" yaml:"concurrent_limit"` // concurrent sends
	QueueSize       int     `toml:"queue_size" yaml:"queue_size"`             // snapshots buffered between goroutines
	ExcludePattern  string  `toml:"exclude" yaml:"exclude"`                   // regex of scope paths left out of exported profiles

	// Output settings
	Layout      string `toml:"layout" yaml:"layout"`             // lines|table
	Color       string `toml:"color" yaml:"color"`               // auto|on|off
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"` // prometheus listen address, empty disables
}

// NewDefault returns a new default config
func NewDefault() *Config {
	return &Config{
		AppName:         "frameScope",
		Tags:            map[string]string{},
		Interval:        10,
		BatchLimit:      64,
		ConcurrentLimit: 1,
		QueueSize:       128,
		Layout:          "lines",
		Color:           "auto",
	}
}

// Load reads a TOML or YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := NewDefault()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q (expected .toml, .yaml or .yml)", ErrInvalid, filepath.Ext(path))
	}

	if cfg.Tags == nil {
		cfg.Tags = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("%w: app name is required", ErrInvalid)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalid, c.Interval)
	}
	if c.BatchLimit <= 0 {
		return fmt.Errorf("%w: batch limit must be positive, got %d", ErrInvalid, c.BatchLimit)
	}
	if c.ConcurrentLimit <= 0 {
		return fmt.Errorf("%w: concurrent limit must be positive, got %d", ErrInvalid, c.ConcurrentLimit)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive, got %d", ErrInvalid, c.QueueSize)
	}
	if c.ExcludePattern != "" {
		if _, err := regexp.Compile(c.ExcludePattern); err != nil {
			return fmt.Errorf("%w: exclude pattern: %v", ErrInvalid, err)
		}
	}
	switch c.Layout {
	case "lines", "table":
	default:
		return fmt.Errorf("%w: layout %q (expected: lines|table)", ErrInvalid, c.Layout)
	}
	switch c.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("%w: color %q (expected: auto|on|off)", ErrInvalid, c.Color)
	}
	return nil
}

// ExcludeRegexp compiles ExcludePattern, nil when it is empty.
func (c *Config) ExcludeRegexp() *regexp.Regexp {
	if c.ExcludePattern == "" {
		return nil
	}
	re, err := regexp.Compile(c.ExcludePattern)
	if err != nil {
		return nil
	}
	return re
}
