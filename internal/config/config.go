// Package config loads todograph settings from defaults, a TOML file and the
// environment, in that order of precedence (later wins). CLI flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDataDir = ".todograph"
	configFile     = "config.toml"
	envPrefix      = "TODOGRAPH_"
)

// Config holds all settings.
type Config struct {
	DataDir             string    `toml:"data_dir"`
	DefaultEstimateDays int       `toml:"default_estimate_days"`
	Model               string    `toml:"model"`
	Log                 LogConfig `toml:"log"`
}

// LogConfig controls the diagnostic logger.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataDir:             DefaultDataDir,
		DefaultEstimateDays: 1,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir, configFile)
}

// Load reads path (DefaultPath if empty) over the defaults, then applies
// TODOGRAPH_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(envPrefix + "DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := getenv(envPrefix + "MODEL"); v != "" {
		cfg.Model = v
	}
	if v := getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := getenv(envPrefix + "DEFAULT_ESTIMATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sDEFAULT_ESTIMATE: %w", envPrefix, err)
		}
		cfg.DefaultEstimateDays = n
	}
	return nil
}

// Validate checks settings that have a closed set of values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (use text or json)", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.DefaultEstimateDays < 1 {
		c.DefaultEstimateDays = 1
	}
	return nil
}

// Write saves c as TOML at path, creating parent directories.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
