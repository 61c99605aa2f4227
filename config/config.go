package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/procscope/procscope/engine"
)

// Config holds user-configurable defaults. Fields map one to one onto the
// CLI flags; flags win when both are set.
type Config struct {
	IntervalSec  int    `json:"interval_sec"`
	RetentionMin int    `json:"retention_min"`
	Flat         bool   `json:"flat"`
	StaleTicks   int    `json:"stale_ticks"`
	LogFile      string `json:"log_file"`
	Debug        bool   `json:"debug"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		IntervalSec:  2,
		RetentionMin: 2,
		StaleTicks:   2,
	}
}

// Interval returns the sampling period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// Retention returns the history window.
func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionMin) * time.Minute
}

// Normalize replaces out-of-range fields with their defaults and reports
// what was fixed, so a hand-edited file degrades per field instead of
// discarding the rest.
func (c *Config) Normalize() []string {
	def := Default()
	var fixed []string
	if c.IntervalSec < 1 {
		c.IntervalSec = def.IntervalSec
		fixed = append(fixed, "interval_sec")
	}
	if !engine.ValidRetention(c.Retention()) {
		c.RetentionMin = def.RetentionMin
		fixed = append(fixed, "retention_min")
	}
	if c.StaleTicks < 1 {
		c.StaleTicks = def.StaleTicks
		fixed = append(fixed, "stale_ticks")
	}
	return fixed
}

// Path returns ~/.config/procscope/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // refuse to fall back to /tmp (security risk)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "procscope", "config.json")
}

// Load loads config from disk; returns defaults when the file is absent or
// unparseable. Out-of-range fields are normalized individually.
func Load() (Config, error) {
	return loadFrom(Path())
}

func loadFrom(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
