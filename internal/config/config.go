// Package config loads the YAML file configuration of the scheduler
// process. Database-resident settings (general_settings) are separate and
// owned by the persistence layer.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level process configuration.
type Config struct {
	// SQLiteDSN locates the scheduler database.
	SQLiteDSN string `yaml:"sqlite_dsn"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// DryRun only changes the serve command's startup log line; serve
	// writes to the logging sink whether or not it is set.
	DryRun bool `yaml:"dry_run"`

	// ExportPath, when set, is where the ICS export command writes by
	// default.
	ExportPath string `yaml:"export_path"`

	// HorizonDays bounds calendar rendering and export windows.
	HorizonDays int `yaml:"horizon_days"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		SQLiteDSN:   "file:scheduler.db?_pragma=foreign_keys(1)",
		LogLevel:    "info",
		DryRun:      false,
		ExportPath:  "schedule.ics",
		HorizonDays: 7,
	}
}

// Normalize fills missing or invalid values with defaults so partially
// filled configs still behave.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.SQLiteDSN) == "" {
		c.SQLiteDSN = "file:scheduler.db?_pragma=foreign_keys(1)"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if c.ExportPath == "" {
		c.ExportPath = "schedule.ics"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 7
	}
}

// Load reads configuration from the given YAML path. A missing file is
// created with defaults; the environment variable SCHEDULER_SQLITE_DSN
// overrides the stored DSN either way.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Normalize()
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	return cfg, nil
}

// Save writes the configuration atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".scheduler-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
