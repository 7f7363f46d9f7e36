package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.HorizonDays != 7 {
		t.Errorf("defaults = %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.yaml")

	cfg := DefaultConfig()
	cfg.SQLiteDSN = "file:test.db"
	cfg.LogLevel = "debug"
	cfg.HorizonDays = 14
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.SQLiteDSN != "file:test.db" || loaded.LogLevel != "debug" || loaded.HorizonDays != 14 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestNormalizeFixesInvalidValues(t *testing.T) {
	cfg := &Config{LogLevel: "verbose", HorizonDays: -1}
	cfg.Normalize()
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.HorizonDays != 7 {
		t.Errorf("HorizonDays = %d, want 7", cfg.HorizonDays)
	}
	if cfg.SQLiteDSN == "" {
		t.Error("DSN left empty")
	}
}

func TestEnvOverridesDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	t.Setenv("SCHEDULER_SQLITE_DSN", "file:env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SQLiteDSN != "file:env.db" {
		t.Errorf("SQLiteDSN = %q, want the env override", cfg.SQLiteDSN)
	}
}
