package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Defaults(t *testing.T) {
	// Run from a directory with no config file.
	chdirTemp(t)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Store.Backend = %s, want sqlite", cfg.Store.Backend)
	}
	if cfg.Agents.Mode != "static" {
		t.Errorf("Agents.Mode = %s, want static", cfg.Agents.Mode)
	}
	if cfg.Consensus.PrimaryModel != DefaultPrimaryModel {
		t.Errorf("Consensus.PrimaryModel = %s, want %s", cfg.Consensus.PrimaryModel, DefaultPrimaryModel)
	}
	if len(cfg.Models.Table) != 3 {
		t.Errorf("Models.Table has %d entries, want 3", len(cfg.Models.Table))
	}
	if cfg.Models.Table[DefaultPrimaryModel].Format != "nova" {
		t.Errorf("primary model format = %s, want nova", cfg.Models.Table[DefaultPrimaryModel].Format)
	}
}

func TestLoader_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
log:
  level: debug
store:
  backend: memory
server:
  port: 9999
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %s, want memory", cfg.Store.Backend)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BIOMERKIN_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn (from env)", cfg.Log.Level)
	}
}

func TestLoader_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
store:
  backend: cassandra
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := NewLoader().WithConfigFile(path).Load(); err == nil {
		t.Error("Load() should reject unknown store backend")
	}
}

func chdirTemp(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getting working directory: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("changing directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(orig)
	})
}
