package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledgerkey.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	for _, name := range []string{EnvConfig, EnvStore, EnvMaxIterations, EnvMode, EnvMetricsFile, EnvLogLevel} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store != DefaultStore || cfg.Mode != DefaultMode || cfg.MaxIterations != 0 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.Loader.Remote {
		t.Error("Remote loading should be off by default")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
store: keys/.ledgerkey
unwrap:
  maxIterations: 100000
password:
  minScore: 3
proofs:
  mode: live
metrics:
  file: ledgerkey.prom
log:
  level: debug
loader:
  remote: true
  burst: 8
  timeout: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store != "keys/.ledgerkey" || cfg.MaxIterations != 100000 || cfg.Mode != "live" {
		t.Errorf("File settings not applied: %+v", cfg)
	}
	if cfg.MinPasswordScore != 3 {
		t.Errorf("Expected min password score 3, got %d", cfg.MinPasswordScore)
	}
	if cfg.MetricsFile != "ledgerkey.prom" || cfg.LogLevel != "debug" {
		t.Errorf("File settings not applied: %+v", cfg)
	}
	if !cfg.Loader.Remote || cfg.Loader.Burst != 8 || cfg.Loader.Timeout != 3*time.Second {
		t.Errorf("Loader settings not applied: %+v", cfg.Loader)
	}
	if cfg.Loader.RequestsPerSecond != 2 {
		t.Errorf("Unset loader rate should keep default, got %v", cfg.Loader.RequestsPerSecond)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "proofs:\n  mode: live\n")
	t.Setenv(EnvMode, "test")
	t.Setenv(EnvMaxIterations, "5000")
	t.Setenv(EnvStore, "/tmp/other.ledgerkey")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != "test" || cfg.MaxIterations != 5000 || cfg.Store != "/tmp/other.ledgerkey" {
		t.Errorf("Env overrides not applied: %+v", cfg)
	}

	t.Setenv(EnvMaxIterations, "many")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for non-integer max iterations")
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing explicit config")
	}
	if _, err := Load(writeConfig(t, "store: [unclosed")); err == nil {
		t.Error("Expected error for invalid YAML")
	}
	if _, err := Load(writeConfig(t, "unwrap:\n  maxIterations: -1\n")); err == nil {
		t.Error("Expected error for negative max iterations")
	}
	if _, err := Load(writeConfig(t, "unwrap:\n  maxIterations: 4095\n")); err == nil {
		t.Error("Expected error for max iterations below the store's own envelopes")
	}
	if _, err := Load(writeConfig(t, "unwrap:\n  maxIterations: 4096\n")); err != nil {
		t.Errorf("max iterations equal to the wrap count should load: %v", err)
	}
	if _, err := Load(writeConfig(t, "password:\n  minScore: 5\n")); err == nil {
		t.Error("Expected error for out of range password score")
	}
	if _, err := Load(writeConfig(t, "log:\n  level: loud\n")); err == nil {
		t.Error("Expected error for unknown log level")
	}
}
