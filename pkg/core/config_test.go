package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.BackendPriority) == 0 {
		t.Error("default config should have a backend priority")
	}
	if cfg.FreshnessWindow != time.Hour {
		t.Errorf("FreshnessWindow = %v, want 1h", cfg.FreshnessWindow)
	}
	if cfg.ExecTimeout <= 0 {
		t.Error("default config should bound exec time")
	}
	if cfg.MaxConcurrentTransactions < 1 {
		t.Error("worker pool must allow at least one transaction")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.FreshnessWindow != time.Hour {
		t.Errorf("FreshnessWindow = %v, want default", cfg.FreshnessWindow)
	}
}

func TestLoadConfigFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "backend_priority: [brew, apt]\nfreshness_window: 30m\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BackendPriority[0] != "brew" {
		t.Errorf("BackendPriority = %v, want brew first", cfg.BackendPriority)
	}
	if cfg.FreshnessWindow != 30*time.Minute {
		t.Errorf("FreshnessWindow = %v, want 30m", cfg.FreshnessWindow)
	}
	// Unset fields come from defaults.
	if cfg.ExecTimeout <= 0 {
		t.Error("ExecTimeout should be filled from defaults")
	}
	if cfg.StorePath == "" {
		t.Error("StorePath should be filled from defaults")
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed config should error, not silently default")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.BackendPriority = []string{"pacman"}
	cfg.Debug = true
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.BackendPriority[0] != "pacman" {
		t.Errorf("BackendPriority = %v", loaded.BackendPriority)
	}
	if !loaded.Debug {
		t.Error("Debug flag lost in round trip")
	}
}

func TestPolicyFor(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PolicyFor("apt") != ElevateMutations {
		t.Error("apt should elevate mutations by default")
	}
	if cfg.PolicyFor("brew") != ElevateNever {
		t.Error("brew should never elevate by default")
	}
	// Unknown backends get the conservative policy.
	if cfg.PolicyFor("unknown") != ElevateMutations {
		t.Error("unknown backend should default to mutations policy")
	}
}
