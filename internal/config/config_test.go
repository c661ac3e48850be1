package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

func TestLoadDefault(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.General.PollInterval != 60 {
		t.Errorf("default poll_interval = %d, want 60", cfg.General.PollInterval)
	}
	if cfg.Notifications.Threshold != 0.9 {
		t.Errorf("default threshold = %g, want 0.9", cfg.Notifications.Threshold)
	}
	if !cfg.Accounts.Claude.Enabled || !cfg.Accounts.Codex.Enabled {
		t.Error("both accounts should default to enabled")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.General.Timezone = "Asia/Seoul"
	cfg.Accounts.Codex.Enabled = false
	cfg.Accounts.Claude.LogRoots = []string{"/srv/logs/claude"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.General.Timezone != "Asia/Seoul" {
		t.Errorf("timezone = %q, want Asia/Seoul", loaded.General.Timezone)
	}
	if loaded.Accounts.Codex.Enabled {
		t.Error("codex should stay disabled after round trip")
	}
	if len(loaded.Accounts.Claude.LogRoots) != 1 {
		t.Errorf("log roots = %v", loaded.Accounts.Claude.LogRoots)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	os.WriteFile(path, []byte("{{invalid toml}}"), 0644)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoad_RejectsBadThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("[notifications]\nthreshold = 1.5\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestEnabledKinds(t *testing.T) {
	cfg := DefaultConfig()
	kinds := cfg.EnabledKinds()
	if len(kinds) != 2 || kinds[0] != domain.AccountClaude || kinds[1] != domain.AccountCodex {
		t.Errorf("kinds = %v", kinds)
	}

	cfg.Accounts.Claude.Enabled = false
	kinds = cfg.EnabledKinds()
	if len(kinds) != 1 || kinds[0] != domain.AccountCodex {
		t.Errorf("kinds with claude disabled = %v", kinds)
	}
}

func TestSave_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "perms.toml")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestDefaultPath_NotEmpty(t *testing.T) {
	p := DefaultPath()
	if p == "" {
		t.Error("DefaultPath should not be empty")
	}
}
