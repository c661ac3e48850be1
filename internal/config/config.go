package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

type Config struct {
	General       GeneralConfig       `toml:"general"`
	Notifications NotificationsConfig `toml:"notifications"`
	Accounts      AccountsConfig      `toml:"accounts"`
}

type GeneralConfig struct {
	PollInterval int    `toml:"poll_interval"` // seconds between quota fetches
	ScanInterval int    `toml:"scan_interval"` // seconds between cost scans
	Cooldown     int    `toml:"cooldown"`      // seconds between manual refreshes
	Timezone     string `toml:"timezone"`      // IANA name, "" means system local
}

type NotificationsConfig struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float64 `toml:"threshold"` // used fraction, 0.0-1.0
}

type AccountsConfig struct {
	Claude AccountConfig `toml:"claude"`
	Codex  AccountConfig `toml:"codex"`
}

type AccountConfig struct {
	Enabled  bool     `toml:"enabled"`
	LogRoots []string `toml:"log_roots"` // extra log directories to scan
}

func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			PollInterval: 60,
			ScanInterval: 300,
			Cooldown:     5,
			Timezone:     "",
		},
		Notifications: NotificationsConfig{
			Enabled:   true,
			Threshold: 0.9,
		},
		Accounts: AccountsConfig{
			Claude: AccountConfig{Enabled: true},
			Codex:  AccountConfig{Enabled: true},
		},
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "claude-bar", "config.toml")
}

func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // use defaults
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Notifications.Threshold < 0 || c.Notifications.Threshold > 1 {
		return fmt.Errorf("notifications.threshold must be between 0.0 and 1.0, got %g",
			c.Notifications.Threshold)
	}
	if c.General.PollInterval <= 0 {
		return fmt.Errorf("general.poll_interval must be positive, got %d", c.General.PollInterval)
	}
	if c.General.ScanInterval <= 0 {
		return fmt.Errorf("general.scan_interval must be positive, got %d", c.General.ScanInterval)
	}
	return nil
}

// EnabledKinds returns the account kinds switched on in config, in
// display order.
func (c Config) EnabledKinds() []domain.AccountKind {
	var kinds []domain.AccountKind
	if c.Accounts.Claude.Enabled {
		kinds = append(kinds, domain.AccountClaude)
	}
	if c.Accounts.Codex.Enabled {
		kinds = append(kinds, domain.AccountCodex)
	}
	return kinds
}

// LogRoots returns the configured extra log roots for one account kind.
func (c Config) LogRoots(kind domain.AccountKind) []string {
	switch kind {
	case domain.AccountClaude:
		return c.Accounts.Claude.LogRoots
	case domain.AccountCodex:
		return c.Accounts.Codex.LogRoots
	default:
		return nil
	}
}
