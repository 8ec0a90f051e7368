// Package config loads homebook.yaml and applies .env and environment
// overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/homebook/internal/accounts"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/opening"
)

// FileName is the config file looked up in the book directory.
const FileName = "homebook.yaml"

// Environment variables that override the file.
const (
	EnvDBPath       = "HOMEBOOK_DB_PATH"
	EnvBaseCurrency = "HOMEBOOK_BASE_CURRENCY"
	EnvLogLevel     = "HOMEBOOK_LOG_LEVEL"
)

// Config represents the top-level homebook.yaml configuration.
type Config struct {
	Book           BookConfig           `yaml:"book"`
	Database       DatabaseConfig       `yaml:"database"`
	OpeningBalance OpeningBalanceConfig `yaml:"opening_balance"`
	Cashflow       CashflowConfig       `yaml:"cashflow"`
	Log            LogConfig            `yaml:"log"`
}

// BookConfig identifies the book and its reporting currency.
type BookConfig struct {
	Name         string `yaml:"name"`
	BaseCurrency string `yaml:"base_currency"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"` // relative paths resolve against the book directory
}

// OpeningBalanceConfig names the equity accounts the opening entry plugs into,
// tried in order.
type OpeningBalanceConfig struct {
	EquityAccounts []string `yaml:"equity_accounts"`
}

// CashflowConfig selects the household groups counted as cash.
type CashflowConfig struct {
	CashGroups []string `yaml:"cash_groups"`
}

// LogConfig controls the stderr logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads a homebook.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadDir reads dir/homebook.yaml, falling back to defaults when the file
// does not exist, then applies dir/.env and the process environment.
func LoadDir(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(filepath.Base(dir)), nil
	}
	if err != nil {
		return nil, err
	}
	if err := LoadEnvFile(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if cfg.Database.Path != "" && !filepath.IsAbs(cfg.Database.Path) {
		cfg.Database.Path = filepath.Join(dir, cfg.Database.Path)
	}
	return cfg, cfg.Validate()
}

// LoadEnvFile loads variables from a .env file without overriding ones already
// set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from HOMEBOOK_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseCurrency)); v != "" {
		c.Book.BaseCurrency = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// Validate checks and normalizes the configuration.
func (c *Config) Validate() error {
	cur, err := model.NormalizeCurrency(c.Book.BaseCurrency)
	if err != nil {
		return fmt.Errorf("book.base_currency: %w", err)
	}
	c.Book.BaseCurrency = cur
	if _, err := c.CashGroups(); err != nil {
		return fmt.Errorf("cashflow.cash_groups: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// CashGroups parses the configured cash groups.
func (c *Config) CashGroups() ([]accounts.Group, error) {
	groups := make([]accounts.Group, 0, len(c.Cashflow.CashGroups))
	for _, name := range c.Cashflow.CashGroups {
		g, err := accounts.ParseGroup(name)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// LogLevel parses log.level. Empty means info.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new book.
func Default(bookName string) *Config {
	return &Config{
		Book: BookConfig{
			Name:         bookName,
			BaseCurrency: model.DefaultCurrency,
		},
		Database: DatabaseConfig{
			Path: "homebook.db",
		},
		OpeningBalance: OpeningBalanceConfig{
			EquityAccounts: append([]string(nil), opening.DefaultEquityAccounts...),
		},
		Cashflow: CashflowConfig{
			CashGroups: []string{string(accounts.GroupCash), string(accounts.GroupBank)},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
