package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/homebook/internal/accounts"
	"github.com/cleared-dev/homebook/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("우리집 가계부")
	cfg.Book.BaseCurrency = "USD"
	cfg.Cashflow.CashGroups = []string{"Cash", "Bank", "Credit Card"}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Home")

	assert.Equal(t, "Home", cfg.Book.Name)
	assert.Equal(t, "KRW", cfg.Book.BaseCurrency)
	assert.Equal(t, "homebook.db", cfg.Database.Path)
	assert.Equal(t, "기초순자산(Opening Equity)", cfg.OpeningBalance.EquityAccounts[0])
	assert.Len(t, cfg.OpeningBalance.EquityAccounts, 3)
	assert.Equal(t, "info", cfg.Log.Level)

	groups, err := cfg.CashGroups()
	require.NoError(t, err)
	assert.Equal(t, []accounts.Group{accounts.GroupCash, accounts.GroupBank}, groups)
	require.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("book:\n  name: 가계부\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "가계부", cfg.Book.Name)
	assert.Equal(t, "KRW", cfg.Book.BaseCurrency)
	assert.Equal(t, "homebook.db", cfg.Database.Path)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Test Book")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Book")
	assert.Contains(t, contents, "base_currency: KRW")
	assert.Contains(t, contents, "equity_accounts:")
	assert.Contains(t, contents, "cash_groups:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"lower case currency", func(c *Config) { c.Book.BaseCurrency = "usd" }, false},
		{"empty currency", func(c *Config) { c.Book.BaseCurrency = "" }, false},
		{"unknown currency", func(c *Config) { c.Book.BaseCurrency = "ZZZ" }, true},
		{"unknown group", func(c *Config) { c.Cashflow.CashGroups = []string{"Crypto"} }, true},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("x")
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, cfg.Book.BaseCurrency, 3)
		})
	}

	cfg := Default("x")
	cfg.Book.BaseCurrency = "ZZZ"
	assert.ErrorIs(t, cfg.Validate(), model.ErrInvalidCurrency)
}

func TestLogLevel(t *testing.T) {
	cfg := Default("x")
	cfg.Log.Level = "DEBUG"
	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	cfg.Log.Level = ""
	level, err = cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDBPath, "/var/lib/homebook/book.db")
	t.Setenv(EnvBaseCurrency, "jpy")
	t.Setenv(EnvLogLevel, "warn")

	cfg := Default("x")
	cfg.ApplyEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/var/lib/homebook/book.db", cfg.Database.Path)
	assert.Equal(t, "JPY", cfg.Book.BaseCurrency)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	cfg := Default("집")
	cfg.Database.Path = "data/book.db"
	require.NoError(t, Save(filepath.Join(dir, FileName), cfg))

	got, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "book.db"), got.Database.Path)
}

func TestLoadDir_DefaultsAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvBaseCurrency+"=EUR\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvBaseCurrency) })

	got, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), got.Book.Name)
	assert.Equal(t, "EUR", got.Book.BaseCurrency)
	assert.Equal(t, filepath.Join(dir, "homebook.db"), got.Database.Path)
}
