package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/homebook/internal/commands"
	"github.com/cleared-dev/homebook/internal/config"
)

// run executes the CLI in-process against dir and returns its stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--dir", dir))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// mustRun is run for steps that are setup rather than the thing under test.
func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "homebook %v", args)
	return out
}

func initBook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustRun(t, dir, "init", "--name", "Test Book")
	return dir
}

func TestInit_SeedsChartAndConfig(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "init", "--name", "우리집")
	require.NoError(t, err)
	assert.Contains(t, out, "22 accounts seeded")
	assert.Contains(t, out, "base currency KRW")

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "우리집", cfg.Book.Name)
	assert.Equal(t, "KRW", cfg.Book.BaseCurrency)

	_, err = os.Stat(filepath.Join(dir, "homebook.db"))
	require.NoError(t, err, "database should be created")
}

func TestInit_Gitignore(t *testing.T) {
	dir := initBook(t)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	for _, pattern := range []string{"*.db", ".env"} {
		assert.Contains(t, string(data), pattern, ".gitignore should contain %s", pattern)
	}
}

func TestInit_IsIdempotent(t *testing.T) {
	dir := initBook(t)

	out, err := run(t, dir, "init", "--name", "Other Name", "--base-currency", "USD")
	require.NoError(t, err)
	assert.Contains(t, out, "0 accounts seeded")
	assert.Contains(t, out, "base currency KRW", "existing config is kept")
}

func TestInit_DefaultsNameToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "household")
	_, err := run(t, dir, "init")
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "household", cfg.Book.Name)
}

func TestInit_RejectsUnknownCurrency(t *testing.T) {
	_, err := run(t, t.TempDir(), "init", "--base-currency", "XXQ")
	require.Error(t, err)
	assert.Equal(t, 2, commands.ExitCode(err))
}
