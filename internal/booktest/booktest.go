// Package booktest opens throwaway books for tests.
package booktest

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// Open returns an empty store in a temp dir, closed when the test ends.
func Open(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "homebook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Dec parses a decimal literal.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Date returns a UTC calendar day.
func Date(y, m, d int) time.Time {
	return model.Date(y, time.Month(m), d)
}
