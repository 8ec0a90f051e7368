package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/homebook/internal/model"
)

// UpsertFxRate stores a rate. A row for the same pair and timestamp is overwritten.
func (t *Tx) UpsertFxRate(ctx context.Context, r model.FxRate) (int64, error) {
	asOf := formatTimestamp(r.AsOf)
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM fx_rates WHERE base_currency = ? AND quote_currency = ? AND as_of = ?`,
		r.Base, r.Quote, asOf).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := t.tx.ExecContext(ctx,
			`INSERT INTO fx_rates (base_currency, quote_currency, rate, as_of, source) VALUES (?, ?, ?, ?, ?)`,
			r.Base, r.Quote, r.Rate, asOf, r.Source)
		if err != nil {
			return 0, fmt.Errorf("inserting fx rate: %w", err)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("looking up fx rate: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `UPDATE fx_rates SET rate = ?, source = ? WHERE id = ?`, r.Rate, r.Source, id); err != nil {
		return 0, fmt.Errorf("updating fx rate %d: %w", id, err)
	}
	return id, nil
}

// FxRates returns every stored rate for a pair with as_of <= until (zero = no bound).
func (t *Tx) FxRates(ctx context.Context, base, quote string, until time.Time) ([]model.FxRate, error) {
	query := `SELECT id, base_currency, quote_currency, rate, as_of, source FROM fx_rates
		WHERE base_currency = ? AND quote_currency = ?`
	args := []any{base, quote}
	if !until.IsZero() {
		query += ` AND as_of <= ?`
		args = append(args, formatTimestamp(until))
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fx rates: %w", err)
	}
	defer rows.Close()

	var rates []model.FxRate
	for rows.Next() {
		var r model.FxRate
		var asOf string
		if err := rows.Scan(&r.ID, &r.Base, &r.Quote, &r.Rate, &asOf, &r.Source); err != nil {
			return nil, fmt.Errorf("scanning fx rate: %w", err)
		}
		if r.AsOf, err = parseTimestamp(asOf); err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// FxRevision returns a counter bumped by every write to fx_rates, whichever
// connection made it.
func (t *Tx) FxRevision(ctx context.Context) (int64, error) {
	var n int64
	if err := t.tx.QueryRowContext(ctx, `SELECT n FROM fx_revision WHERE id = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("reading fx revision: %w", err)
	}
	return n, nil
}

// UpsertPrice stores a price snapshot keyed by symbol, market, timestamp and source.
func (t *Tx) UpsertPrice(ctx context.Context, q model.PriceQuote) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO market_prices (symbol, market, currency, price, as_of, source)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(symbol, market, as_of, source) DO UPDATE SET
			price = excluded.price,
			currency = excluded.currency`,
		q.Symbol, q.Market, q.Currency, q.Price, formatTimestamp(q.AsOf), q.Source)
	if err != nil {
		return fmt.Errorf("upserting price %s/%s: %w", q.Symbol, q.Market, err)
	}
	return nil
}

// Prices returns every stored price snapshot for a symbol on a market.
func (t *Tx) Prices(ctx context.Context, symbol, market string) ([]model.PriceQuote, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, symbol, market, currency, price, as_of, source FROM market_prices WHERE symbol = ? AND market = ?`,
		symbol, market)
	if err != nil {
		return nil, fmt.Errorf("querying prices: %w", err)
	}
	defer rows.Close()

	var quotes []model.PriceQuote
	for rows.Next() {
		var q model.PriceQuote
		var asOf string
		if err := rows.Scan(&q.ID, &q.Symbol, &q.Market, &q.Currency, &q.Price, &asOf, &q.Source); err != nil {
			return nil, fmt.Errorf("scanning price: %w", err)
		}
		if q.AsOf, err = parseTimestamp(asOf); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// StartSync records the beginning of a provider sync run and returns its id.
func (t *Tx) StartSync(ctx context.Context, dataType, provider string, startedAt time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO data_sync_log (data_type, provider, status, started_at) VALUES (?, ?, ?, ?)`,
		dataType, provider, string(model.SyncRunning), formatTimestamp(startedAt))
	if err != nil {
		return 0, fmt.Errorf("recording sync start: %w", err)
	}
	return res.LastInsertId()
}

// FinishSync records the outcome of a sync run.
func (t *Tx) FinishSync(ctx context.Context, id int64, status model.SyncStatus, message string, finishedAt time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE data_sync_log SET status = ?, message = ?, finished_at = ? WHERE id = ?`,
		string(status), message, formatTimestamp(finishedAt), id)
	if err != nil {
		return fmt.Errorf("recording sync finish: %w", err)
	}
	return nil
}

// LastSync returns the most recently started sync run for a data type.
func (t *Tx) LastSync(ctx context.Context, dataType string) (model.SyncLogEntry, bool, error) {
	var e model.SyncLogEntry
	var status, started string
	var finished sql.NullString
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, data_type, provider, status, message, started_at, finished_at FROM data_sync_log
		 WHERE data_type = ? ORDER BY started_at DESC, id DESC LIMIT 1`, dataType).
		Scan(&e.ID, &e.DataType, &e.Provider, &status, &e.Message, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SyncLogEntry{}, false, nil
	}
	if err != nil {
		return model.SyncLogEntry{}, false, fmt.Errorf("reading sync log: %w", err)
	}
	e.Status = model.SyncStatus(status)
	if e.StartedAt, err = parseTimestamp(started); err != nil {
		return model.SyncLogEntry{}, false, err
	}
	if finished.Valid {
		if e.FinishedAt, err = parseTimestamp(finished.String); err != nil {
			return model.SyncLogEntry{}, false, err
		}
	}
	return e, true, nil
}
