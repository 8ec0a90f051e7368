package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/homebook/internal/model"
)

const assetColumns = `id, name, asset_class, linked_account_id, acquisition_date, acquisition_cost, disposal_date, note`

func scanAsset(r rowScanner) (model.Asset, error) {
	var a model.Asset
	var acquired string
	var disposed sql.NullString
	if err := r.Scan(&a.ID, &a.Name, &a.AssetClass, &a.LinkedAccountID, &acquired, &a.AcquisitionCost, &disposed, &a.Note); err != nil {
		return model.Asset{}, err
	}
	var err error
	if a.AcquisitionDate, err = parseDate(acquired); err != nil {
		return model.Asset{}, err
	}
	if a.DisposalDate, err = parseNullDate(disposed); err != nil {
		return model.Asset{}, err
	}
	return a, nil
}

// InsertAsset stores a new asset and returns its id.
func (t *Tx) InsertAsset(ctx context.Context, a model.Asset) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO assets (name, asset_class, linked_account_id, acquisition_date, acquisition_cost, disposal_date, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.AssetClass, a.LinkedAccountID, formatDate(a.AcquisitionDate), a.AcquisitionCost, nullDate(a.DisposalDate), a.Note)
	if err != nil {
		return 0, fmt.Errorf("inserting asset: %w", err)
	}
	return res.LastInsertId()
}

// GetAsset returns an asset by id.
func (t *Tx) GetAsset(ctx context.Context, id int64) (model.Asset, error) {
	a, err := scanAsset(t.tx.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Asset{}, fmt.Errorf("%w: asset %d", model.ErrNotFound, id)
	}
	if err != nil {
		return model.Asset{}, fmt.Errorf("getting asset %d: %w", id, err)
	}
	return a, nil
}

// ListAssets returns assets ordered by id, optionally including disposed ones.
func (t *Tx) ListAssets(ctx context.Context, includeDisposed bool) ([]model.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets`
	if !includeDisposed {
		query += ` WHERE disposal_date IS NULL`
	}
	query += ` ORDER BY id`
	return t.queryAssets(ctx, query)
}

// FirstAssetLinkedTo returns an asset linked to the account, if any.
func (t *Tx) FirstAssetLinkedTo(ctx context.Context, accountID int64) (model.Asset, bool, error) {
	assets, err := t.queryAssets(ctx, `SELECT `+assetColumns+` FROM assets WHERE linked_account_id = ? ORDER BY id LIMIT 1`, accountID)
	if err != nil || len(assets) == 0 {
		return model.Asset{}, false, err
	}
	return assets[0], true, nil
}

func (t *Tx) queryAssets(ctx context.Context, query string, args ...any) ([]model.Asset, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// SetAssetDisposal records the date an asset left the books.
func (t *Tx) SetAssetDisposal(ctx context.Context, id int64, disposed time.Time) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE assets SET disposal_date = ? WHERE id = ?`, formatDate(disposed), id); err != nil {
		return fmt.Errorf("disposing asset %d: %w", id, err)
	}
	return nil
}

// UpsertValuation stores a valuation, overwriting any row for the same asset and date.
func (t *Tx) UpsertValuation(ctx context.Context, v model.AssetValuation) (int64, error) {
	date := formatDate(v.AsOfDate)
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM asset_valuations WHERE asset_id = ? AND as_of_date = ?`, v.AssetID, date).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := t.tx.ExecContext(ctx,
			`INSERT INTO asset_valuations (asset_id, as_of_date, value_native, currency, method, source, note, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.AssetID, date, v.ValueNative, v.Currency, v.Method, v.Source, v.Note, formatTimestamp(v.UpdatedAt))
		if err != nil {
			return 0, fmt.Errorf("inserting valuation: %w", err)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("looking up valuation: %w", err)
	}

	_, err = t.tx.ExecContext(ctx,
		`UPDATE asset_valuations SET value_native = ?, currency = ?, method = ?, source = ?, note = ?, updated_at = ? WHERE id = ?`,
		v.ValueNative, v.Currency, v.Method, v.Source, v.Note, formatTimestamp(v.UpdatedAt), id)
	if err != nil {
		return 0, fmt.Errorf("updating valuation %d: %w", id, err)
	}
	return id, nil
}

// Valuations returns valuation rows with as_of_date <= until (zero = no bound),
// for one asset or, when assetID is 0, for every asset.
func (t *Tx) Valuations(ctx context.Context, assetID int64, until time.Time) ([]model.AssetValuation, error) {
	query := `SELECT id, asset_id, as_of_date, value_native, currency, method, source, note, updated_at
		FROM asset_valuations WHERE 1 = 1`
	var args []any
	if assetID != 0 {
		query += ` AND asset_id = ?`
		args = append(args, assetID)
	}
	if !until.IsZero() {
		query += ` AND as_of_date <= ?`
		args = append(args, formatDate(until))
	}
	query += ` ORDER BY asset_id, as_of_date, id`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying valuations: %w", err)
	}
	defer rows.Close()

	var vals []model.AssetValuation
	for rows.Next() {
		var v model.AssetValuation
		var date, updated string
		if err := rows.Scan(&v.ID, &v.AssetID, &date, &v.ValueNative, &v.Currency, &v.Method, &v.Source, &v.Note, &updated); err != nil {
			return nil, fmt.Errorf("scanning valuation: %w", err)
		}
		if v.AsOfDate, err = parseDate(date); err != nil {
			return nil, err
		}
		if v.UpdatedAt, err = parseTimestamp(updated); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}
