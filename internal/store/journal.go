package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/model"
)

// InsertEntry writes an entry header, its lines and an FX snapshot for every
// foreign-currency line. IDs are filled in on e.
func (t *Tx) InsertEntry(ctx context.Context, e *model.Entry, baseCurrency string) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO journal_entries (entry_date, description, source, created_at) VALUES (?, ?, ?, ?)`,
		formatDate(e.Date), e.Description, string(e.Source), formatTimestamp(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading entry id: %w", err)
	}

	for i := range e.Lines {
		line := &e.Lines[i]
		line.EntryID = e.ID

		var nativeAmount, fxRate decimal.NullDecimal
		var nativeCurrency sql.NullString
		if line.Native != nil {
			nativeAmount = decimal.NewNullDecimal(line.Native.Amount)
			fxRate = decimal.NewNullDecimal(line.Native.Rate)
			nativeCurrency = sql.NullString{String: line.Native.Currency, Valid: true}
		}

		res, err := t.tx.ExecContext(ctx,
			`INSERT INTO journal_lines (entry_id, line_no, account_id, debit, credit, memo, native_amount, native_currency, fx_rate)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, i+1, line.AccountID, line.Debit, line.Credit, line.Memo, nativeAmount, nativeCurrency, fxRate)
		if err != nil {
			return fmt.Errorf("inserting line %d: %w", i+1, err)
		}
		line.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading line id: %w", err)
		}

		if line.Native == nil {
			continue
		}
		_, err = t.tx.ExecContext(ctx,
			`INSERT INTO journal_line_fx (line_id, native_currency, native_amount, base_currency, fx_rate, base_amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			line.ID, line.Native.Currency, line.Native.Amount, baseCurrency, line.Native.Rate, line.Amount())
		if err != nil {
			return fmt.Errorf("inserting fx snapshot for line %d: %w", i+1, err)
		}
	}
	return nil
}

// GetEntry returns an entry and its lines in posting order.
func (t *Tx) GetEntry(ctx context.Context, id int64) (model.Entry, error) {
	var e model.Entry
	var date, created, source string
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, entry_date, description, source, created_at FROM journal_entries WHERE id = ?`, id).
		Scan(&e.ID, &date, &e.Description, &source, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, fmt.Errorf("%w: journal entry %d", model.ErrNotFound, id)
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("getting entry %d: %w", id, err)
	}
	e.Source = model.Source(source)
	if e.Date, err = parseDate(date); err != nil {
		return model.Entry{}, err
	}
	if e.CreatedAt, err = parseTimestamp(created); err != nil {
		return model.Entry{}, err
	}

	lines, err := t.PostedLines(ctx, LineFilter{EntryID: id})
	if err != nil {
		return model.Entry{}, err
	}
	for _, pl := range lines {
		e.Lines = append(e.Lines, pl.Line)
	}
	return e, nil
}

// DeleteEntry removes an entry; its lines and snapshots cascade.
func (t *Tx) DeleteEntry(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entry %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting entry %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: journal entry %d", model.ErrNotFound, id)
	}
	return nil
}

// EntryIDsBySource returns the ids of all entries with the given provenance.
func (t *Tx) EntryIDsBySource(ctx context.Context, source model.Source) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id FROM journal_entries WHERE source = ? ORDER BY id`, string(source))
	if err != nil {
		return nil, fmt.Errorf("listing entries by source: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning entry id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LineFilter narrows PostedLines. Zero values mean "no bound".
type LineFilter struct {
	From       time.Time // entry_date >= From
	To         time.Time // entry_date <= To
	Before     time.Time // entry_date < Before
	EntryID    int64
	AccountIDs []int64
}

// PostedLines returns stored lines joined with their entry header and FX
// snapshot, ordered by entry date, entry and line number. Date bounds use the
// entry_date index.
func (t *Tx) PostedLines(ctx context.Context, f LineFilter) ([]model.PostedLine, error) {
	var where []string
	var args []any
	if !f.From.IsZero() {
		where = append(where, "je.entry_date >= ?")
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "je.entry_date <= ?")
		args = append(args, formatDate(f.To))
	}
	if !f.Before.IsZero() {
		where = append(where, "je.entry_date < ?")
		args = append(args, formatDate(f.Before))
	}
	if f.EntryID != 0 {
		where = append(where, "je.id = ?")
		args = append(args, f.EntryID)
	}
	if len(f.AccountIDs) > 0 {
		where = append(where, "jl.account_id IN (?"+strings.Repeat(", ?", len(f.AccountIDs)-1)+")")
		for _, id := range f.AccountIDs {
			args = append(args, id)
		}
	}

	query := `
		SELECT jl.id, jl.entry_id, jl.account_id, jl.debit, jl.credit, jl.memo,
		       jl.native_amount, jl.native_currency, jl.fx_rate,
		       je.entry_date, je.description, je.source,
		       fx.native_currency, fx.native_amount, fx.base_currency, fx.fx_rate, fx.base_amount
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.entry_id
		LEFT JOIN journal_line_fx fx ON fx.line_id = jl.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY je.entry_date, je.id, jl.line_no"

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lines: %w", err)
	}
	defer rows.Close()

	var lines []model.PostedLine
	for rows.Next() {
		var pl model.PostedLine
		var nativeAmount, fxRate decimal.NullDecimal
		var nativeCurrency sql.NullString
		var date, source string
		var snapCur, snapBase sql.NullString
		var snapNative, snapRate, snapBaseAmount decimal.NullDecimal
		if err := rows.Scan(
			&pl.ID, &pl.EntryID, &pl.AccountID, &pl.Debit, &pl.Credit, &pl.Memo,
			&nativeAmount, &nativeCurrency, &fxRate,
			&date, &pl.Description, &source,
			&snapCur, &snapNative, &snapBase, &snapRate, &snapBaseAmount,
		); err != nil {
			return nil, fmt.Errorf("scanning line: %w", err)
		}
		if pl.EntryDate, err = parseDate(date); err != nil {
			return nil, err
		}
		pl.Source = model.Source(source)
		if nativeAmount.Valid && nativeCurrency.Valid && fxRate.Valid {
			pl.Native = &model.NativeAmount{
				Amount:   nativeAmount.Decimal,
				Currency: nativeCurrency.String,
				Rate:     fxRate.Decimal,
			}
		}
		if snapCur.Valid {
			pl.Snapshot = &model.FxSnapshot{
				LineID:         pl.ID,
				NativeCurrency: snapCur.String,
				NativeAmount:   snapNative.Decimal,
				BaseCurrency:   snapBase.String,
				Rate:           snapRate.Decimal,
				BaseAmount:     snapBaseAmount.Decimal,
			}
		}
		lines = append(lines, pl)
	}
	return lines, rows.Err()
}
