package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/homebook/internal/model"
)

const accountColumns = `id, name, type, parent_id, level, allow_posting, is_system, is_active, currency`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (model.Account, error) {
	var a model.Account
	var typ string
	var parent sql.NullInt64
	if err := r.Scan(&a.ID, &a.Name, &typ, &parent, &a.Level, &a.AllowPosting, &a.IsSystem, &a.IsActive, &a.Currency); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	a.ParentID = parent.Int64
	return a, nil
}

// GetAccount returns an account by id.
func (t *Tx) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("%w: %d", model.ErrAccountNotFound, id)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("getting account %d: %w", id, err)
	}
	return a, nil
}

// ListAccounts returns every account ordered by id.
func (t *Tx) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// FindAccountByName returns the first account with the given name and type.
func (t *Tx) FindAccountByName(ctx context.Context, name string, typ model.AccountType) (model.Account, bool, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE name = ? AND type = ? ORDER BY id LIMIT 1`,
		name, string(typ))
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, fmt.Errorf("finding account %q: %w", name, err)
	}
	return a, true, nil
}

// InsertAccount stores a new account with its preassigned id.
func (t *Tx) InsertAccount(ctx context.Context, a model.Account) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Type), nullID(a.ParentID), a.Level,
		boolInt(a.AllowPosting), boolInt(a.IsSystem), boolInt(a.IsActive), a.Currency)
	if err != nil {
		return fmt.Errorf("inserting account %d: %w", a.ID, err)
	}
	return nil
}

// UpdateAccount rewrites the mutable columns of an account.
func (t *Tx) UpdateAccount(ctx context.Context, a model.Account) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET name = ?, allow_posting = ?, is_active = ?, currency = ? WHERE id = ?`,
		a.Name, boolInt(a.AllowPosting), boolInt(a.IsActive), a.Currency, a.ID)
	if err != nil {
		return fmt.Errorf("updating account %d: %w", a.ID, err)
	}
	return nil
}

// DeleteAccount hard-deletes an account.
func (t *Tx) DeleteAccount(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting account %d: %w", id, err)
	}
	return nil
}

// MaxAccountIDInRange returns the highest id in [lo, hi], or 0 when the range is empty.
func (t *Tx) MaxAccountIDInRange(ctx context.Context, lo, hi int64) (int64, error) {
	var max sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `SELECT MAX(id) FROM accounts WHERE id >= ? AND id <= ?`, lo, hi).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("reading max account id: %w", err)
	}
	return max.Int64, nil
}

// CountChildren returns the number of direct children of an account.
func (t *Tx) CountChildren(ctx context.Context, id int64) (int, error) {
	return t.count(ctx, `SELECT COUNT(*) FROM accounts WHERE parent_id = ?`, id)
}

// CountLinesForAccount returns how many journal lines reference an account.
func (t *Tx) CountLinesForAccount(ctx context.Context, id int64) (int, error) {
	return t.count(ctx, `SELECT COUNT(*) FROM journal_lines WHERE account_id = ?`, id)
}

// CountAccounts returns the size of the chart.
func (t *Tx) CountAccounts(ctx context.Context) (int, error) {
	return t.count(ctx, `SELECT COUNT(*) FROM accounts`)
}

func (t *Tx) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}
