package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/homebook/internal/model"
)

const subscriptionColumns = `id, name, cadence, interval_count, next_due_date, amount, debit_account_id,
	credit_account_id, memo, auto_post, is_active, last_run_date, created_at, updated_at`

func scanSubscription(r rowScanner) (model.Subscription, error) {
	var s model.Subscription
	var cadence, next, created, updated string
	var lastRun sql.NullString
	if err := r.Scan(&s.ID, &s.Name, &cadence, &s.Interval, &next, &s.Amount, &s.DebitAccountID,
		&s.CreditAccountID, &s.Memo, &s.AutoPost, &s.IsActive, &lastRun, &created, &updated); err != nil {
		return model.Subscription{}, err
	}
	s.Cadence = model.Cadence(cadence)
	var err error
	if s.NextDueDate, err = parseDate(next); err != nil {
		return model.Subscription{}, err
	}
	if s.LastRunDate, err = parseNullDate(lastRun); err != nil {
		return model.Subscription{}, err
	}
	if s.CreatedAt, err = parseTimestamp(created); err != nil {
		return model.Subscription{}, err
	}
	if s.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

// InsertSubscription stores a subscription and returns its id.
func (t *Tx) InsertSubscription(ctx context.Context, s model.Subscription) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO subscriptions (name, cadence, interval_count, next_due_date, amount, debit_account_id,
			credit_account_id, memo, auto_post, is_active, last_run_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, string(s.Cadence), s.Interval, formatDate(s.NextDueDate), s.Amount, s.DebitAccountID,
		s.CreditAccountID, s.Memo, boolInt(s.AutoPost), boolInt(s.IsActive), nullDate(s.LastRunDate),
		formatTimestamp(s.CreatedAt), formatTimestamp(s.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("inserting subscription: %w", err)
	}
	return res.LastInsertId()
}

// GetSubscription returns a subscription by id.
func (t *Tx) GetSubscription(ctx context.Context, id int64) (model.Subscription, error) {
	s, err := scanSubscription(t.tx.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subscription{}, fmt.Errorf("%w: subscription %d", model.ErrNotFound, id)
	}
	if err != nil {
		return model.Subscription{}, fmt.Errorf("getting subscription %d: %w", id, err)
	}
	return s, nil
}

// ListSubscriptions returns subscriptions ordered by next due date then name.
func (t *Tx) ListSubscriptions(ctx context.Context, activeOnly bool) ([]model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY next_due_date, name, id`
	return t.querySubscriptions(ctx, query)
}

// DueSubscriptions returns active subscriptions with next_due_date <= asOf.
func (t *Tx) DueSubscriptions(ctx context.Context, asOf time.Time) ([]model.Subscription, error) {
	return t.querySubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE is_active = 1 AND next_due_date <= ? ORDER BY next_due_date, name, id`, formatDate(asOf))
}

func (t *Tx) querySubscriptions(ctx context.Context, query string, args ...any) ([]model.Subscription, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// UpdateSubscriptionSchedule persists the next due date and last run date.
func (t *Tx) UpdateSubscriptionSchedule(ctx context.Context, id int64, next time.Time, lastRun *time.Time, now time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE subscriptions SET next_due_date = ?, last_run_date = ?, updated_at = ? WHERE id = ?`,
		formatDate(next), nullDate(lastRun), formatTimestamp(now), id)
	if err != nil {
		return fmt.Errorf("updating subscription %d: %w", id, err)
	}
	return nil
}

// SetSubscriptionActive toggles whether a subscription is processed.
func (t *Tx) SetSubscriptionActive(ctx context.Context, id int64, active bool, now time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE subscriptions SET is_active = ?, updated_at = ? WHERE id = ?`, boolInt(active), formatTimestamp(now), id)
	if err != nil {
		return fmt.Errorf("updating subscription %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: subscription %d", model.ErrNotFound, id)
	}
	return nil
}
