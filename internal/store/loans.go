package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/homebook/internal/model"
)

const loanColumns = `id, name, liability_account_id, asset_id, principal_amount, interest_rate, term_months,
	start_date, repayment_method, payment_day, grace_period_months, note, created_at`

func scanLoan(r rowScanner) (model.Loan, error) {
	var l model.Loan
	var asset sql.NullInt64
	var start, method, created string
	if err := r.Scan(&l.ID, &l.Name, &l.LiabilityAccountID, &asset, &l.Principal, &l.AnnualRate, &l.TermMonths,
		&start, &method, &l.PaymentDay, &l.GracePeriodMonths, &l.Note, &created); err != nil {
		return model.Loan{}, err
	}
	l.AssetID = asset.Int64
	l.Method = model.RepaymentMethod(method)
	var err error
	if l.StartDate, err = parseDate(start); err != nil {
		return model.Loan{}, err
	}
	if l.CreatedAt, err = parseTimestamp(created); err != nil {
		return model.Loan{}, err
	}
	return l, nil
}

// InsertLoan stores loan terms and returns the new id.
func (t *Tx) InsertLoan(ctx context.Context, l model.Loan) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO loans (name, liability_account_id, asset_id, principal_amount, interest_rate, term_months,
			start_date, repayment_method, payment_day, grace_period_months, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Name, l.LiabilityAccountID, nullID(l.AssetID), l.Principal, l.AnnualRate, l.TermMonths,
		formatDate(l.StartDate), string(l.Method), l.PaymentDay, l.GracePeriodMonths, l.Note, formatTimestamp(l.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("inserting loan: %w", err)
	}
	return res.LastInsertId()
}

// GetLoan returns a loan by id.
func (t *Tx) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	l, err := scanLoan(t.tx.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Loan{}, fmt.Errorf("%w: loan %d", model.ErrNotFound, id)
	}
	if err != nil {
		return model.Loan{}, fmt.Errorf("getting loan %d: %w", id, err)
	}
	return l, nil
}

// ListLoans returns every loan ordered by id.
func (t *Tx) ListLoans(ctx context.Context) ([]model.Loan, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+loanColumns+` FROM loans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// ReplaceSchedule drops any stored schedule for the loan and writes rows in its place.
func (t *Tx) ReplaceSchedule(ctx context.Context, loanID int64, rows []model.LoanScheduleRow) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM loan_schedules WHERE loan_id = ?`, loanID); err != nil {
		return fmt.Errorf("clearing schedule for loan %d: %w", loanID, err)
	}
	for i := range rows {
		r := &rows[i]
		status := r.Status
		if status == "" {
			status = model.InstallmentPending
		}
		res, err := t.tx.ExecContext(ctx,
			`INSERT INTO loan_schedules (loan_id, installment_number, due_date, principal_payment, interest_payment,
				total_payment, remaining_balance, status, journal_entry_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			loanID, r.Installment, formatDate(r.DueDate), r.Principal, r.Interest, r.Total, r.RemainingBalance,
			string(status), nullID(r.JournalEntryID))
		if err != nil {
			return fmt.Errorf("inserting installment %d: %w", r.Installment, err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		r.LoanID = loanID
		r.Status = status
	}
	return nil
}

// Schedule returns the stored schedule of a loan ordered by installment.
func (t *Tx) Schedule(ctx context.Context, loanID int64) ([]model.LoanScheduleRow, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, loan_id, installment_number, due_date, principal_payment, interest_payment, total_payment,
			remaining_balance, status, journal_entry_id
		 FROM loan_schedules WHERE loan_id = ? ORDER BY installment_number`, loanID)
	if err != nil {
		return nil, fmt.Errorf("querying schedule for loan %d: %w", loanID, err)
	}
	defer rows.Close()

	var out []model.LoanScheduleRow
	for rows.Next() {
		var r model.LoanScheduleRow
		var due, status string
		var entry sql.NullInt64
		if err := rows.Scan(&r.ID, &r.LoanID, &r.Installment, &due, &r.Principal, &r.Interest, &r.Total,
			&r.RemainingBalance, &status, &entry); err != nil {
			return nil, fmt.Errorf("scanning installment: %w", err)
		}
		if r.DueDate, err = parseDate(due); err != nil {
			return nil, err
		}
		r.Status = model.InstallmentStatus(status)
		r.JournalEntryID = entry.Int64
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkInstallmentPaid links an installment to the entry that paid it.
func (t *Tx) MarkInstallmentPaid(ctx context.Context, rowID, entryID int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE loan_schedules SET status = ?, journal_entry_id = ? WHERE id = ?`,
		string(model.InstallmentPaid), entryID, rowID)
	if err != nil {
		return fmt.Errorf("marking installment %d paid: %w", rowID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: installment %d", model.ErrNotFound, rowID)
	}
	return nil
}
