package loan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/journal"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// Service persists loans and their schedules and posts installment payments
// through the ledger.
type Service struct {
	ledger *journal.Service
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a loan Service. A nil logger means slog.Default().
func NewService(ledger *journal.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, log: logger, now: time.Now}
}

// Create stores a loan and generates its schedule in one transaction.
func (s *Service) Create(ctx context.Context, l model.Loan) (model.Loan, []model.LoanScheduleRow, error) {
	if l.Name == "" {
		return model.Loan{}, nil, fmt.Errorf("%w: name is required", model.ErrInvalidLoan)
	}
	if l.PaymentDay == 0 {
		l.PaymentDay = 1
	}
	l.StartDate = model.Day(l.StartDate)
	rows, err := GenerateSchedule(TermsOf(l))
	if err != nil {
		return model.Loan{}, nil, err
	}

	err = s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		acct, err := tx.GetAccount(ctx, l.LiabilityAccountID)
		if err != nil {
			return err
		}
		if acct.Type != model.AccountTypeLiability {
			return fmt.Errorf("%w: account %d is %s, not a liability", model.ErrInvalidLoan, acct.ID, acct.Type)
		}
		if l.AssetID != 0 {
			if _, err := tx.GetAsset(ctx, l.AssetID); err != nil {
				return err
			}
		}
		l.CreatedAt = s.now()
		if l.ID, err = tx.InsertLoan(ctx, l); err != nil {
			return err
		}
		return tx.ReplaceSchedule(ctx, l.ID, rows)
	})
	if err != nil {
		return model.Loan{}, nil, fmt.Errorf("creating loan %q: %w", l.Name, err)
	}
	s.log.Info("created loan", "loan", l.ID, "method", l.Method, "installments", len(rows))
	return l, rows, nil
}

// Regenerate rebuilds a loan's schedule from its stored terms. Loans with a
// paid installment keep their schedule.
func (s *Service) Regenerate(ctx context.Context, loanID int64) ([]model.LoanScheduleRow, error) {
	var rows []model.LoanScheduleRow
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		l, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		current, err := tx.Schedule(ctx, loanID)
		if err != nil {
			return err
		}
		for _, r := range current {
			if r.Status == model.InstallmentPaid {
				return fmt.Errorf("%w: installment %d is already paid", model.ErrInvalidLoan, r.Installment)
			}
		}
		if rows, err = GenerateSchedule(TermsOf(l)); err != nil {
			return err
		}
		return tx.ReplaceSchedule(ctx, loanID, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("regenerating schedule for loan %d: %w", loanID, err)
	}
	s.log.Info("regenerated loan schedule", "loan", loanID, "installments", len(rows))
	return rows, nil
}

// Get returns a loan by id.
func (s *Service) Get(ctx context.Context, loanID int64) (model.Loan, error) {
	var l model.Loan
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		l, err = tx.GetLoan(ctx, loanID)
		return err
	})
	return l, err
}

// List returns every loan.
func (s *Service) List(ctx context.Context) ([]model.Loan, error) {
	var loans []model.Loan
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		loans, err = tx.ListLoans(ctx)
		return err
	})
	return loans, err
}

// Schedule returns the stored schedule of a loan.
func (s *Service) Schedule(ctx context.Context, loanID int64) ([]model.LoanScheduleRow, error) {
	var rows []model.LoanScheduleRow
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetLoan(ctx, loanID); err != nil {
			return err
		}
		var err error
		rows, err = tx.Schedule(ctx, loanID)
		return err
	})
	return rows, err
}

// Summary aggregates a loan's schedule.
type Summary struct {
	Loan               model.Loan
	TotalInterest      decimal.Decimal
	TotalRepayment     decimal.Decimal
	PaidPrincipal      decimal.Decimal
	RemainingPrincipal decimal.Decimal
	PaidInstallments   int
	Next               *model.LoanScheduleRow // nil once fully paid
	Schedule           []model.LoanScheduleRow
}

// Summary returns totals and the next pending installment of a loan.
func (s *Service) Summary(ctx context.Context, loanID int64) (Summary, error) {
	var sum Summary
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		if sum.Loan, err = tx.GetLoan(ctx, loanID); err != nil {
			return err
		}
		sum.Schedule, err = tx.Schedule(ctx, loanID)
		return err
	})
	if err != nil {
		return Summary{}, err
	}

	for i, r := range sum.Schedule {
		sum.TotalInterest = sum.TotalInterest.Add(r.Interest)
		if r.Status == model.InstallmentPaid {
			sum.PaidPrincipal = sum.PaidPrincipal.Add(r.Principal)
			sum.PaidInstallments++
		} else if sum.Next == nil {
			sum.Next = &sum.Schedule[i]
		}
	}
	sum.TotalRepayment = sum.Loan.Principal.Add(sum.TotalInterest)
	sum.RemainingPrincipal = sum.Loan.Principal.Sub(sum.PaidPrincipal)
	return sum, nil
}

// PayParams selects an installment and the accounts that settle it.
type PayParams struct {
	LoanID            int64
	Installment       int // 0 = next pending
	PaymentAccountID  int64
	InterestAccountID int64
	Date              time.Time // zero = the installment's due date
}

// PayInstallment posts an installment to the ledger and marks it paid. The
// liability is debited the principal, the interest account the interest, and
// the payment account is credited the total.
func (s *Service) PayInstallment(ctx context.Context, p PayParams) (model.Entry, model.LoanScheduleRow, error) {
	var (
		entry model.Entry
		paid  model.LoanScheduleRow
	)
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		l, err := tx.GetLoan(ctx, p.LoanID)
		if err != nil {
			return err
		}
		rows, err := tx.Schedule(ctx, p.LoanID)
		if err != nil {
			return err
		}
		idx := -1
		for i, r := range rows {
			if (p.Installment == 0 && r.Status == model.InstallmentPending) || r.Installment == p.Installment {
				idx = i
				break
			}
		}
		if idx < 0 {
			if p.Installment == 0 {
				return fmt.Errorf("%w: loan %d has no pending installment", model.ErrNotFound, l.ID)
			}
			return fmt.Errorf("%w: installment %d of loan %d", model.ErrNotFound, p.Installment, l.ID)
		}
		paid = rows[idx]
		if paid.Status == model.InstallmentPaid {
			return fmt.Errorf("%w: installment %d of loan %d is already paid", model.ErrAlreadyExists, paid.Installment, l.ID)
		}

		memo := fmt.Sprintf("%s #%d", l.Name, paid.Installment)
		var lines []model.Line
		if paid.Principal.IsPositive() {
			lines = append(lines, journal.Debit(l.LiabilityAccountID, paid.Principal, memo))
		}
		if paid.Interest.IsPositive() {
			lines = append(lines, journal.Debit(p.InterestAccountID, paid.Interest, memo))
		}
		lines = append(lines, journal.Credit(p.PaymentAccountID, paid.Total, memo))

		date := p.Date
		if date.IsZero() {
			date = paid.DueDate
		}
		entry, err = s.ledger.PostTx(ctx, tx, journal.PostParams{
			Date:        date,
			Description: fmt.Sprintf("%s 상환 (installment %d/%d)", l.Name, paid.Installment, len(rows)),
			Source:      model.SourceLoanPayment,
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		if err := tx.MarkInstallmentPaid(ctx, paid.ID, entry.ID); err != nil {
			return err
		}
		paid.Status = model.InstallmentPaid
		paid.JournalEntryID = entry.ID
		return nil
	})
	if err != nil {
		return model.Entry{}, model.LoanScheduleRow{}, fmt.Errorf("paying loan %d: %w", p.LoanID, err)
	}
	s.log.Info("paid loan installment", "loan", p.LoanID, "installment", paid.Installment, "entry", entry.ID)
	return entry, paid, nil
}
