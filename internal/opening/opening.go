// Package opening seeds a book's starting balances with a single entry
// plugged against an opening-equity account.
package opening

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

// DefaultEquityAccounts are the plug account names tried in order.
var DefaultEquityAccounts = []string{"기초순자산(Opening Equity)", "기초순자산", "기초자본(Opening Balance)"}

// Balance is a starting balance for one account.
type Balance struct {
	AccountID int64
	Amount    decimal.Decimal
	Memo      string
}

// CreateParams describes the opening entry.
type CreateParams struct {
	Date        time.Time
	Description string
	Assets      []Balance // posted as debits
	Liabilities []Balance // posted as credits
}

// Service creates and removes the opening-balance entry.
type Service struct {
	ledger      *journal.Service
	equityNames []string
	log         *slog.Logger
}

// NewService creates a Service. Empty equityNames means DefaultEquityAccounts.
func NewService(ledger *journal.Service, equityNames []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(equityNames) == 0 {
		equityNames = DefaultEquityAccounts
	}
	return &Service{ledger: ledger, equityNames: equityNames, log: logger}
}

// Exists reports whether an opening-balance entry has been posted.
func (s *Service) Exists(ctx context.Context) (bool, error) {
	var ids []int64
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		ids, err = tx.EntryIDsBySource(ctx, model.SourceOpeningBalance)
		return err
	})
	return len(ids) > 0, err
}

// Create posts the opening entry. Zero balances are dropped and the
// difference between assets and liabilities is booked to the first equity
// account found by name, so the entry always balances.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Entry, error) {
	var lines []model.Line
	for _, b := range p.Assets {
		if b.Amount.IsNegative() {
			return model.Entry{}, fmt.Errorf("%w: opening balance of account %d", model.ErrNegativeAmount, b.AccountID)
		}
		if b.Amount.IsPositive() {
			lines = append(lines, journal.Debit(b.AccountID, b.Amount, b.Memo))
		}
	}
	for _, b := range p.Liabilities {
		if b.Amount.IsNegative() {
			return model.Entry{}, fmt.Errorf("%w: opening balance of account %d", model.ErrNegativeAmount, b.AccountID)
		}
		if b.Amount.IsPositive() {
			lines = append(lines, journal.Credit(b.AccountID, b.Amount, b.Memo))
		}
	}
	if len(lines) == 0 {
		return model.Entry{}, fmt.Errorf("%w: at least one non-zero opening balance is required", model.ErrTooFewLines)
	}

	description := p.Description
	if description == "" {
		description = "기초잔액 (Opening Balance)"
	}

	var entry model.Entry
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		existing, err := tx.EntryIDsBySource(ctx, model.SourceOpeningBalance)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: opening balance entry %d", model.ErrAlreadyExists, existing[0])
		}

		equity, err := s.findEquity(ctx, tx)
		if err != nil {
			return err
		}

		debit, credit := decimal.Zero, decimal.Zero
		for _, l := range lines {
			debit = debit.Add(l.Debit)
			credit = credit.Add(l.Credit)
		}
		switch gap := debit.Sub(credit); {
		case gap.IsPositive():
			lines = append(lines, journal.Credit(equity.ID, gap, description))
		case gap.IsNegative():
			lines = append(lines, journal.Debit(equity.ID, gap.Neg(), description))
		}

		entry, err = s.ledger.PostTx(ctx, tx, journal.PostParams{
			Date:        p.Date,
			Description: description,
			Source:      model.SourceOpeningBalance,
			Lines:       lines,
		})
		return err
	})
	if err != nil {
		return model.Entry{}, fmt.Errorf("creating opening balance: %w", err)
	}
	s.log.Info("created opening balance", "entry", entry.ID, "lines", len(entry.Lines))
	return entry, nil
}

func (s *Service) findEquity(ctx context.Context, tx *store.Tx) (model.Account, error) {
	for _, name := range s.equityNames {
		a, ok, err := tx.FindAccountByName(ctx, name, model.AccountTypeEquity)
		if err != nil {
			return model.Account{}, err
		}
		if ok {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("%w: tried %q", model.ErrEquityAccountMissing, s.equityNames)
}

// Delete removes any opening-balance entry so the book can be re-initialized.
// It returns how many entries were removed.
func (s *Service) Delete(ctx context.Context) (int, error) {
	var n int
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		ids, err := tx.EntryIDsBySource(ctx, model.SourceOpeningBalance)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.DeleteEntry(ctx, id); err != nil {
				return err
			}
		}
		n = len(ids)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting opening balance: %w", err)
	}
	if n > 0 {
		s.log.Info("deleted opening balance", "entries", n)
	}
	return n, nil
}
