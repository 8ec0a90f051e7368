// Package journal is the ledger engine: it validates and posts balanced
// entries and derives balances and reports from them.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cleared-dev/homebook/internal/accounts"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// RateSource resolves the latest conversion rate inside a transaction.
// A zero asOf means no upper bound.
type RateSource interface {
	LatestTx(ctx context.Context, tx *store.Tx, base, quote string, asOf time.Time) (model.FxRate, bool, error)
}

// Options configures a Service.
type Options struct {
	// BaseCurrency is the book's reporting currency. Empty means KRW.
	BaseCurrency string
	// CashGroups selects the household groups MonthlyCashflow counts as cash.
	// Empty means Cash and Bank.
	CashGroups []accounts.Group
}

// Service provides posting and reporting over the journal.
type Service struct {
	store      *store.Store
	rates      RateSource
	base       string
	cashGroups []accounts.Group
	log        *slog.Logger
	now        func() time.Time
}

// NewService creates a journal Service. A nil logger means slog.Default().
func NewService(st *store.Store, rates RateSource, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.ToUpper(opts.BaseCurrency)
	if base == "" {
		base = model.DefaultCurrency
	}
	groups := opts.CashGroups
	if len(groups) == 0 {
		groups = []accounts.Group{accounts.GroupCash, accounts.GroupBank}
	}
	return &Service{store: st, rates: rates, base: base, cashGroups: groups, log: logger, now: time.Now}
}

// BaseCurrency returns the currency balances are kept in.
func (s *Service) BaseCurrency() string {
	return s.base
}

// Store returns the underlying store so callers can compose PostTx with
// their own writes in one transaction.
func (s *Service) Store() *store.Store {
	return s.store
}

// PostParams describes an entry to post.
type PostParams struct {
	Date        time.Time
	Description string
	Source      model.Source // empty = manual
	Lines       []model.Line
}

// Post validates and writes an entry in its own transaction. Nothing is
// written when validation fails.
func (s *Service) Post(ctx context.Context, p PostParams) (model.Entry, error) {
	var e model.Entry
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		e, err = s.PostTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return model.Entry{}, err
	}
	return e, nil
}

// PostTx validates and writes an entry inside tx. Account checks read through
// tx, so a concurrent change to an account's posting flag is serialized with
// the write.
func (s *Service) PostTx(ctx context.Context, tx *store.Tx, p PostParams) (model.Entry, error) {
	lines := make([]model.Line, len(p.Lines))
	copy(lines, p.Lines)
	for i := range lines {
		if lines[i].Native != nil {
			n := *lines[i].Native
			n.Currency = strings.ToUpper(strings.TrimSpace(n.Currency))
			lines[i].Native = &n
		}
	}

	if err := ValidateLines(lines); err != nil {
		return model.Entry{}, fmt.Errorf("posting %q: %w", p.Description, err)
	}
	if err := ValidateAccounts(ctx, tx, lines); err != nil {
		return model.Entry{}, fmt.Errorf("posting %q: %w", p.Description, err)
	}

	source := p.Source
	if source == "" {
		source = model.SourceManual
	}
	e := model.Entry{
		Date:        model.Day(p.Date),
		Description: p.Description,
		Source:      source,
		CreatedAt:   s.now(),
		Lines:       lines,
	}
	if err := tx.InsertEntry(ctx, &e, s.base); err != nil {
		return model.Entry{}, fmt.Errorf("posting %q: %w", p.Description, err)
	}
	s.log.Info("posted journal entry", "entry", e.ID, "date", e.Date.Format(model.DateFormat),
		"source", e.Source, "lines", len(e.Lines))
	return e, nil
}

// GetEntry returns a posted entry with its lines.
func (s *Service) GetEntry(ctx context.Context, entryID int64) (model.Entry, error) {
	var e model.Entry
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		e, err = tx.GetEntry(ctx, entryID)
		return err
	})
	return e, err
}

// DeleteEntry removes a whole entry. Entries are never edited in place.
func (s *Service) DeleteEntry(ctx context.Context, entryID int64) error {
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		return tx.DeleteEntry(ctx, entryID)
	})
	if err != nil {
		return fmt.Errorf("deleting entry %d: %w", entryID, err)
	}
	s.log.Info("deleted journal entry", "entry", entryID)
	return nil
}

// Lines returns posted lines matching f.
func (s *Service) Lines(ctx context.Context, f store.LineFilter) ([]model.PostedLine, error) {
	var lines []model.PostedLine
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		lines, err = tx.PostedLines(ctx, f)
		return err
	})
	return lines, err
}
