// Package valuation tracks assets and their market valuations and reconciles
// them against the ledger's book balances.
package valuation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/journal"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// Service manages assets, valuations and asset postings.
type Service struct {
	ledger *journal.Service
	rates  journal.RateSource
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a valuation Service. A nil logger means slog.Default().
func NewService(ledger *journal.Service, rates journal.RateSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, rates: rates, log: logger, now: time.Now}
}

func (s *Service) insertAsset(ctx context.Context, tx *store.Tx, a model.Asset) (model.Asset, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return model.Asset{}, fmt.Errorf("asset name is required")
	}
	if a.AcquisitionCost.IsNegative() {
		return model.Asset{}, fmt.Errorf("%w: acquisition cost of %q", model.ErrNegativeAmount, a.Name)
	}
	if a.AssetClass == "" {
		a.AssetClass = "OTHER"
	}
	a.AssetClass = strings.ToUpper(a.AssetClass)
	a.AcquisitionDate = model.Day(a.AcquisitionDate)

	acct, err := tx.GetAccount(ctx, a.LinkedAccountID)
	if err != nil {
		return model.Asset{}, err
	}
	if acct.Type != model.AccountTypeAsset {
		return model.Asset{}, fmt.Errorf("%w: asset %q must link to an asset account, %d is %s",
			model.ErrInvalidParent, a.Name, acct.ID, acct.Type)
	}
	if !acct.AllowPosting {
		return model.Asset{}, fmt.Errorf("%w: %q (%d)", model.ErrPostingToAggregateAccount, acct.Name, acct.ID)
	}
	if a.ID, err = tx.InsertAsset(ctx, a); err != nil {
		return model.Asset{}, err
	}
	return a, nil
}

// CreateAsset registers an asset without touching the ledger.
func (s *Service) CreateAsset(ctx context.Context, a model.Asset) (model.Asset, error) {
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		a, err = s.insertAsset(ctx, tx, a)
		return err
	})
	if err != nil {
		return model.Asset{}, fmt.Errorf("creating asset: %w", err)
	}
	s.log.Info("created asset", "asset", a.ID, "class", a.AssetClass, "account", a.LinkedAccountID)
	return a, nil
}

// GetAsset returns an asset by id.
func (s *Service) GetAsset(ctx context.Context, id int64) (model.Asset, error) {
	var a model.Asset
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		a, err = tx.GetAsset(ctx, id)
		return err
	})
	return a, err
}

// ListAssets returns assets, optionally including disposed ones.
func (s *Service) ListAssets(ctx context.Context, includeDisposed bool) ([]model.Asset, error) {
	var assets []model.Asset
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		assets, err = tx.ListAssets(ctx, includeDisposed)
		return err
	})
	return assets, err
}

// Purchase registers an asset and books its cost from the payment account.
func (s *Service) Purchase(ctx context.Context, a model.Asset, paymentAccountID int64) (model.Asset, model.Entry, error) {
	if !a.AcquisitionCost.IsPositive() {
		return model.Asset{}, model.Entry{}, fmt.Errorf("purchasing asset %q: %w: cost must be positive",
			a.Name, model.ErrInvalidAmount)
	}
	var entry model.Entry
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		if a, err = s.insertAsset(ctx, tx, a); err != nil {
			return err
		}
		desc := "자산 매입: " + a.Name
		entry, err = s.ledger.PostTx(ctx, tx, journal.PostParams{
			Date:        a.AcquisitionDate,
			Description: desc,
			Source:      model.SourceAssetPurchase,
			Lines: []model.Line{
				journal.Debit(a.LinkedAccountID, a.AcquisitionCost, desc),
				journal.Credit(paymentAccountID, a.AcquisitionCost, desc),
			},
		})
		return err
	})
	if err != nil {
		return model.Asset{}, model.Entry{}, fmt.Errorf("purchasing asset %q: %w", a.Name, err)
	}
	s.log.Info("purchased asset", "asset", a.ID, "entry", entry.ID, "cost", a.AcquisitionCost)
	return a, entry, nil
}

// DisposeParams describes a sale or write-off.
type DisposeParams struct {
	AssetID           int64
	Date              time.Time // zero = today
	SalePrice         decimal.Decimal
	BookValue         decimal.Decimal // zero = acquisition cost
	DepositAccountID  int64
	GainLossAccountID int64
}

// Dispose marks an asset disposed and books the sale: the deposit account
// receives the price, the linked account gives up the book value, and the
// difference lands on the gain/loss account.
func (s *Service) Dispose(ctx context.Context, p DisposeParams) (model.Entry, error) {
	if p.SalePrice.IsNegative() || p.BookValue.IsNegative() {
		return model.Entry{}, fmt.Errorf("disposing asset %d: %w", p.AssetID, model.ErrNegativeAmount)
	}
	if p.Date.IsZero() {
		p.Date = s.now()
	}
	var entry model.Entry
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		a, err := tx.GetAsset(ctx, p.AssetID)
		if err != nil {
			return err
		}
		if a.Disposed() {
			return fmt.Errorf("%w: asset %d was disposed on %s", model.ErrAlreadyExists, a.ID,
				a.DisposalDate.Format(model.DateFormat))
		}
		book := p.BookValue
		if book.IsZero() {
			book = a.AcquisitionCost
		}
		date := model.Day(p.Date)
		if err := tx.SetAssetDisposal(ctx, a.ID, date); err != nil {
			return err
		}

		desc := "자산 매각: " + a.Name
		var lines []model.Line
		if p.SalePrice.IsPositive() {
			lines = append(lines, journal.Debit(p.DepositAccountID, p.SalePrice, desc))
		}
		if book.IsPositive() {
			lines = append(lines, journal.Credit(a.LinkedAccountID, book, desc))
		}
		switch gain := p.SalePrice.Sub(book); {
		case gain.IsPositive():
			lines = append(lines, journal.Credit(p.GainLossAccountID, gain, "처분 이익: "+a.Name))
		case gain.IsNegative():
			lines = append(lines, journal.Debit(p.GainLossAccountID, gain.Neg(), "처분 손실: "+a.Name))
		}

		entry, err = s.ledger.PostTx(ctx, tx, journal.PostParams{
			Date:        date,
			Description: desc,
			Source:      model.SourceAssetDisposal,
			Lines:       lines,
		})
		return err
	})
	if err != nil {
		return model.Entry{}, fmt.Errorf("disposing asset %d: %w", p.AssetID, err)
	}
	s.log.Info("disposed asset", "asset", p.AssetID, "entry", entry.ID)
	return entry, nil
}
