package valuation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/fx"
	"github.com/cleared-dev/homebook/internal/journal"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// AccountReconciliation compares one linked account's book balance with the
// valuations of the assets under it.
type AccountReconciliation struct {
	AccountID        int64
	AccountName      string
	Book             decimal.Decimal
	Valuation        decimal.Decimal
	Delta            decimal.Decimal // Valuation - Book
	AssetCount       int
	ValuedCount      int
	MissingValuation []int64 // asset ids with no valuation on file
	MissingRates     []model.CurrencyPair
}

// Reconciliation is the result of Reconcile. Figures are in BaseCurrency.
type Reconciliation struct {
	AsOf           time.Time
	BaseCurrency   string
	Items          []AccountReconciliation
	TotalBook      decimal.Decimal
	TotalValuation decimal.Decimal
	TotalDelta     decimal.Decimal
	MissingRates   []model.CurrencyPair
}

// Reconcile values every held asset at its latest valuation on or before
// asOf (zero = no cutoff), converts it at the latest rate on file and
// compares the total per linked account with the ledger. An asset whose
// currency has no rate is left out of the valuation total and its pair is
// reported.
func (s *Service) Reconcile(ctx context.Context, asOf time.Time) (Reconciliation, error) {
	if !asOf.IsZero() {
		asOf = model.Day(asOf)
	}
	base := s.ledger.BaseCurrency()
	rec := Reconciliation{AsOf: asOf, BaseCurrency: base}

	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		assets, err := tx.ListAssets(ctx, false)
		if err != nil {
			return err
		}
		latest, err := latestTx(ctx, tx, asOf)
		if err != nil {
			return err
		}
		balances, err := journal.AccountBalancesTx(ctx, tx, asOf)
		if err != nil {
			return err
		}

		items := map[int64]*AccountReconciliation{}
		missing := map[model.CurrencyPair]bool{}
		for _, a := range assets {
			item, ok := items[a.LinkedAccountID]
			if !ok {
				acct, err := tx.GetAccount(ctx, a.LinkedAccountID)
				if err != nil {
					return err
				}
				item = &AccountReconciliation{
					AccountID:   acct.ID,
					AccountName: acct.Name,
					Book:        balances[acct.ID],
				}
				items[acct.ID] = item
			}
			item.AssetCount++

			v, ok := latest[a.ID]
			if !ok {
				item.MissingValuation = append(item.MissingValuation, a.ID)
				continue
			}
			item.ValuedCount++

			r, ok, err := s.rates.LatestTx(ctx, tx, base, v.Currency, time.Time{})
			if err != nil {
				return err
			}
			if !ok {
				pair := model.CurrencyPair{Base: base, Quote: v.Currency}
				if !containsPair(item.MissingRates, pair) {
					item.MissingRates = append(item.MissingRates, pair)
				}
				missing[pair] = true
				s.log.Warn("no fx rate for valuation", "asset", a.ID, "pair", pair.String())
				continue
			}
			item.Valuation = item.Valuation.Add(fx.ToBase(v.ValueNative, r.Rate))
		}

		for _, item := range items {
			item.Delta = item.Valuation.Sub(item.Book)
			rec.Items = append(rec.Items, *item)
			rec.TotalBook = rec.TotalBook.Add(item.Book)
			rec.TotalValuation = rec.TotalValuation.Add(item.Valuation)
		}
		sort.Slice(rec.Items, func(i, j int) bool { return rec.Items[i].AccountID < rec.Items[j].AccountID })
		rec.TotalDelta = rec.TotalValuation.Sub(rec.TotalBook)
		rec.MissingRates = sortedPairs(missing)
		return nil
	})
	if err != nil {
		return Reconciliation{}, fmt.Errorf("reconciling valuations: %w", err)
	}
	return rec, nil
}

func containsPair(pairs []model.CurrencyPair, p model.CurrencyPair) bool {
	for _, q := range pairs {
		if q == p {
			return true
		}
	}
	return false
}

func sortedPairs(set map[model.CurrencyPair]bool) []model.CurrencyPair {
	out := make([]model.CurrencyPair, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Base != out[j].Base {
			return out[i].Base < out[j].Base
		}
		return out[i].Quote < out[j].Quote
	})
	return out
}
