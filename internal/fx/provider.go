package fx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// RateProvider is an external source of conversion rates.
type RateProvider interface {
	Name() string
	LatestRate(ctx context.Context, base, quote string) (decimal.Decimal, time.Time, bool, error)
}

// PriceProvider is an external source of market prices.
type PriceProvider interface {
	Name() string
	LatestPrice(ctx context.Context, symbol, market string) (model.PriceQuote, bool, error)
}

// Instrument names a symbol on a market.
type Instrument struct {
	Symbol string
	Market string
}

// SyncResult summarizes one provider run.
type SyncResult struct {
	Provider string
	Saved    int
	Missing  []string
}

// SyncRates pulls the latest rate for each pair from p and stores it. The run
// is recorded in the sync log as success or failed. Pairs the provider has no
// rate for are reported, not treated as failures.
func (s *Service) SyncRates(ctx context.Context, p RateProvider, pairs []model.CurrencyPair) (SyncResult, error) {
	res := SyncResult{Provider: p.Name()}
	err := s.runSync(ctx, "fx", p.Name(), func() (string, error) {
		for _, pair := range pairs {
			rate, asOf, ok, err := p.LatestRate(ctx, pair.Base, pair.Quote)
			if err != nil {
				return "", fmt.Errorf("fetching %s: %w", pair, err)
			}
			if !ok {
				res.Missing = append(res.Missing, pair.String())
				continue
			}
			if _, err := s.Save(ctx, model.FxRate{Base: pair.Base, Quote: pair.Quote, Rate: rate, AsOf: asOf, Source: p.Name()}); err != nil {
				return "", err
			}
			res.Saved++
		}
		return fmt.Sprintf("saved %d rates, %d missing", res.Saved, len(res.Missing)), nil
	})
	return res, err
}

// SyncPrices pulls the latest price for each instrument from p and stores it.
func (s *Service) SyncPrices(ctx context.Context, p PriceProvider, instruments []Instrument) (SyncResult, error) {
	res := SyncResult{Provider: p.Name()}
	err := s.runSync(ctx, "price", p.Name(), func() (string, error) {
		for _, in := range instruments {
			q, ok, err := p.LatestPrice(ctx, in.Symbol, in.Market)
			if err != nil {
				return "", fmt.Errorf("fetching %s/%s: %w", in.Symbol, in.Market, err)
			}
			if !ok {
				res.Missing = append(res.Missing, in.Symbol+"/"+in.Market)
				continue
			}
			q.Symbol, q.Market = in.Symbol, in.Market
			if q.Source == "" {
				q.Source = p.Name()
			}
			if err := s.SavePrice(ctx, q); err != nil {
				return "", err
			}
			res.Saved++
		}
		return fmt.Sprintf("saved %d prices, %d missing", res.Saved, len(res.Missing)), nil
	})
	return res, err
}

func (s *Service) runSync(ctx context.Context, dataType, provider string, fn func() (string, error)) error {
	var logID int64
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		logID, err = tx.StartSync(ctx, dataType, provider, s.now())
		return err
	})
	if err != nil {
		return err
	}

	msg, runErr := fn()
	status := model.SyncSuccess
	if runErr != nil {
		status, msg = model.SyncFailed, runErr.Error()
	}
	err = s.store.Tx(ctx, func(tx *store.Tx) error {
		return tx.FinishSync(ctx, logID, status, msg, s.now())
	})
	if err != nil {
		err = fmt.Errorf("recording %s sync %d: %w", dataType, logID, err)
	}
	if runErr != nil {
		s.log.Warn("provider sync failed", "type", dataType, "provider", provider, "err", runErr)
		return errors.Join(fmt.Errorf("syncing %s from %s: %w", dataType, provider, runErr), err)
	}
	s.log.Info("provider sync finished", "type", dataType, "provider", provider, "result", msg)
	return err
}

// LastSync returns the most recent sync run for a data type ("fx" or "price").
func (s *Service) LastSync(ctx context.Context, dataType string) (model.SyncLogEntry, bool, error) {
	var e model.SyncLogEntry
	var ok bool
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		e, ok, err = tx.LastSync(ctx, dataType)
		return err
	})
	return e, ok, err
}

// ManualProvider serves rates and prices set in memory, e.g. from a file the
// user maintains. It is safe for concurrent use.
type ManualProvider struct {
	mu     sync.Mutex
	rates  map[string]model.FxRate
	prices map[string]model.PriceQuote
}

// NewManualProvider creates an empty ManualProvider.
func NewManualProvider() *ManualProvider {
	return &ManualProvider{
		rates:  make(map[string]model.FxRate),
		prices: make(map[string]model.PriceQuote),
	}
}

// Name implements RateProvider and PriceProvider.
func (m *ManualProvider) Name() string { return SourceManual }

// SetRate records the rate returned for a pair.
func (m *ManualProvider) SetRate(base, quote string, rate decimal.Decimal, asOf time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[cacheKey(strings.ToUpper(base), strings.ToUpper(quote))] = model.FxRate{Base: base, Quote: quote, Rate: rate, AsOf: asOf}
}

// SetPrice records the quote returned for a symbol.
func (m *ManualProvider) SetPrice(q model.PriceQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[strings.ToUpper(q.Symbol)+"/"+strings.ToUpper(q.Market)] = q
}

// LatestRate implements RateProvider.
func (m *ManualProvider) LatestRate(_ context.Context, base, quote string) (decimal.Decimal, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rates[cacheKey(strings.ToUpper(base), strings.ToUpper(quote))]
	return r.Rate, r.AsOf, ok, nil
}

// LatestPrice implements PriceProvider.
func (m *ManualProvider) LatestPrice(_ context.Context, symbol, market string) (model.PriceQuote, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.prices[strings.ToUpper(symbol)+"/"+strings.ToUpper(market)]
	return q, ok, nil
}
