package fx

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// SavePrice stores a market price snapshot.
func (s *Service) SavePrice(ctx context.Context, q model.PriceQuote) error {
	var err error
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	q.Market = strings.ToUpper(strings.TrimSpace(q.Market))
	if q.Symbol == "" {
		return fmt.Errorf("price symbol is required")
	}
	if q.Currency, err = model.NormalizeCurrency(q.Currency); err != nil {
		return err
	}
	if !q.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", model.ErrInvalidAmount, q.Price)
	}
	if q.AsOf.IsZero() {
		q.AsOf = s.now()
	}
	if q.Source == "" {
		q.Source = SourceManual
	}
	return s.store.Tx(ctx, func(tx *store.Tx) error {
		return tx.UpsertPrice(ctx, q)
	})
}

// LatestPrice returns the newest snapshot for a symbol by (as_of, id).
func (s *Service) LatestPrice(ctx context.Context, symbol, market string) (model.PriceQuote, bool, error) {
	var quotes []model.PriceQuote
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		quotes, err = tx.Prices(ctx, strings.ToUpper(symbol), strings.ToUpper(market))
		return err
	})
	if err != nil {
		return model.PriceQuote{}, false, fmt.Errorf("looking up price %s/%s: %w", symbol, market, err)
	}
	if len(quotes) == 0 {
		return model.PriceQuote{}, false, nil
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.AsOf.After(best.AsOf) || (q.AsOf.Equal(best.AsOf) && q.ID > best.ID) {
			best = q
		}
	}
	return best, true, nil
}
