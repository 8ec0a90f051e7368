// Package fx stores conversion rates and price snapshots and answers
// "latest as of" lookups over them.
package fx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// SourceManual tags rates typed in by the user.
const SourceManual = "manual"

// Service is the FX rate store.
type Service struct {
	store  *store.Store
	log    *slog.Logger
	latest *cache.Cache
	now    func() time.Time
}

// NewService creates a Service. A nil logger means slog.Default().
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		log:    logger,
		latest: cache.New(10*time.Minute, 30*time.Minute),
		now:    time.Now,
	}
}

// cachedRate is a latest-rate lookup valid while fx_rates stays at revision.
type cachedRate struct {
	rate     model.FxRate
	revision int64
}

func cacheKey(base, quote string) string {
	return base + "/" + quote
}

// Save stores a rate meaning one unit of quote costs rate units of base. A rate
// for the same pair and timestamp is overwritten. A zero asOf means now.
func (s *Service) Save(ctx context.Context, r model.FxRate) (model.FxRate, error) {
	r, err := s.normalize(r)
	if err != nil {
		return model.FxRate{}, err
	}
	err = s.store.Tx(ctx, func(tx *store.Tx) error {
		r.ID, err = tx.UpsertFxRate(ctx, r)
		return err
	})
	if err != nil {
		return model.FxRate{}, fmt.Errorf("saving fx rate %s/%s: %w", r.Base, r.Quote, err)
	}
	s.latest.Delete(cacheKey(r.Base, r.Quote))
	s.log.Debug("saved fx rate", "pair", cacheKey(r.Base, r.Quote), "rate", r.Rate, "as_of", r.AsOf)
	return r, nil
}

func (s *Service) normalize(r model.FxRate) (model.FxRate, error) {
	var err error
	if r.Base, err = model.NormalizeCurrency(r.Base); err != nil {
		return r, err
	}
	if r.Quote, err = model.NormalizeCurrency(r.Quote); err != nil {
		return r, err
	}
	if !r.Rate.IsPositive() {
		return r, fmt.Errorf("%w: rate must be positive, got %s", model.ErrInvalidAmount, r.Rate)
	}
	if r.AsOf.IsZero() {
		r.AsOf = s.now()
	}
	r.AsOf = r.AsOf.UTC().Truncate(time.Microsecond)
	if r.Source == "" {
		r.Source = SourceManual
	}
	return r, nil
}

// Latest returns the most recent rate for a pair. The second result is false
// when nothing is on file. Identical currencies always convert at 1.
func (s *Service) Latest(ctx context.Context, base, quote string) (model.FxRate, bool, error) {
	var r model.FxRate
	var ok bool
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		r, ok, err = s.LatestTx(ctx, tx, base, quote, time.Time{})
		return err
	})
	return r, ok, err
}

// LatestAsOf returns the most recent rate with as_of <= asOf.
func (s *Service) LatestAsOf(ctx context.Context, base, quote string, asOf time.Time) (model.FxRate, bool, error) {
	var r model.FxRate
	var ok bool
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		r, ok, err = s.LatestTx(ctx, tx, base, quote, asOf)
		return err
	})
	return r, ok, err
}

// LatestTx is Latest/LatestAsOf inside a caller's transaction. A zero asOf
// means no upper bound and is served from the cache unless fx_rates changed
// since the entry was filled.
func (s *Service) LatestTx(ctx context.Context, tx *store.Tx, base, quote string, asOf time.Time) (model.FxRate, bool, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	if base == quote {
		return model.FxRate{Base: base, Quote: quote, Rate: decimal.NewFromInt(1), AsOf: asOf, Source: "identity"}, true, nil
	}

	key := cacheKey(base, quote)
	var rev int64
	if asOf.IsZero() {
		var err error
		if rev, err = tx.FxRevision(ctx); err != nil {
			return model.FxRate{}, false, err
		}
		if v, ok := s.latest.Get(key); ok {
			if c := v.(cachedRate); c.revision == rev {
				return c.rate, true, nil
			}
			s.latest.Delete(key)
		}
	}

	rates, err := tx.FxRates(ctx, base, quote, asOf)
	if err != nil {
		return model.FxRate{}, false, fmt.Errorf("looking up %s: %w", key, err)
	}
	r, ok := LatestOf(rates)
	if !ok {
		s.log.Debug("no fx rate on file", "pair", key, "as_of", asOf)
		return model.FxRate{}, false, nil
	}
	if asOf.IsZero() {
		s.latest.SetDefault(key, cachedRate{rate: r, revision: rev})
	}
	return r, true, nil
}

// Rate returns the rate value for a pair or ErrMissingRate.
func (s *Service) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	r, ok, err := s.Latest(ctx, base, quote)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", model.ErrMissingRate, cacheKey(base, quote))
	}
	return r.Rate, nil
}

// LatestOf picks the row with the greatest (as_of, id).
func LatestOf(rates []model.FxRate) (model.FxRate, bool) {
	if len(rates) == 0 {
		return model.FxRate{}, false
	}
	best := rates[0]
	for _, r := range rates[1:] {
		if r.AsOf.After(best.AsOf) || (r.AsOf.Equal(best.AsOf) && r.ID > best.ID) {
			best = r
		}
	}
	return best, true
}

// ToBase converts a native amount into base units: native × rate(base, native).
func ToBase(native, rate decimal.Decimal) decimal.Decimal {
	return native.Mul(rate)
}

// FromBase re-expresses a base amount in another currency: base ÷ rate(base, display).
func FromBase(base, rate decimal.Decimal) decimal.Decimal {
	return base.Div(rate)
}
