package valuation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// SourceManual tags valuations typed in by the user.
const SourceManual = "manual"

// RecordValuation stores a valuation, replacing any valuation of the same
// asset on the same date. A blank currency means the book's base currency.
func (s *Service) RecordValuation(ctx context.Context, v model.AssetValuation) (model.AssetValuation, error) {
	var err error
	if strings.TrimSpace(v.Currency) == "" {
		v.Currency = s.ledger.BaseCurrency()
	}
	if v.Currency, err = model.NormalizeCurrency(v.Currency); err != nil {
		return model.AssetValuation{}, err
	}
	if v.ValueNative.IsNegative() {
		return model.AssetValuation{}, fmt.Errorf("%w: valuation of asset %d", model.ErrNegativeAmount, v.AssetID)
	}
	if v.AsOfDate.IsZero() {
		v.AsOfDate = s.now()
	}
	v.AsOfDate = model.Day(v.AsOfDate)
	v.Method = strings.ToLower(strings.TrimSpace(v.Method))
	if v.Method == "" {
		v.Method = SourceManual
	}
	if v.Source == "" {
		v.Source = SourceManual
	}
	v.UpdatedAt = s.now()

	err = s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetAsset(ctx, v.AssetID); err != nil {
			return err
		}
		var err error
		v.ID, err = tx.UpsertValuation(ctx, v)
		return err
	})
	if err != nil {
		return model.AssetValuation{}, fmt.Errorf("recording valuation: %w", err)
	}
	s.log.Info("recorded valuation", "asset", v.AssetID, "as_of", v.AsOfDate.Format(model.DateFormat),
		"value", v.ValueNative, "currency", v.Currency)
	return v, nil
}

// History returns an asset's valuations, newest first.
func (s *Service) History(ctx context.Context, assetID int64) ([]model.AssetValuation, error) {
	var vals []model.AssetValuation
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetAsset(ctx, assetID); err != nil {
			return err
		}
		var err error
		vals, err = tx.Valuations(ctx, assetID, time.Time{})
		return err
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
	return vals, nil
}

// Latest returns the latest valuation of every asset that has one, keyed by
// asset id. A zero asOf means no cutoff.
func (s *Service) Latest(ctx context.Context, asOf time.Time) (map[int64]model.AssetValuation, error) {
	var latest map[int64]model.AssetValuation
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		latest, err = latestTx(ctx, tx, asOf)
		return err
	})
	return latest, err
}

func latestTx(ctx context.Context, tx *store.Tx, asOf time.Time) (map[int64]model.AssetValuation, error) {
	vals, err := tx.Valuations(ctx, 0, asOf)
	if err != nil {
		return nil, err
	}
	return LatestByAsset(vals), nil
}

// LatestByAsset reduces valuations to the greatest (as_of_date, id) per asset.
func LatestByAsset(vals []model.AssetValuation) map[int64]model.AssetValuation {
	out := make(map[int64]model.AssetValuation)
	for _, v := range vals {
		best, ok := out[v.AssetID]
		if !ok || v.AsOfDate.After(best.AsOfDate) || (v.AsOfDate.Equal(best.AsOfDate) && v.ID > best.ID) {
			out[v.AssetID] = v
		}
	}
	return out
}
