package journal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/store"
)

// Balance is an account's running total in the base currency and in its own
// native currency.
type Balance struct {
	Base   decimal.Decimal
	Native decimal.Decimal
}

// AccountBalances sums debit minus credit per account over entries dated on
// or before asOf. A zero asOf includes every entry.
func (s *Service) AccountBalances(ctx context.Context, asOf time.Time) (map[int64]decimal.Decimal, error) {
	var out map[int64]decimal.Decimal
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		out, err = AccountBalancesTx(ctx, tx, asOf)
		return err
	})
	return out, err
}

// AccountBalancesTx is AccountBalances inside a caller's transaction.
func AccountBalancesTx(ctx context.Context, tx *store.Tx, asOf time.Time) (map[int64]decimal.Decimal, error) {
	multi, err := AccountBalancesMultiTx(ctx, tx, asOf)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]decimal.Decimal, len(multi))
	for id, b := range multi {
		out[id] = b.Base
	}
	return out, nil
}

// AccountBalancesMulti is AccountBalances plus a native balance built from
// each line's posting-time snapshot, falling back to the base amount for
// lines that were never foreign.
func (s *Service) AccountBalancesMulti(ctx context.Context, asOf time.Time) (map[int64]Balance, error) {
	var out map[int64]Balance
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		out, err = AccountBalancesMultiTx(ctx, tx, asOf)
		return err
	})
	return out, err
}

// AccountBalancesMultiTx is AccountBalancesMulti inside a caller's transaction.
func AccountBalancesMultiTx(ctx context.Context, tx *store.Tx, asOf time.Time) (map[int64]Balance, error) {
	lines, err := tx.PostedLines(ctx, store.LineFilter{To: asOf})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Balance)
	for _, l := range lines {
		b := out[l.AccountID]
		b.Base = b.Base.Add(l.Signed())
		b.Native = b.Native.Add(l.NativeSigned())
		out[l.AccountID] = b
	}
	return out, nil
}
