package fx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/homebook/internal/booktest"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(booktest.Open(t), booktest.Logger())
}

func at(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 9, 0, 0, 0, time.UTC)
}

func TestSaveAndLatest(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, ok, err := svc.Latest(ctx, "KRW", "USD")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Save(ctx, model.FxRate{Base: "krw", Quote: "usd", Rate: booktest.Dec("1300"), AsOf: at(2026, 1, 1)})
	require.NoError(t, err)
	_, err = svc.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: booktest.Dec("1350"), AsOf: at(2026, 2, 1)})
	require.NoError(t, err)

	r, ok, err := svc.Latest(ctx, "KRW", "USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, r.Rate.Equal(booktest.Dec("1350")))
	assert.Equal(t, SourceManual, r.Source)

	r, ok, err = svc.LatestAsOf(ctx, "KRW", "USD", at(2026, 1, 15))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, r.Rate.Equal(booktest.Dec("1300")))

	_, ok, err = svc.LatestAsOf(ctx, "KRW", "USD", at(2025, 12, 31))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSave_InvalidatesCache(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: booktest.Dec("1300"), AsOf: at(2026, 1, 1)})
	require.NoError(t, err)
	rate, err := svc.Rate(ctx, "KRW", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(booktest.Dec("1300")))

	_, err = svc.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: booktest.Dec("1400"), AsOf: at(2026, 3, 1)})
	require.NoError(t, err)
	rate, err = svc.Rate(ctx, "KRW", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(booktest.Dec("1400")))
}

func TestSave_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, model.FxRate{Base: "KRW", Quote: "XXQ", Rate: booktest.Dec("1")})
	assert.ErrorIs(t, err, model.ErrInvalidCurrency)
	_, err = svc.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: booktest.Dec("0")})
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestRate_IdentityAndMissing(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	rate, err := svc.Rate(ctx, "KRW", "KRW")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	_, err = svc.Rate(ctx, "KRW", "EUR")
	assert.ErrorIs(t, err, model.ErrMissingRate)
	assert.Equal(t, model.KindDataGap, model.KindOf(err))
}

func TestLatestOf_TieBreaksOnID(t *testing.T) {
	same := at(2026, 1, 1)
	r, ok := LatestOf([]model.FxRate{
		{ID: 3, AsOf: same, Rate: booktest.Dec("3")},
		{ID: 7, AsOf: same, Rate: booktest.Dec("7")},
		{ID: 9, AsOf: same.Add(-time.Hour), Rate: booktest.Dec("9")},
	})
	require.True(t, ok)
	assert.Equal(t, int64(7), r.ID)

	_, ok = LatestOf(nil)
	assert.False(t, ok)
}

func TestConversions(t *testing.T) {
	assert.True(t, ToBase(booktest.Dec("10"), booktest.Dec("1330")).Equal(booktest.Dec("13300")))
	assert.True(t, FromBase(booktest.Dec("13300"), booktest.Dec("1330")).Equal(booktest.Dec("10")))
}

func TestPrices(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.SavePrice(ctx, model.PriceQuote{Symbol: "005930", Market: "krx", Currency: "KRW", Price: booktest.Dec("71000"), AsOf: at(2026, 1, 2)}))
	require.NoError(t, svc.SavePrice(ctx, model.PriceQuote{Symbol: "005930", Market: "KRX", Currency: "KRW", Price: booktest.Dec("72000"), AsOf: at(2026, 1, 3)}))

	q, ok, err := svc.LatestPrice(ctx, "005930", "krx")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, q.Price.Equal(booktest.Dec("72000")))

	_, ok, err = svc.LatestPrice(ctx, "AAPL", "NASDAQ")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.SavePrice(ctx, model.PriceQuote{Symbol: "X", Currency: "KRW", Price: booktest.Dec("-1")}), model.ErrInvalidAmount)
}

type failingProvider struct{}

func (failingProvider) Name() string { return "broken" }

func (failingProvider) LatestRate(context.Context, string, string) (decimal.Decimal, time.Time, bool, error) {
	return decimal.Zero, time.Time{}, false, errors.New("upstream down")
}

func TestSyncRates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p := NewManualProvider()
	p.SetRate("KRW", "USD", booktest.Dec("1380"), at(2026, 4, 1))

	res, err := svc.SyncRates(ctx, p, []model.CurrencyPair{{Base: "KRW", Quote: "USD"}, {Base: "KRW", Quote: "JPY"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, []string{"KRW/JPY"}, res.Missing)

	rate, err := svc.Rate(ctx, "KRW", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(booktest.Dec("1380")))

	last, ok, err := svc.LastSync(ctx, "fx")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.SyncSuccess, last.Status)

	_, err = svc.SyncRates(ctx, failingProvider{}, []model.CurrencyPair{{Base: "KRW", Quote: "USD"}})
	require.Error(t, err)
	last, ok, err = svc.LastSync(ctx, "fx")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.SyncFailed, last.Status)
	assert.Equal(t, "broken", last.Provider)
	assert.Contains(t, last.Message, "upstream down")
}

var errUpstream = errors.New("upstream down")

// cancelingProvider fails after cancelling the run's context, so the sync
// log cannot be closed either.
type cancelingProvider struct{ cancel context.CancelFunc }

func (cancelingProvider) Name() string { return "flaky" }

func (p cancelingProvider) LatestRate(context.Context, string, string) (decimal.Decimal, time.Time, bool, error) {
	p.cancel()
	return decimal.Zero, time.Time{}, false, errUpstream
}

func TestSyncRates_ReportsBothFailures(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := svc.SyncRates(ctx, cancelingProvider{cancel: cancel}, []model.CurrencyPair{{Base: "KRW", Quote: "USD"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUpstream)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "recording fx sync")
}

func TestSyncPrices(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p := NewManualProvider()
	p.SetPrice(model.PriceQuote{Symbol: "VOO", Market: "NYSE", Currency: "USD", Price: booktest.Dec("480.25"), AsOf: at(2026, 4, 1)})

	res, err := svc.SyncPrices(ctx, p, []Instrument{{Symbol: "VOO", Market: "NYSE"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)

	q, ok, err := svc.LatestPrice(ctx, "VOO", "NYSE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, SourceManual, q.Source)
}

func TestLatest_SeesWritesFromAnotherConnection(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "homebook.db")
	open := func() *Service {
		st, err := store.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		return NewService(st, booktest.Logger())
	}
	reader, writer := open(), open()

	_, err := writer.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: booktest.Dec("1300"), AsOf: at(2026, 1, 1)})
	require.NoError(t, err)
	rate, err := reader.Rate(ctx, "KRW", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(booktest.Dec("1300")))

	_, err = writer.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: booktest.Dec("1400"), AsOf: at(2026, 2, 1)})
	require.NoError(t, err)
	rate, err = reader.Rate(ctx, "KRW", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(booktest.Dec("1400")))

	// Overwriting the same timestamp changes no id but must still be seen.
	_, err = writer.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: booktest.Dec("1410"), AsOf: at(2026, 2, 1)})
	require.NoError(t, err)
	rate, err = reader.Rate(ctx, "KRW", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(booktest.Dec("1410")))
}
