package journal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/homebook/internal/accounts"
	"github.com/cleared-dev/homebook/internal/booktest"
	"github.com/cleared-dev/homebook/internal/fx"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

var (
	dec  = booktest.Dec
	date = booktest.Date
)

type ledger struct {
	svc   *Service
	fx    *fx.Service
	chart *accounts.Service

	cash, bank, usd, food, salary, card int64
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	ctx := context.Background()
	st := booktest.Open(t)
	chart := accounts.NewService(st, "KRW", booktest.Logger())
	_, err := chart.Seed(ctx)
	require.NoError(t, err)

	rates := fx.NewService(st, booktest.Logger())
	l := &ledger{
		svc:   NewService(st, rates, Options{BaseCurrency: "KRW"}, booktest.Logger()),
		fx:    rates,
		chart: chart,
	}

	create := func(name string, typ model.AccountType, parent int64, currency string) int64 {
		id, err := chart.Create(ctx, accounts.CreateParams{Name: name, Type: typ, ParentID: parent, Currency: currency})
		require.NoError(t, err)
		return id
	}
	l.cash = create("현금", model.AccountTypeAsset, 1100, "")
	l.bank = create("국민은행", model.AccountTypeAsset, 1200, "")
	l.usd = create("Chase", model.AccountTypeAsset, 1200, "USD")
	l.food = create("식비", model.AccountTypeExpense, 5100, "")
	l.salary = create("급여", model.AccountTypeIncome, 4100, "")
	l.card = create("삼성카드", model.AccountTypeLiability, 2100, "")
	return l
}

func (l *ledger) post(t *testing.T, day time.Time, desc string, lines ...model.Line) model.Entry {
	t.Helper()
	e, err := l.svc.Post(context.Background(), PostParams{Date: day, Description: desc, Lines: lines})
	require.NoError(t, err)
	return e
}

func TestPost_FoodPaidInCash(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	e := l.post(t, date(2026, 1, 10), "점심",
		Debit(l.food, dec("100000"), ""),
		Credit(l.cash, dec("100000"), ""),
	)
	assert.NotZero(t, e.ID)
	assert.Equal(t, model.SourceManual, e.Source)

	bal, err := l.svc.AccountBalances(ctx, time.Time{})
	require.NoError(t, err)
	assert.True(t, bal[l.food].Equal(dec("100000")))
	assert.True(t, bal[l.cash].Equal(dec("-100000")))

	again, err := l.svc.AccountBalances(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, bal, again)

	before, err := l.svc.AccountBalances(ctx, date(2026, 1, 9))
	require.NoError(t, err)
	assert.Empty(t, before)
}

func TestPost_UnbalancedWritesNothing(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	_, err := l.svc.Post(ctx, PostParams{
		Date:        date(2026, 1, 10),
		Description: "oops",
		Lines: []model.Line{
			Debit(l.food, dec("100000"), ""),
			Credit(l.cash, dec("99999"), ""),
		},
	})
	require.ErrorIs(t, err, model.ErrUnbalancedEntry)

	var unbalanced *model.UnbalancedEntryError
	require.True(t, errors.As(err, &unbalanced))
	assert.True(t, unbalanced.DebitTotal.Equal(dec("100000")))
	assert.True(t, unbalanced.CreditTotal.Equal(dec("99999")))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, RuleBalanced, verr.Rule)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	bal, err := l.svc.AccountBalances(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, bal)
}

func TestPost_BalancesToTheCent(t *testing.T) {
	l := newLedger(t)
	_, err := l.svc.Post(context.Background(), PostParams{
		Date: date(2026, 1, 10), Description: "rounding",
		Lines: []model.Line{
			Debit(l.food, dec("10.004"), ""),
			Credit(l.cash, dec("10"), ""),
		},
	})
	assert.NoError(t, err)
}

func TestPost_ValidationRules(t *testing.T) {
	l := newLedger(t)
	neg := Debit(l.food, dec("-5"), "")
	neg.Credit = decimal.Zero
	both := Debit(l.food, dec("5"), "")
	both.Credit = dec("5")
	neither := Debit(l.food, decimal.Zero, "")
	badNative := Debit(l.usd, dec("1000"), "")
	badNative.Native = &model.NativeAmount{Amount: dec("1"), Currency: "USD", Rate: dec("1300")}

	tests := []struct {
		name  string
		lines []model.Line
		want  error
		rule  int
		line  int
	}{
		{"one line", []model.Line{Debit(l.food, dec("5"), "")}, model.ErrTooFewLines, RuleLineCount, 0},
		{"negative", []model.Line{neg, Credit(l.cash, dec("5"), "")}, model.ErrNegativeAmount, RuleLineShape, 1},
		{"both sides", []model.Line{Credit(l.cash, dec("5"), ""), both}, model.ErrMalformedLine, RuleLineShape, 2},
		{"neither side", []model.Line{neither, Credit(l.cash, dec("5"), "")}, model.ErrMalformedLine, RuleLineShape, 1},
		{"native mismatch", []model.Line{badNative, Credit(l.cash, dec("1000"), "")}, model.ErrMalformedLine, RuleLineShape, 1},
		{"aggregate account", []model.Line{Debit(5100, dec("5"), ""), Credit(l.cash, dec("5"), "")}, model.ErrPostingToAggregateAccount, RulePostingAccount, 1},
		{"missing account", []model.Line{Debit(l.food, dec("5"), ""), Credit(987654, dec("5"), "")}, model.ErrAccountNotFound, RulePostingAccount, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.svc.Post(context.Background(), PostParams{Date: date(2026, 1, 1), Description: tt.name, Lines: tt.lines})
			require.ErrorIs(t, err, tt.want)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.rule, verr.Rule)
			assert.Equal(t, tt.line, verr.Line)
		})
	}

	lines, err := l.svc.Lines(context.Background(), store.LineFilter{})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPost_NativeSnapshotSurvivesRateChange(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	native := model.NativeAmount{Amount: dec("12.345"), Currency: "usd", Rate: dec("1330.5")}
	e := l.post(t, date(2026, 2, 1), "Amazon",
		ForeignDebit(l.food, native, "book"),
		Credit(l.cash, native.BaseAmount(), ""),
	)
	assert.True(t, e.Lines[0].Debit.Equal(dec("16425.02")))

	_, err := l.fx.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: dec("1500"), AsOf: time.Now()})
	require.NoError(t, err)

	lines, err := l.svc.Lines(ctx, store.LineFilter{EntryID: e.ID})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	snap := lines[0].Snapshot
	require.NotNil(t, snap)
	assert.Equal(t, "USD", snap.NativeCurrency)
	assert.Equal(t, "KRW", snap.BaseCurrency)
	assert.True(t, snap.Rate.Equal(dec("1330.5")))
	assert.True(t, snap.NativeAmount.Equal(dec("12.345")))
	assert.True(t, snap.BaseAmount.Equal(dec("16425.02")))
	assert.Nil(t, lines[1].Snapshot)

	multi, err := l.svc.AccountBalancesMulti(ctx, time.Time{})
	require.NoError(t, err)
	assert.True(t, multi[l.food].Native.Equal(dec("12.345")))
	assert.True(t, multi[l.food].Base.Equal(dec("16425.02")))
	assert.True(t, multi[l.cash].Native.Equal(dec("-16425.02")), "base-only lines fall back to the base amount")
}

func TestGetAndDeleteEntry(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	e := l.post(t, date(2026, 1, 10), "점심", Debit(l.food, dec("9000"), "김밥"), Credit(l.cash, dec("9000"), ""))

	got, err := l.svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "점심", got.Description)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "김밥", got.Lines[0].Memo)

	require.NoError(t, l.svc.DeleteEntry(ctx, e.ID))
	_, err = l.svc.GetEntry(ctx, e.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, l.svc.DeleteEntry(ctx, e.ID), model.ErrNotFound)
}

func TestTrialBalance(t *testing.T) {
	l := newLedger(t)
	l.post(t, date(2026, 1, 1), "월급", Debit(l.bank, dec("3000000"), ""), Credit(l.salary, dec("3000000"), ""))
	l.post(t, date(2026, 1, 2), "장보기", Debit(l.food, dec("80000"), ""), Credit(l.card, dec("80000"), ""))

	tb, err := l.svc.TrialBalance(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.True(t, tb.Balanced())
	assert.Len(t, tb.Rows, 4)
	assert.True(t, tb.TotalDebit.Equal(dec("3080000")))
}

func TestBalanceSheet_MarkToMarket(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	l.post(t, date(2026, 1, 1), "opening",
		ForeignDebit(l.usd, model.NativeAmount{Amount: dec("100"), Currency: "USD", Rate: dec("1300")}, ""),
		Credit(accounts.OpeningEquityID, dec("130000"), ""),
	)
	l.post(t, date(2026, 1, 2), "카드", Debit(l.food, dec("30000"), ""), Credit(l.card, dec("30000"), ""))

	t.Run("missing rate falls back to book", func(t *testing.T) {
		bs, err := l.svc.BalanceSheet(ctx, time.Time{}, "")
		require.NoError(t, err)
		require.Len(t, bs.Assets, 1)
		assert.True(t, bs.Assets[0].Current.Equal(dec("130000")))
		assert.Equal(t, []model.CurrencyPair{{Base: "KRW", Quote: "USD"}}, bs.MissingRates)
	})

	_, err := l.fx.Save(ctx, model.FxRate{Base: "KRW", Quote: "USD", Rate: dec("1400"), AsOf: time.Now()})
	require.NoError(t, err)

	bs, err := l.svc.BalanceSheet(ctx, time.Time{}, "")
	require.NoError(t, err)
	assert.Empty(t, bs.MissingRates)
	require.Len(t, bs.Assets, 1)
	item := bs.Assets[0]
	assert.Equal(t, l.usd, item.Account.ID)
	assert.True(t, item.Native.Equal(dec("100")))
	assert.True(t, item.Book.Equal(dec("130000")))
	assert.True(t, item.Current.Equal(dec("140000")))

	require.Len(t, bs.Liabilities, 1)
	assert.True(t, bs.Liabilities[0].Current.Equal(dec("30000")), "liabilities are shown positive")
	require.Len(t, bs.Equity, 1)
	assert.True(t, bs.TotalEquity.Equal(dec("130000")))
	assert.True(t, bs.TotalAssets.Equal(dec("140000")))
	assert.True(t, bs.NetWorth.Equal(dec("110000")))

	inUSD, err := l.svc.BalanceSheet(ctx, time.Time{}, "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", inUSD.DisplayCurrency)
	assert.True(t, inUSD.DisplayAssets.Equal(dec("100")))

	inJPY, err := l.svc.BalanceSheet(ctx, time.Time{}, "JPY")
	require.NoError(t, err)
	assert.Equal(t, []model.CurrencyPair{{Base: "KRW", Quote: "JPY"}}, inJPY.MissingRates)
	assert.True(t, inJPY.DisplayAssets.Equal(dec("140000")))
}

func TestBalanceSheet_NonKRWBase(t *testing.T) {
	ctx := context.Background()
	st := booktest.Open(t)
	chart := accounts.NewService(st, "USD", booktest.Logger())
	_, err := chart.Seed(ctx)
	require.NoError(t, err)
	svc := NewService(st, fx.NewService(st, booktest.Logger()), Options{BaseCurrency: "USD"}, booktest.Logger())

	wallet, err := chart.Create(ctx, accounts.CreateParams{Name: "Wallet", Type: model.AccountTypeAsset, ParentID: 1100})
	require.NoError(t, err)
	_, err = svc.Post(ctx, PostParams{Date: date(2026, 1, 1), Description: "opening", Lines: []model.Line{
		Debit(wallet, dec("100"), ""),
		Credit(accounts.OpeningEquityID, dec("100"), ""),
	}})
	require.NoError(t, err)

	bs, err := svc.BalanceSheet(ctx, time.Time{}, "")
	require.NoError(t, err)
	assert.Equal(t, "USD", bs.BaseCurrency)
	assert.Empty(t, bs.MissingRates)
	assert.True(t, bs.TotalAssets.Equal(dec("100")))
	assert.True(t, bs.TotalEquity.Equal(dec("100")))
	assert.True(t, bs.NetWorth.Equal(dec("100")))
}

func TestIncomeStatement(t *testing.T) {
	l := newLedger(t)
	l.post(t, date(2026, 1, 25), "월급", Debit(l.bank, dec("3000000"), ""), Credit(l.salary, dec("3000000"), ""))
	l.post(t, date(2026, 1, 26), "외식", Debit(l.food, dec("50000"), ""), Credit(l.card, dec("50000"), ""))
	l.post(t, date(2026, 2, 1), "외식", Debit(l.food, dec("20000"), ""), Credit(l.card, dec("20000"), ""))

	is, err := l.svc.IncomeStatement(context.Background(), date(2026, 1, 1), date(2026, 1, 31))
	require.NoError(t, err)
	require.Len(t, is.Income, 1)
	require.Len(t, is.Expense, 1)
	assert.True(t, is.TotalIncome.Equal(dec("3000000")))
	assert.True(t, is.TotalExpense.Equal(dec("50000")))
	assert.True(t, is.NetProfit.Equal(dec("2950000")))
}

func TestMonthlyCashflow(t *testing.T) {
	l := newLedger(t)
	l.post(t, date(2025, 12, 31), "이월", Debit(l.cash, dec("10000"), ""), Credit(l.salary, dec("10000"), ""))
	l.post(t, date(2026, 2, 25), "월급", Debit(l.bank, dec("3000000"), ""), Credit(l.salary, dec("3000000"), ""))
	l.post(t, date(2026, 3, 3), "ATM", Debit(l.cash, dec("50000"), ""), Credit(l.bank, dec("50000"), ""))
	l.post(t, date(2026, 3, 4), "카드", Debit(l.food, dec("7000"), ""), Credit(l.card, dec("7000"), ""))

	cf, err := l.svc.MonthlyCashflow(context.Background(), 2026)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{l.cash, l.bank, l.usd}, cf.AccountIDs)
	assert.True(t, cf.OpeningBalance.Equal(dec("10000")))
	require.Len(t, cf.Months, 12)
	assert.True(t, cf.Months[0].EndingBalance.Equal(dec("10000")))
	assert.True(t, cf.Months[1].NetChange.Equal(dec("3000000")))
	assert.True(t, cf.Months[2].NetChange.IsZero(), "transfers between cash accounts net out")
	assert.True(t, cf.Months[11].EndingBalance.Equal(dec("3010000")))
}

func TestExport(t *testing.T) {
	l := newLedger(t)
	l.post(t, date(2026, 1, 10), "점심",
		ForeignDebit(l.food, model.NativeAmount{Amount: dec("10"), Currency: "USD", Rate: dec("1300")}, ""),
		Credit(l.cash, dec("13000"), ""),
	)

	var buf bytes.Buffer
	require.NoError(t, l.svc.Export(context.Background(), &buf, store.LineFilter{}))
	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, rows, 3)
	assert.Equal(t, strings.Join(Header, ","), rows[0])
	assert.True(t, strings.HasPrefix(rows[1], "JE-2026-01-"))
	assert.Contains(t, rows[1], "13000.00,0.00,,10,USD,1300")
	assert.Contains(t, rows[2], ",2,")
}

func TestPost_ConcurrentWritersSerialize(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	const writers = 8
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			_, err := l.svc.Post(ctx, PostParams{
				Date: date(2026, 1, 10), Description: "동시",
				Lines: []model.Line{Debit(l.food, dec("1000"), ""), Credit(l.cash, dec("1000"), "")},
			})
			errs <- err
		}()
	}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-errs)
	}

	bal, err := l.svc.AccountBalances(ctx, time.Time{})
	require.NoError(t, err)
	assert.True(t, bal[l.food].Equal(dec("8000")))
	assert.True(t, bal[l.cash].Equal(dec("-8000")))
}
