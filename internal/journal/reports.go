package journal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/accounts"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// TrialBalanceRow is one account's balance split into debit and credit columns.
type TrialBalanceRow struct {
	Account model.Account
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal // debit minus credit
}

// TrialBalance lists every account with a non-zero balance.
type TrialBalance struct {
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Balanced reports whether both columns agree to the cent.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit.Round(2).Equal(tb.TotalCredit.Round(2))
}

// TrialBalance computes balances as of asOf (zero = all time).
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	tb := TrialBalance{AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		chart, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		bal, err := AccountBalancesTx(ctx, tx, asOf)
		if err != nil {
			return err
		}
		for _, a := range chart {
			b := bal[a.ID]
			if b.IsZero() {
				continue
			}
			row := TrialBalanceRow{Account: a, Debit: decimal.Zero, Credit: decimal.Zero, Balance: b}
			if b.IsPositive() {
				row.Debit = b
			} else {
				row.Credit = b.Neg()
			}
			tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
			tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
			tb.Rows = append(tb.Rows, row)
		}
		return nil
	})
	if err != nil {
		return TrialBalance{}, fmt.Errorf("computing trial balance: %w", err)
	}
	return tb, nil
}

// BalanceSheetItem is one account on the balance sheet. Liability and equity
// figures are sign-flipped so a normal balance is positive.
type BalanceSheetItem struct {
	Account model.Account
	// Native is the balance in the account's own currency.
	Native decimal.Decimal
	// Book is the base-currency balance at posting-time rates.
	Book decimal.Decimal
	// Current is Native marked to market at the latest rate, or Book when no
	// rate is on file.
	Current decimal.Decimal
	// Display is Current re-expressed in the display currency.
	Display decimal.Decimal
}

// BalanceSheet groups asset, liability and equity accounts.
type BalanceSheet struct {
	AsOf            time.Time
	BaseCurrency    string
	DisplayCurrency string

	Assets      []BalanceSheetItem
	Liabilities []BalanceSheetItem
	Equity      []BalanceSheetItem

	// Totals in the base currency. Assets and liabilities use current values,
	// equity uses book values.
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	TotalEquity      decimal.Decimal
	NetWorth         decimal.Decimal

	// Totals in the display currency, summed from each item's Display.
	DisplayAssets      decimal.Decimal
	DisplayLiabilities decimal.Decimal
	DisplayEquity      decimal.Decimal
	DisplayNetWorth    decimal.Decimal

	// MissingRates lists the pairs that could not be resolved. Figures that
	// needed them fell back to base-currency values.
	MissingRates []model.CurrencyPair
}

// BalanceSheet computes balances as of asOf (zero = all time), marks foreign
// accounts to market at the latest known rate, and re-expresses the result in
// displayCurrency (empty = base currency). Only active accounts are listed.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time, displayCurrency string) (BalanceSheet, error) {
	display := displayCurrency
	if display == "" {
		display = s.base
	}
	display, err := model.NormalizeCurrency(display)
	if err != nil {
		return BalanceSheet{}, err
	}

	bs := BalanceSheet{AsOf: asOf, BaseCurrency: s.base, DisplayCurrency: display}
	missing := make(map[model.CurrencyPair]bool)

	err = s.store.Tx(ctx, func(tx *store.Tx) error {
		chart, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		bal, err := AccountBalancesMultiTx(ctx, tx, asOf)
		if err != nil {
			return err
		}

		displayRate, haveDisplayRate := decimal.NewFromInt(1), true
		if display != s.base {
			r, ok, err := s.rates.LatestTx(ctx, tx, s.base, display, time.Time{})
			if err != nil {
				return err
			}
			haveDisplayRate = ok && r.Rate.IsPositive()
			if haveDisplayRate {
				displayRate = r.Rate
			} else {
				missing[model.CurrencyPair{Base: s.base, Quote: display}] = true
			}
		}

		for _, a := range chart {
			if !a.IsActive {
				continue
			}
			if a.Type != model.AccountTypeAsset && a.Type != model.AccountTypeLiability && a.Type != model.AccountTypeEquity {
				continue
			}
			b := bal[a.ID]
			if b.Base.IsZero() && b.Native.IsZero() {
				continue
			}

			item := BalanceSheetItem{Account: a, Native: b.Native, Book: b.Base, Current: b.Base}
			currency := a.Currency
			if currency == "" {
				currency = s.base
			}
			if currency != s.base {
				r, ok, err := s.rates.LatestTx(ctx, tx, s.base, currency, time.Time{})
				if err != nil {
					return err
				}
				if ok {
					item.Current = b.Native.Mul(r.Rate)
				} else {
					missing[model.CurrencyPair{Base: s.base, Quote: currency}] = true
				}
			}
			item.Display = item.Current
			if haveDisplayRate && display != s.base {
				item.Display = item.Current.Div(displayRate)
			}

			switch a.Type {
			case model.AccountTypeAsset:
				bs.Assets = append(bs.Assets, item)
			case model.AccountTypeLiability:
				bs.Liabilities = append(bs.Liabilities, item.flip())
			case model.AccountTypeEquity:
				bs.Equity = append(bs.Equity, item.flip())
			}
		}
		return nil
	})
	if err != nil {
		return BalanceSheet{}, fmt.Errorf("computing balance sheet: %w", err)
	}

	for _, i := range bs.Assets {
		bs.TotalAssets = bs.TotalAssets.Add(i.Current)
		bs.DisplayAssets = bs.DisplayAssets.Add(i.Display)
	}
	for _, i := range bs.Liabilities {
		bs.TotalLiabilities = bs.TotalLiabilities.Add(i.Current)
		bs.DisplayLiabilities = bs.DisplayLiabilities.Add(i.Display)
	}
	for _, i := range bs.Equity {
		bs.TotalEquity = bs.TotalEquity.Add(i.Book)
		bs.DisplayEquity = bs.DisplayEquity.Add(i.Display)
	}
	bs.NetWorth = bs.TotalAssets.Sub(bs.TotalLiabilities)
	bs.DisplayNetWorth = bs.DisplayAssets.Sub(bs.DisplayLiabilities)
	bs.MissingRates = sortedPairs(missing)
	if len(bs.MissingRates) > 0 {
		s.log.Warn("balance sheet used book values for missing rates", "missing", bs.MissingRates)
	}
	return bs, nil
}

func (i BalanceSheetItem) flip() BalanceSheetItem {
	i.Native = i.Native.Neg()
	i.Book = i.Book.Neg()
	i.Current = i.Current.Neg()
	i.Display = i.Display.Neg()
	return i
}

func sortedPairs(set map[model.CurrencyPair]bool) []model.CurrencyPair {
	pairs := make([]model.CurrencyPair, 0, len(set))
	for p := range set {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Base != pairs[j].Base {
			return pairs[i].Base < pairs[j].Base
		}
		return pairs[i].Quote < pairs[j].Quote
	})
	return pairs
}

// IncomeStatementRow is one income or expense account's activity in a period,
// signed so that income and expense are both positive when normal.
type IncomeStatementRow struct {
	Account model.Account
	Amount  decimal.Decimal
}

// IncomeStatement summarizes income and expense over a date range.
type IncomeStatement struct {
	Start, End   time.Time
	Income       []IncomeStatementRow
	Expense      []IncomeStatementRow
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetProfit    decimal.Decimal
}

// IncomeStatement covers entries dated in [start, end].
func (s *Service) IncomeStatement(ctx context.Context, start, end time.Time) (IncomeStatement, error) {
	is := IncomeStatement{Start: start, End: end}
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		chart, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		tree := accounts.NewTree(chart)
		lines, err := tx.PostedLines(ctx, store.LineFilter{From: start, To: end})
		if err != nil {
			return err
		}

		sums := make(map[int64]decimal.Decimal)
		var order []int64
		for _, l := range lines {
			if _, seen := sums[l.AccountID]; !seen {
				order = append(order, l.AccountID)
			}
			sums[l.AccountID] = sums[l.AccountID].Add(l.Signed())
		}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

		for _, id := range order {
			a, ok := tree.Get(id)
			if !ok {
				continue
			}
			switch a.Type {
			case model.AccountTypeIncome:
				is.Income = append(is.Income, IncomeStatementRow{Account: a, Amount: sums[id].Neg()})
			case model.AccountTypeExpense:
				is.Expense = append(is.Expense, IncomeStatementRow{Account: a, Amount: sums[id]})
			}
		}
		return nil
	})
	if err != nil {
		return IncomeStatement{}, fmt.Errorf("computing income statement: %w", err)
	}
	for _, r := range is.Income {
		is.TotalIncome = is.TotalIncome.Add(r.Amount)
	}
	for _, r := range is.Expense {
		is.TotalExpense = is.TotalExpense.Add(r.Amount)
	}
	is.NetProfit = is.TotalIncome.Sub(is.TotalExpense)
	return is, nil
}

// CashflowMonth is one month of cash movement.
type CashflowMonth struct {
	Month         time.Month
	NetChange     decimal.Decimal
	EndingBalance decimal.Decimal
}

// Cashflow is a year of running cash balances.
type Cashflow struct {
	Year           int
	AccountIDs     []int64
	OpeningBalance decimal.Decimal
	Months         []CashflowMonth
}

// MonthlyCashflow restricts to active posting accounts whose household group
// is one of the configured cash groups, computes the balance carried into the
// year, then a running balance for each of the twelve months.
func (s *Service) MonthlyCashflow(ctx context.Context, year int) (Cashflow, error) {
	cf := Cashflow{Year: year}
	start := model.Date(year, time.January, 1)
	end := model.Date(year, time.December, 31)

	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		chart, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		tree := accounts.NewTree(chart)
		for _, a := range chart {
			if !a.IsActive || !a.AllowPosting {
				continue
			}
			if s.isCash(tree.Classify(a).Group) {
				cf.AccountIDs = append(cf.AccountIDs, a.ID)
			}
		}
		if len(cf.AccountIDs) == 0 {
			return nil
		}

		before, err := tx.PostedLines(ctx, store.LineFilter{Before: start, AccountIDs: cf.AccountIDs})
		if err != nil {
			return err
		}
		for _, l := range before {
			cf.OpeningBalance = cf.OpeningBalance.Add(l.Signed())
		}

		during, err := tx.PostedLines(ctx, store.LineFilter{From: start, To: end, AccountIDs: cf.AccountIDs})
		if err != nil {
			return err
		}
		var net [12]decimal.Decimal
		for _, l := range during {
			m := l.EntryDate.Month() - 1
			net[m] = net[m].Add(l.Signed())
		}

		running := cf.OpeningBalance
		for m := range net {
			running = running.Add(net[m])
			cf.Months = append(cf.Months, CashflowMonth{Month: time.Month(m + 1), NetChange: net[m], EndingBalance: running})
		}
		return nil
	})
	if err != nil {
		return Cashflow{}, fmt.Errorf("computing cash flow for %d: %w", year, err)
	}
	if len(cf.Months) == 0 {
		for m := time.January; m <= time.December; m++ {
			cf.Months = append(cf.Months, CashflowMonth{Month: m, NetChange: decimal.Zero, EndingBalance: decimal.Zero})
		}
	}
	return cf, nil
}

func (s *Service) isCash(g accounts.Group) bool {
	for _, c := range s.cashGroups {
		if c == g {
			return true
		}
	}
	return false
}
