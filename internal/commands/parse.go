package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/id"
	"github.com/cleared-dev/homebook/internal/model"
)

// optionalDate parses a --date style flag. Empty means the zero time.
func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return model.ParseDate(s)
}

// dateOrToday parses a date flag, defaulting to today.
func dateOrToday(s string) (time.Time, error) {
	if s == "" {
		return model.Day(time.Now()), nil
	}
	return model.ParseDate(s)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", model.ErrInvalidAmount, s)
	}
	return d, nil
}

// lineSpec is one side of an entry given on the command line:
//
//	110001=100000            base currency
//	120001=12.34USD          foreign, converted at the latest rate on file
//	120001=12.34USD@1330.5   foreign at an explicit rate
type lineSpec struct {
	AccountID int64
	Amount    decimal.Decimal
	Currency  string // empty = base
	Rate      decimal.Decimal
}

func parseLineSpec(s string) (lineSpec, error) {
	acct, rest, ok := strings.Cut(s, "=")
	if !ok {
		return lineSpec{}, fmt.Errorf("line %q must look like ACCOUNT=AMOUNT[CUR[@RATE]]", s)
	}
	var spec lineSpec
	var err error
	if spec.AccountID, err = parseID(acct); err != nil {
		return lineSpec{}, err
	}
	amount, rate, hasRate := strings.Cut(rest, "@")
	i := strings.IndexFunc(amount, func(r rune) bool { return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' })
	if i >= 0 {
		amount, spec.Currency = amount[:i], strings.ToUpper(amount[i:])
	}
	if spec.Amount, err = parseAmount(amount); err != nil {
		return lineSpec{}, err
	}
	if hasRate {
		if spec.Currency == "" {
			return lineSpec{}, fmt.Errorf("line %q has a rate but no currency", s)
		}
		if spec.Rate, err = parseAmount(rate); err != nil {
			return lineSpec{}, err
		}
	}
	return spec, nil
}

// parseRateSpec parses BASE/QUOTE=RATE.
func parseRateSpec(s string) (model.CurrencyPair, decimal.Decimal, error) {
	pair, rate, ok := strings.Cut(s, "=")
	base, quote, ok2 := strings.Cut(pair, "/")
	if !ok || !ok2 {
		return model.CurrencyPair{}, decimal.Zero, fmt.Errorf("rate %q must look like BASE/QUOTE=RATE", s)
	}
	if strings.TrimSpace(base) == "" || strings.TrimSpace(quote) == "" {
		return model.CurrencyPair{}, decimal.Zero, fmt.Errorf("%w: rate %q needs both currencies", model.ErrInvalidCurrency, s)
	}
	var p model.CurrencyPair
	var err error
	if p.Base, err = model.NormalizeCurrency(base); err != nil {
		return model.CurrencyPair{}, decimal.Zero, err
	}
	if p.Quote, err = model.NormalizeCurrency(quote); err != nil {
		return model.CurrencyPair{}, decimal.Zero, err
	}
	d, err := parseAmount(rate)
	if err != nil {
		return model.CurrencyPair{}, decimal.Zero, err
	}
	return p, d, nil
}

// parsePriceSpec parses SYMBOL[@MARKET]=PRICE[CUR]; a missing currency is
// defaultCurrency.
func parsePriceSpec(s, defaultCurrency string) (model.PriceQuote, error) {
	name, price, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return model.PriceQuote{}, fmt.Errorf("price %q must look like SYMBOL[@MARKET]=PRICE[CUR]", s)
	}
	var q model.PriceQuote
	symbol, market, _ := strings.Cut(name, "@")
	q.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q.Market = strings.ToUpper(strings.TrimSpace(market))
	q.Currency = defaultCurrency
	if i := strings.IndexFunc(price, func(r rune) bool { return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' }); i >= 0 {
		price, q.Currency = price[:i], strings.ToUpper(price[i:])
	}
	var err error
	if q.Price, err = parseAmount(price); err != nil {
		return model.PriceQuote{}, err
	}
	return q, nil
}

// balanceSpec parses ACCOUNT=AMOUNT.
func parseBalanceSpec(s string) (int64, decimal.Decimal, error) {
	spec, err := parseLineSpec(s)
	if err != nil {
		return 0, decimal.Zero, err
	}
	if spec.Currency != "" {
		return 0, decimal.Zero, fmt.Errorf("balance %q must be in the base currency", s)
	}
	return spec.AccountID, spec.Amount, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(model.DateFormat)
}

func formatPairs(pairs []model.CurrencyPair) string {
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}

func parseEntryRef(s string) (int64, error) {
	return id.ParseEntryRef(s)
}

func entryRef(e model.Entry) string {
	return id.FormatEntryRef(e.Date, e.ID)
}
