package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source tags the provenance of a journal entry.
type Source string

const (
	SourceManual         Source = "manual"
	SourceOpeningBalance Source = "opening_balance"
	SourceSubscription   Source = "subscription"
	SourceAssetPurchase  Source = "system:asset_purchase"
	SourceAssetDisposal  Source = "system:asset_disposal"
	SourceLoanPayment    Source = "system:loan_payment"
)

// IsSystem reports whether the entry was generated by the engine itself.
func (s Source) IsSystem() bool {
	return strings.HasPrefix(string(s), "system:")
}

// NativeAmount records the original foreign-currency side of a line and the
// rate used to express it in the base currency at posting time.
type NativeAmount struct {
	Amount   decimal.Decimal
	Currency string
	Rate     decimal.Decimal // base units per one native unit
}

// BaseAmount converts the native amount at its recorded rate, rounded to cents.
func (n NativeAmount) BaseAmount() decimal.Decimal {
	return n.Amount.Mul(n.Rate).Round(2)
}

// Line is one side of a journal entry. Exactly one of Debit or Credit is positive.
type Line struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     decimal.Decimal // zero if credit side
	Credit    decimal.Decimal // zero if debit side
	Memo      string
	Native    *NativeAmount
}

// Amount returns whichever side of the line carries the value.
func (l Line) Amount() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.Debit
	}
	return l.Credit
}

// Signed returns debit minus credit.
func (l Line) Signed() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// Entry is a journal entry header plus its ordered lines.
type Entry struct {
	ID          int64
	Date        time.Time
	Description string
	Source      Source
	CreatedAt   time.Time
	Lines       []Line
}

// FxSnapshot freezes the conversion of a foreign-currency line as it was at posting time.
type FxSnapshot struct {
	LineID         int64
	NativeCurrency string
	NativeAmount   decimal.Decimal
	BaseCurrency   string
	Rate           decimal.Decimal
	BaseAmount     decimal.Decimal
}

// PostedLine is a stored line joined with its entry header and optional FX snapshot.
type PostedLine struct {
	Line
	EntryDate   time.Time
	Description string
	Source      Source
	Snapshot    *FxSnapshot
}

// NativeSigned returns the line's signed amount in its native currency, falling
// back to the base amount for lines that were never foreign-denominated.
func (p PostedLine) NativeSigned() decimal.Decimal {
	if p.Snapshot == nil {
		return p.Signed()
	}
	if p.Debit.IsPositive() {
		return p.Snapshot.NativeAmount
	}
	return p.Snapshot.NativeAmount.Neg()
}
