package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/model"
)

// Validation rules, checked in this order.
const (
	RuleLineCount = 1 + iota
	RuleLineShape
	RuleBalanced
	RulePostingAccount
)

// ValidationError describes the first rule an entry breaks. Line is 1-based,
// 0 when the rule applies to the whole entry.
type ValidationError struct {
	Rule int
	Line int
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("rule %d: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("rule %d [line %d]: %v", e.Rule, e.Line, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AccountChecker looks up accounts referenced by lines. *store.Tx satisfies it.
type AccountChecker interface {
	GetAccount(ctx context.Context, id int64) (model.Account, error)
}

// ValidateLines checks the structural rules that need no lookups: line count,
// one positive side per line, a consistent native snapshot, and balance.
func ValidateLines(lines []model.Line) error {
	if len(lines) < 2 {
		return &ValidationError{Rule: RuleLineCount, Err: fmt.Errorf("%w, got %d", model.ErrTooFewLines, len(lines))}
	}

	for i, l := range lines {
		if err := validateLine(l); err != nil {
			return &ValidationError{Rule: RuleLineShape, Line: i + 1, Err: err}
		}
	}

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		totalDebit = totalDebit.Add(l.Debit)
		totalCredit = totalCredit.Add(l.Credit)
	}
	if !totalDebit.Round(2).Equal(totalCredit.Round(2)) {
		return &ValidationError{Rule: RuleBalanced, Err: &model.UnbalancedEntryError{DebitTotal: totalDebit, CreditTotal: totalCredit}}
	}
	return nil
}

func validateLine(l model.Line) error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return fmt.Errorf("%w: debit=%s credit=%s", model.ErrNegativeAmount, l.Debit, l.Credit)
	}
	if l.Debit.IsPositive() == l.Credit.IsPositive() {
		return fmt.Errorf("%w: exactly one of debit or credit must be positive", model.ErrMalformedLine)
	}
	if l.Native == nil {
		return nil
	}
	n := l.Native
	if _, err := model.NormalizeCurrency(n.Currency); err != nil || n.Currency == "" {
		return fmt.Errorf("%w: native currency %q", model.ErrMalformedLine, n.Currency)
	}
	if !n.Amount.IsPositive() || !n.Rate.IsPositive() {
		return fmt.Errorf("%w: native amount and rate must be positive", model.ErrMalformedLine)
	}
	if want := n.BaseAmount(); !l.Amount().Equal(want) {
		return fmt.Errorf("%w: base amount %s does not match %s × %s = %s",
			model.ErrMalformedLine, l.Amount(), n.Amount, n.Rate, want)
	}
	return nil
}

// ValidateAccounts checks every referenced account exists and accepts postings.
func ValidateAccounts(ctx context.Context, accounts AccountChecker, lines []model.Line) error {
	for i, l := range lines {
		a, err := accounts.GetAccount(ctx, l.AccountID)
		if errors.Is(err, model.ErrAccountNotFound) {
			return &ValidationError{Rule: RulePostingAccount, Line: i + 1, Err: err}
		}
		if err != nil {
			return err
		}
		if !a.AllowPosting {
			return &ValidationError{Rule: RulePostingAccount, Line: i + 1,
				Err: fmt.Errorf("%w: %q (%d)", model.ErrPostingToAggregateAccount, a.Name, a.ID)}
		}
	}
	return nil
}

// Debit builds a debit line in the base currency.
func Debit(accountID int64, amount decimal.Decimal, memo string) model.Line {
	return model.Line{AccountID: accountID, Debit: amount, Credit: decimal.Zero, Memo: memo}
}

// Credit builds a credit line in the base currency.
func Credit(accountID int64, amount decimal.Decimal, memo string) model.Line {
	return model.Line{AccountID: accountID, Debit: decimal.Zero, Credit: amount, Memo: memo}
}

// ForeignDebit builds a debit line whose base amount is native converted at its rate.
func ForeignDebit(accountID int64, native model.NativeAmount, memo string) model.Line {
	l := Debit(accountID, native.BaseAmount(), memo)
	l.Native = &native
	return l
}

// ForeignCredit builds a credit line whose base amount is native converted at its rate.
func ForeignCredit(accountID int64, native model.NativeAmount, memo string) model.Line {
	l := Credit(accountID, native.BaseAmount(), memo)
	l.Native = &native
	return l
}
