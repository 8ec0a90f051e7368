package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation failures. Nothing is written when one of these is returned.
var (
	ErrTooFewLines               = errors.New("journal entry must have at least 2 lines")
	ErrMalformedLine             = errors.New("malformed journal line")
	ErrUnbalancedEntry           = errors.New("unbalanced entry")
	ErrNegativeAmount            = errors.New("amount cannot be negative")
	ErrPostingToAggregateAccount = errors.New("cannot post to an aggregate account")
	ErrInvalidCadence            = errors.New("invalid cadence")
	ErrInvalidLoan               = errors.New("invalid loan terms")
	ErrInvalidCurrency           = errors.New("invalid currency")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrInvalidPeriod             = errors.New("end date is before start date")
)

// Referential failures.
var (
	ErrNotFound               = errors.New("not found")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidParent          = errors.New("invalid parent account")
	ErrSystemAccountImmutable = errors.New("system accounts are immutable")
	ErrHasChildren            = errors.New("account has child accounts")
	ErrHasPostedLines         = errors.New("account has posted journal lines")
	ErrLinkedToAsset          = errors.New("account is linked to an asset")
	ErrAlreadyExists          = errors.New("already exists")
	ErrEquityAccountMissing   = errors.New("opening equity account not found")
)

// ErrCapacityExceeded is returned when a parent has no free child ids left.
var ErrCapacityExceeded = errors.New("account id range exhausted")

// ErrMissingRate is returned by direct rate lookups. Reports never return it;
// they list the missing pair instead.
var ErrMissingRate = errors.New("no fx rate on file")

// UnbalancedEntryError reports the totals of an entry whose sides disagree.
type UnbalancedEntryError struct {
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced entry: debit=%s, credit=%s", e.DebitTotal.StringFixed(2), e.CreditTotal.StringFixed(2))
}

// Is lets errors.Is(err, ErrUnbalancedEntry) match.
func (e *UnbalancedEntryError) Is(target error) bool {
	return target == ErrUnbalancedEntry
}

// ErrorKind groups errors the way callers present them.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindReferential ErrorKind = "referential"
	KindCapacity    ErrorKind = "capacity"
	KindDataGap     ErrorKind = "data_gap"
	KindInternal    ErrorKind = "internal"
)

var kinds = []struct {
	kind ErrorKind
	errs []error
}{
	{KindValidation, []error{
		ErrTooFewLines, ErrMalformedLine, ErrUnbalancedEntry, ErrNegativeAmount,
		ErrPostingToAggregateAccount, ErrInvalidCadence, ErrInvalidLoan, ErrInvalidCurrency, ErrInvalidAmount,
		ErrInvalidPeriod,
	}},
	{KindReferential, []error{
		ErrNotFound, ErrAccountNotFound, ErrInvalidParent, ErrSystemAccountImmutable, ErrHasChildren,
		ErrHasPostedLines, ErrLinkedToAsset, ErrAlreadyExists, ErrEquityAccountMissing,
	}},
	{KindCapacity, []error{ErrCapacityExceeded}},
	{KindDataGap, []error{ErrMissingRate}},
}

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}
