package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RepaymentMethod selects how a loan's principal is paid down.
type RepaymentMethod string

const (
	RepaymentAmortizing   RepaymentMethod = "AMORTIZING"
	RepaymentBullet       RepaymentMethod = "BULLET"
	RepaymentInterestOnly RepaymentMethod = "INTEREST_ONLY"
)

// ParseRepaymentMethod accepts the canonical names plus "AMORTIZATION".
func ParseRepaymentMethod(s string) (RepaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AMORTIZING", "AMORTIZATION":
		return RepaymentAmortizing, nil
	case "BULLET":
		return RepaymentBullet, nil
	case "INTEREST_ONLY", "INTEREST-ONLY":
		return RepaymentInterestOnly, nil
	}
	return "", fmt.Errorf("%w: unknown repayment method %q", ErrInvalidLoan, s)
}

// Loan holds the terms a schedule is generated from.
type Loan struct {
	ID                 int64
	Name               string
	LiabilityAccountID int64
	AssetID            int64 // 0 = not secured by a tracked asset
	Principal          decimal.Decimal
	AnnualRate         decimal.Decimal // 0.036 = 3.6%
	TermMonths         int
	StartDate          time.Time
	Method             RepaymentMethod
	PaymentDay         int
	GracePeriodMonths  int
	Note               string
	CreatedAt          time.Time
}

// InstallmentStatus tracks whether a schedule row has been paid.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
)

// LoanScheduleRow is one installment of a loan schedule.
type LoanScheduleRow struct {
	ID               int64
	LoanID           int64
	Installment      int
	DueDate          time.Time
	Principal        decimal.Decimal
	Interest         decimal.Decimal
	Total            decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           InstallmentStatus
	JournalEntryID   int64
}
