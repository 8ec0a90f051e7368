// Package loan generates repayment schedules and books installment payments.
package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/model"
)

// factorPlaces bounds the precision of (1+i)^n so long terms stay cheap.
const factorPlaces = 20

var (
	one    = decimal.NewFromInt(1)
	twelve = decimal.NewFromInt(12)
)

// Terms are the inputs a schedule is a pure function of.
type Terms struct {
	Principal         decimal.Decimal
	AnnualRate        decimal.Decimal // 0.036 = 3.6%
	TermMonths        int
	Method            model.RepaymentMethod
	StartDate         time.Time
	PaymentDay        int // 1..31, 0 = 1
	GracePeriodMonths int // AMORTIZING only
}

// TermsOf extracts the schedule inputs of a stored loan.
func TermsOf(l model.Loan) Terms {
	return Terms{
		Principal:         l.Principal,
		AnnualRate:        l.AnnualRate,
		TermMonths:        l.TermMonths,
		Method:            l.Method,
		StartDate:         l.StartDate,
		PaymentDay:        l.PaymentDay,
		GracePeriodMonths: l.GracePeriodMonths,
	}
}

// Validate reports the first problem with the terms.
func (t Terms) Validate() error {
	switch {
	case !t.Principal.IsPositive():
		return fmt.Errorf("%w: principal must be positive", model.ErrInvalidLoan)
	case t.AnnualRate.IsNegative():
		return fmt.Errorf("%w: interest rate cannot be negative", model.ErrInvalidLoan)
	case t.TermMonths < 1:
		return fmt.Errorf("%w: term must be at least one month", model.ErrInvalidLoan)
	case t.PaymentDay < 0 || t.PaymentDay > 31:
		return fmt.Errorf("%w: payment day %d out of range 1..31", model.ErrInvalidLoan, t.PaymentDay)
	case t.GracePeriodMonths < 0:
		return fmt.Errorf("%w: grace period cannot be negative", model.ErrInvalidLoan)
	case t.StartDate.IsZero():
		return fmt.Errorf("%w: start date is required", model.ErrInvalidLoan)
	}
	switch t.Method {
	case model.RepaymentAmortizing:
		if t.GracePeriodMonths >= t.TermMonths {
			return fmt.Errorf("%w: grace period of %d months leaves nothing to amortize over %d",
				model.ErrInvalidLoan, t.GracePeriodMonths, t.TermMonths)
		}
	case model.RepaymentBullet, model.RepaymentInterestOnly:
	default:
		return fmt.Errorf("%w: unknown repayment method %q", model.ErrInvalidLoan, t.Method)
	}
	return nil
}

// MonthlyRate is the annual rate divided by twelve.
func (t Terms) MonthlyRate() decimal.Decimal {
	return t.AnnualRate.Div(twelve)
}

// DueDate returns the due date of installment n (1-based).
func (t Terms) DueDate(n int) time.Time {
	day := t.PaymentDay
	if day == 0 {
		day = 1
	}
	return model.AddMonths(model.Day(t.StartDate), n, day)
}

// GenerateSchedule returns one row per installment. Amounts are rounded to
// cents as they are produced so each row adds up exactly.
func GenerateSchedule(t Terms) ([]model.LoanScheduleRow, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	switch t.Method {
	case model.RepaymentBullet:
		return interestOnly(t, true), nil
	case model.RepaymentInterestOnly:
		return interestOnly(t, false), nil
	default:
		return amortizing(t), nil
	}
}

// LevelPayment is the fixed monthly payment that retires principal over n
// months at monthly rate i.
func LevelPayment(principal, i decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	if i.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	factor := one
	growth := one.Add(i)
	for k := 0; k < n; k++ {
		factor = factor.Mul(growth).Round(factorPlaces)
	}
	return principal.Mul(i).Mul(factor).Div(factor.Sub(one)).Round(2)
}

func amortizing(t Terms) []model.LoanScheduleRow {
	i := t.MonthlyRate()
	payment := LevelPayment(t.Principal, i, t.TermMonths-t.GracePeriodMonths)
	balance := t.Principal

	rows := make([]model.LoanScheduleRow, 0, t.TermMonths)
	for n := 1; n <= t.TermMonths; n++ {
		interest := balance.Mul(i).Round(2)
		principal := decimal.Zero
		switch {
		case n <= t.GracePeriodMonths:
		case n == t.TermMonths:
			principal = balance
		default:
			principal = payment.Sub(interest)
			if principal.GreaterThan(balance) {
				principal = balance
			}
		}
		balance = balance.Sub(principal)
		rows = append(rows, row(t, n, principal, interest, balance))
	}
	return rows
}

func interestOnly(t Terms, repayAtEnd bool) []model.LoanScheduleRow {
	interest := t.Principal.Mul(t.MonthlyRate()).Round(2)
	rows := make([]model.LoanScheduleRow, 0, t.TermMonths)
	for n := 1; n <= t.TermMonths; n++ {
		principal, balance := decimal.Zero, t.Principal
		if repayAtEnd && n == t.TermMonths {
			principal, balance = t.Principal, decimal.Zero
		}
		rows = append(rows, row(t, n, principal, interest, balance))
	}
	return rows
}

func row(t Terms, n int, principal, interest, balance decimal.Decimal) model.LoanScheduleRow {
	return model.LoanScheduleRow{
		Installment:      n,
		DueDate:          t.DueDate(n),
		Principal:        principal,
		Interest:         interest,
		Total:            principal.Add(interest),
		RemainingBalance: balance,
		Status:           model.InstallmentPending,
	}
}
