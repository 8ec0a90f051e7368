package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cadence is the recurrence unit of a subscription.
type Cadence string

const (
	CadenceDaily     Cadence = "daily"
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceYearly    Cadence = "yearly"
)

// ParseCadence accepts any letter case.
func ParseCadence(s string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly, CadenceQuarterly, CadenceYearly:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q must be one of daily/weekly/monthly/quarterly/yearly", ErrInvalidCadence, s)
}

// Subscription is a recurring two-line transaction.
type Subscription struct {
	ID              int64
	Name            string
	Cadence         Cadence
	Interval        int
	NextDueDate     time.Time
	Amount          decimal.Decimal
	DebitAccountID  int64
	CreditAccountID int64
	Memo            string
	AutoPost        bool
	IsActive        bool
	LastRunDate     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
