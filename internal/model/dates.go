package model

import (
	"fmt"
	"time"
)

// DateFormat is the storage and display format for calendar dates.
const DateFormat = "2006-01-02"

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day strips the clock from t, keeping its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q want format %q: %w", s, DateFormat, err)
	}
	return t, nil
}

// DaysIn returns the length of the month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// AddMonths moves t forward by months calendar months and places it on
// min(day, last day of the target month).
func AddMonths(t time.Time, months, day int) time.Time {
	idx := int(t.Month()) - 1 + months
	year := t.Year() + floorDiv(idx, 12)
	month := time.Month(idx - floorDiv(idx, 12)*12 + 1)
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return Date(year, month, day)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
