// Package subscription schedules recurring two-line transactions and books
// them when they fall due.
package subscription

import (
	"fmt"
	"time"

	"github.com/cleared-dev/homebook/internal/model"
)

// Advance returns the occurrence after d. Calendar cadences keep d's day of
// month, clamped to the length of the target month.
func Advance(d time.Time, cadence model.Cadence, interval int) (time.Time, error) {
	if interval < 1 {
		return time.Time{}, fmt.Errorf("%w: interval must be at least 1, got %d", model.ErrInvalidCadence, interval)
	}
	d = model.Day(d)
	switch cadence {
	case model.CadenceDaily:
		return d.AddDate(0, 0, interval), nil
	case model.CadenceWeekly:
		return d.AddDate(0, 0, 7*interval), nil
	case model.CadenceMonthly:
		return model.AddMonths(d, interval, d.Day()), nil
	case model.CadenceQuarterly:
		return model.AddMonths(d, 3*interval, d.Day()), nil
	case model.CadenceYearly:
		return model.AddMonths(d, 12*interval, d.Day()), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidCadence, cadence)
}

// Occurrences lists the due dates of s falling within [start, end], starting
// from its stored next due date.
func Occurrences(s model.Subscription, start, end time.Time) ([]time.Time, error) {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s < %s", model.ErrInvalidPeriod,
			end.Format(model.DateFormat), start.Format(model.DateFormat))
	}
	due := model.Day(s.NextDueDate)
	var out []time.Time
	for !due.After(end) {
		if !due.Before(start) {
			out = append(out, due)
		}
		next, err := Advance(due, s.Cadence, s.Interval)
		if err != nil {
			return nil, err
		}
		due = next
	}
	return out, nil
}
