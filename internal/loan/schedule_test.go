package loan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/homebook/internal/booktest"
	"github.com/cleared-dev/homebook/internal/model"
)

var (
	dec  = booktest.Dec
	date = booktest.Date
)

func sumPrincipal(rows []model.LoanScheduleRow) string {
	total := dec("0")
	for _, r := range rows {
		total = total.Add(r.Principal)
	}
	return total.StringFixed(2)
}

func TestGenerateSchedule_Amortizing(t *testing.T) {
	rows, err := GenerateSchedule(Terms{
		Principal:  dec("10000000"),
		AnnualRate: dec("0.036"),
		TermMonths: 12,
		Method:     model.RepaymentAmortizing,
		StartDate:  date(2026, 1, 10),
		PaymentDay: 25,
	})
	require.NoError(t, err)
	require.Len(t, rows, 12)

	first, last := rows[0], rows[11]
	assert.Equal(t, date(2026, 2, 25), first.DueDate)
	assert.Equal(t, "30000.00", first.Interest.StringFixed(2))
	assert.Equal(t, "819672.57", first.Principal.StringFixed(2))
	assert.Equal(t, "849672.57", first.Total.StringFixed(2))

	assert.Equal(t, date(2027, 1, 25), last.DueDate)
	assert.Equal(t, "847131.21", last.Principal.StringFixed(2))
	assert.Equal(t, "849672.60", last.Total.StringFixed(2))
	assert.True(t, last.RemainingBalance.IsZero())

	assert.Equal(t, "10000000.00", sumPrincipal(rows))
	for i, r := range rows {
		assert.Equal(t, i+1, r.Installment)
		assert.True(t, r.Total.Equal(r.Principal.Add(r.Interest)))
		assert.Equal(t, model.InstallmentPending, r.Status)
	}
}

func TestGenerateSchedule_ZeroRate(t *testing.T) {
	rows, err := GenerateSchedule(Terms{
		Principal:  dec("1000"),
		AnnualRate: dec("0"),
		TermMonths: 3,
		Method:     model.RepaymentAmortizing,
		StartDate:  date(2026, 1, 1),
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "333.33", rows[0].Principal.StringFixed(2))
	assert.Equal(t, "333.33", rows[1].Principal.StringFixed(2))
	assert.Equal(t, "333.34", rows[2].Principal.StringFixed(2))
	for _, r := range rows {
		assert.True(t, r.Interest.IsZero())
	}
	assert.True(t, rows[2].RemainingBalance.IsZero())
}

func TestGenerateSchedule_GracePeriod(t *testing.T) {
	rows, err := GenerateSchedule(Terms{
		Principal:         dec("1200000"),
		AnnualRate:        dec("0.12"),
		TermMonths:        4,
		Method:            model.RepaymentAmortizing,
		StartDate:         date(2026, 1, 1),
		GracePeriodMonths: 2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	for _, r := range rows[:2] {
		assert.True(t, r.Principal.IsZero())
		assert.Equal(t, "12000.00", r.Interest.StringFixed(2))
		assert.Equal(t, "1200000.00", r.RemainingBalance.StringFixed(2))
	}
	assert.Equal(t, "597014.93", rows[2].Principal.StringFixed(2))
	assert.Equal(t, "609014.93", rows[2].Total.StringFixed(2))
	assert.Equal(t, "602985.07", rows[2].RemainingBalance.StringFixed(2))
	assert.Equal(t, "6029.85", rows[3].Interest.StringFixed(2))
	assert.Equal(t, "602985.07", rows[3].Principal.StringFixed(2))
	assert.True(t, rows[3].RemainingBalance.IsZero())
	assert.Equal(t, "1200000.00", sumPrincipal(rows))
}

func TestGenerateSchedule_InterestOnlyMethods(t *testing.T) {
	terms := Terms{
		Principal:  dec("1200000"),
		AnnualRate: dec("0.12"),
		TermMonths: 3,
		StartDate:  date(2026, 1, 1),
		PaymentDay: 15,
	}

	t.Run("bullet", func(t *testing.T) {
		terms := terms
		terms.Method = model.RepaymentBullet
		rows, err := GenerateSchedule(terms)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for _, r := range rows[:2] {
			assert.True(t, r.Principal.IsZero())
			assert.Equal(t, "12000.00", r.Total.StringFixed(2))
			assert.Equal(t, "1200000.00", r.RemainingBalance.StringFixed(2))
		}
		assert.Equal(t, "1200000.00", rows[2].Principal.StringFixed(2))
		assert.Equal(t, "1212000.00", rows[2].Total.StringFixed(2))
		assert.True(t, rows[2].RemainingBalance.IsZero())
	})

	t.Run("interest only", func(t *testing.T) {
		terms := terms
		terms.Method = model.RepaymentInterestOnly
		rows, err := GenerateSchedule(terms)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for _, r := range rows {
			assert.True(t, r.Principal.IsZero())
			assert.Equal(t, "12000.00", r.Interest.StringFixed(2))
			assert.Equal(t, "1200000.00", r.RemainingBalance.StringFixed(2))
		}
		assert.Equal(t, date(2026, 4, 15), rows[2].DueDate)
	})
}

func TestTerms_DueDateClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		start time.Time
		n     int
		want  time.Time
	}{
		{date(2026, 1, 31), 1, date(2026, 2, 28)},
		{date(2026, 1, 31), 2, date(2026, 3, 31)},
		{date(2026, 1, 31), 3, date(2026, 4, 30)},
		{date(2027, 12, 31), 2, date(2028, 2, 29)},
		{date(2026, 11, 30), 2, date(2027, 1, 31)},
	}
	for _, tt := range tests {
		terms := Terms{StartDate: tt.start, PaymentDay: 31}
		assert.Equal(t, tt.want, terms.DueDate(tt.n), "start %s + %d", tt.start.Format(model.DateFormat), tt.n)
	}
}

func TestTerms_Validate(t *testing.T) {
	valid := Terms{
		Principal:  dec("1000"),
		AnnualRate: dec("0.05"),
		TermMonths: 12,
		Method:     model.RepaymentAmortizing,
		StartDate:  date(2026, 1, 1),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(*Terms)
	}{
		{"zero principal", func(t *Terms) { t.Principal = dec("0") }},
		{"negative rate", func(t *Terms) { t.AnnualRate = dec("-0.01") }},
		{"no term", func(t *Terms) { t.TermMonths = 0 }},
		{"payment day", func(t *Terms) { t.PaymentDay = 32 }},
		{"negative grace", func(t *Terms) { t.GracePeriodMonths = -1 }},
		{"grace covers term", func(t *Terms) { t.GracePeriodMonths = 12 }},
		{"unknown method", func(t *Terms) { t.Method = "BALLOON" }},
		{"no start date", func(t *Terms) { t.StartDate = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := valid
			tt.modify(&terms)
			_, err := GenerateSchedule(terms)
			assert.ErrorIs(t, err, model.ErrInvalidLoan)
		})
	}
}
