package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/homebook/internal/model"
)

// mockAccounts implements AccountChecker for testing.
type mockAccounts map[int64]model.Account

func (m mockAccounts) GetAccount(_ context.Context, id int64) (model.Account, error) {
	a, ok := m[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return a, nil
}

var defaultAccounts = mockAccounts{
	110001: {ID: 110001, Name: "지갑", AllowPosting: true},
	510001: {ID: 510001, Name: "외식", AllowPosting: true},
	5100:   {ID: 5100, Name: "식비"},
}

func TestValidateLines_Balanced(t *testing.T) {
	lines := []model.Line{Debit(510001, dec("12000"), ""), Credit(110001, dec("12000"), "")}
	assert.NoError(t, ValidateLines(lines))
}

func TestValidateLines_Rules(t *testing.T) {
	usd := model.NativeAmount{Amount: dec("10"), Currency: "USD", Rate: dec("1300")}
	tests := []struct {
		name     string
		lines    []model.Line
		wantRule int
		wantLine int
		wantErr  error
	}{
		{
			name:     "single line",
			lines:    []model.Line{Debit(510001, dec("1"), "")},
			wantRule: RuleLineCount,
			wantErr:  model.ErrTooFewLines,
		},
		{
			name:     "negative debit",
			lines:    []model.Line{Debit(510001, dec("-5"), ""), Credit(110001, dec("5"), "")},
			wantRule: RuleLineShape,
			wantLine: 1,
			wantErr:  model.ErrNegativeAmount,
		},
		{
			name: "both sides set",
			lines: []model.Line{
				Debit(510001, dec("5"), ""),
				{AccountID: 110001, Debit: dec("5"), Credit: dec("5")},
			},
			wantRule: RuleLineShape,
			wantLine: 2,
			wantErr:  model.ErrMalformedLine,
		},
		{
			name:     "zero line",
			lines:    []model.Line{Debit(510001, dec("0"), ""), Credit(110001, dec("0"), "")},
			wantRule: RuleLineShape,
			wantLine: 1,
			wantErr:  model.ErrMalformedLine,
		},
		{
			name: "native does not match base",
			lines: []model.Line{
				{AccountID: 510001, Debit: dec("12000"), Credit: dec("0"), Native: &usd},
				Credit(110001, dec("12000"), ""),
			},
			wantRule: RuleLineShape,
			wantLine: 1,
			wantErr:  model.ErrMalformedLine,
		},
		{
			name:     "unbalanced",
			lines:    []model.Line{Debit(510001, dec("100"), ""), Credit(110001, dec("99.99"), "")},
			wantRule: RuleBalanced,
			wantErr:  model.ErrUnbalancedEntry,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLines(tt.lines)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "want *ValidationError, got %T", err)
			assert.Equal(t, tt.wantRule, ve.Rule)
			assert.Equal(t, tt.wantLine, ve.Line)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateLines_UnbalancedReportsTotals(t *testing.T) {
	err := ValidateLines([]model.Line{Debit(510001, dec("100"), ""), Credit(110001, dec("90"), "")})
	var ue *model.UnbalancedEntryError
	require.True(t, errors.As(err, &ue))
	assert.True(t, dec("100").Equal(ue.DebitTotal))
	assert.True(t, dec("90").Equal(ue.CreditTotal))
	assert.Contains(t, err.Error(), "debit=100.00, credit=90.00")
}

func TestValidateLines_ForeignLine(t *testing.T) {
	usd := model.NativeAmount{Amount: dec("25.99"), Currency: "USD", Rate: dec("1385.2")}
	lines := []model.Line{ForeignDebit(510001, usd, ""), Credit(110001, dec("36001.35"), "")}
	require.NoError(t, ValidateLines(lines))
	assert.True(t, dec("36001.35").Equal(lines[0].Debit), "25.99 × 1385.2 rounds to cents")
}

func TestValidateAccounts(t *testing.T) {
	ctx := context.Background()

	ok := []model.Line{Debit(510001, dec("1"), ""), Credit(110001, dec("1"), "")}
	assert.NoError(t, ValidateAccounts(ctx, defaultAccounts, ok))

	missing := []model.Line{Debit(510001, dec("1"), ""), Credit(999999, dec("1"), "")}
	err := ValidateAccounts(ctx, defaultAccounts, missing)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, RulePostingAccount, ve.Rule)
	assert.Equal(t, 2, ve.Line)

	aggregate := []model.Line{Debit(5100, dec("1"), ""), Credit(110001, dec("1"), "")}
	err = ValidateAccounts(ctx, defaultAccounts, aggregate)
	assert.ErrorIs(t, err, model.ErrPostingToAggregateAccount)
	assert.Contains(t, err.Error(), "rule 4 [line 1]")
}
