package loan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/homebook/internal/accounts"
	"github.com/cleared-dev/homebook/internal/booktest"
	"github.com/cleared-dev/homebook/internal/fx"
	"github.com/cleared-dev/homebook/internal/journal"
	"github.com/cleared-dev/homebook/internal/model"
)

type fixture struct {
	svc      *Service
	ledger   *journal.Service
	mortgage int64
	bank     int64
	interest int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := booktest.Open(t)
	chart := accounts.NewService(st, "KRW", booktest.Logger())
	_, err := chart.Seed(ctx)
	require.NoError(t, err)

	f := &fixture{}
	f.mortgage, err = chart.Create(ctx, accounts.CreateParams{Name: "아파트 담보대출", Type: model.AccountTypeLiability, ParentID: 2200})
	require.NoError(t, err)
	f.bank, err = chart.Create(ctx, accounts.CreateParams{Name: "급여통장", Type: model.AccountTypeAsset, ParentID: 1200})
	require.NoError(t, err)
	f.interest, err = chart.Create(ctx, accounts.CreateParams{Name: "대출이자", Type: model.AccountTypeExpense, ParentID: 5400})
	require.NoError(t, err)

	f.ledger = journal.NewService(st, fx.NewService(st, booktest.Logger()), journal.Options{}, booktest.Logger())
	f.svc = NewService(f.ledger, booktest.Logger())
	return f
}

func (f *fixture) mortgageLoan() model.Loan {
	return model.Loan{
		Name:               "주택담보대출",
		LiabilityAccountID: f.mortgage,
		Principal:          dec("10000000"),
		AnnualRate:         dec("0.036"),
		TermMonths:         12,
		StartDate:          date(2026, 1, 10),
		Method:             model.RepaymentAmortizing,
		PaymentDay:         25,
	}
}

func TestService_CreateAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, rows, err := f.svc.Create(ctx, f.mortgageLoan())
	require.NoError(t, err)
	assert.NotZero(t, l.ID)
	require.Len(t, rows, 12)
	assert.NotZero(t, rows[0].ID)

	stored, err := f.svc.Schedule(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, stored, 12)
	assert.True(t, stored[0].Principal.Equal(rows[0].Principal))

	sum, err := f.svc.Summary(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, sum.PaidPrincipal.IsZero())
	assert.Equal(t, "10000000.00", sum.RemainingPrincipal.StringFixed(2))
	require.NotNil(t, sum.Next)
	assert.Equal(t, 1, sum.Next.Installment)
	assert.True(t, sum.TotalRepayment.Equal(sum.Loan.Principal.Add(sum.TotalInterest)))

	loans, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestService_CreateRejectsNonLiabilityAccount(t *testing.T) {
	f := newFixture(t)
	l := f.mortgageLoan()
	l.LiabilityAccountID = f.bank

	_, _, err := f.svc.Create(context.Background(), l)
	assert.ErrorIs(t, err, model.ErrInvalidLoan)

	l.LiabilityAccountID = 999999
	_, _, err = f.svc.Create(context.Background(), l)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestService_PayInstallment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, rows, err := f.svc.Create(ctx, f.mortgageLoan())
	require.NoError(t, err)

	entry, paid, err := f.svc.PayInstallment(ctx, PayParams{LoanID: l.ID, PaymentAccountID: f.bank, InterestAccountID: f.interest})
	require.NoError(t, err)
	assert.Equal(t, 1, paid.Installment)
	assert.Equal(t, model.InstallmentPaid, paid.Status)
	assert.Equal(t, entry.ID, paid.JournalEntryID)
	assert.Equal(t, model.SourceLoanPayment, entry.Source)
	assert.Equal(t, rows[0].DueDate, entry.Date)
	require.Len(t, entry.Lines, 3)

	bal, err := f.ledger.AccountBalances(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "819672.57", bal[f.mortgage].StringFixed(2))
	assert.Equal(t, "30000.00", bal[f.interest].StringFixed(2))
	assert.Equal(t, "-849672.57", bal[f.bank].StringFixed(2))

	sum, err := f.svc.Summary(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.PaidInstallments)
	assert.Equal(t, "819672.57", sum.PaidPrincipal.StringFixed(2))
	require.NotNil(t, sum.Next)
	assert.Equal(t, 2, sum.Next.Installment)

	_, _, err = f.svc.PayInstallment(ctx, PayParams{LoanID: l.ID, Installment: 1, PaymentAccountID: f.bank, InterestAccountID: f.interest})
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	_, _, err = f.svc.PayInstallment(ctx, PayParams{LoanID: l.ID, Installment: 13, PaymentAccountID: f.bank, InterestAccountID: f.interest})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.svc.Regenerate(ctx, l.ID)
	assert.ErrorIs(t, err, model.ErrInvalidLoan)
}

func TestService_PayInstallmentRollsBackOnBadAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, _, err := f.svc.Create(ctx, f.mortgageLoan())
	require.NoError(t, err)

	// 5400 is an aggregate root.
	_, _, err = f.svc.PayInstallment(ctx, PayParams{LoanID: l.ID, PaymentAccountID: f.bank, InterestAccountID: 5400})
	assert.ErrorIs(t, err, model.ErrPostingToAggregateAccount)

	sum, err := f.svc.Summary(ctx, l.ID)
	require.NoError(t, err)
	assert.Zero(t, sum.PaidInstallments)
}

func TestService_Regenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, rows, err := f.svc.Create(ctx, f.mortgageLoan())
	require.NoError(t, err)

	again, err := f.svc.Regenerate(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, again, len(rows))
	assert.True(t, again[11].Total.Equal(rows[11].Total))

	_, err = f.svc.Regenerate(ctx, 9999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
