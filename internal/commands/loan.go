package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/loan"
	"github.com/cleared-dev/homebook/internal/model"
)

func newLoanCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Track loans and their repayment schedules",
	}
	cmd.AddCommand(
		newLoanCreateCommand(a),
		newLoanListCommand(a),
		newLoanScheduleCommand(a),
		newLoanRegenerateCommand(a),
		newLoanPayCommand(a),
	)
	return cmd
}

func newLoanCreateCommand(a *app) *cobra.Command {
	var l model.Loan
	var principal, rate, start, method string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a loan and generate its schedule",
		Example: `  homebook loan create --name 주담대 --liability 220001 --principal 300000000 --rate 0.042 --term 360 --start 2026-01-10 --payment-day 25`,
		Args:    cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			var err error
			if l.Principal, err = parseAmount(principal); err != nil {
				return err
			}
			if l.AnnualRate, err = parseAmount(rate); err != nil {
				return err
			}
			if l.StartDate, err = model.ParseDate(start); err != nil {
				return err
			}
			if l.Method, err = model.ParseRepaymentMethod(method); err != nil {
				return err
			}
			created, rows, err := a.loans.Create(cmd.Context(), l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created loan %d %s with %d installments\n", created.ID, created.Name, len(rows))
			return nil
		}),
	}
	cmd.Flags().StringVar(&l.Name, "name", "", "loan name (required)")
	cmd.Flags().Int64Var(&l.LiabilityAccountID, "liability", 0, "liability account id (required)")
	cmd.Flags().Int64Var(&l.AssetID, "asset", 0, "secured asset id")
	cmd.Flags().StringVar(&principal, "principal", "", "principal amount (required)")
	cmd.Flags().StringVar(&rate, "rate", "0", "annual interest rate, 0.042 = 4.2%")
	cmd.Flags().IntVar(&l.TermMonths, "term", 0, "term in months (required)")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&method, "method", string(model.RepaymentAmortizing), "AMORTIZING, BULLET or INTEREST_ONLY")
	cmd.Flags().IntVar(&l.PaymentDay, "payment-day", 1, "day of month payments fall due")
	cmd.Flags().IntVar(&l.GracePeriodMonths, "grace", 0, "interest-only months before amortizing")
	cmd.Flags().StringVar(&l.Note, "note", "", "note")
	for _, f := range []string{"name", "liability", "principal", "term", "start"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newLoanListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loans",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			loans, err := a.loans.List(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tPRINCIPAL\tRATE\tTERM\tMETHOD\tSTART")
			for _, l := range loans {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n", l.ID, l.Name, l.Principal.StringFixed(2), l.AnnualRate,
					l.TermMonths, l.Method, formatDate(l.StartDate))
			}
			return w.Flush()
		}),
	}
}

func newLoanScheduleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <loan>",
		Short: "Show a loan's schedule and summary",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sum, err := a.loans.Summary(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeSchedule(cmd.OutOrStdout(), sum)
		}),
	}
}

func newLoanRegenerateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <loan>",
		Short: "Rebuild an unpaid loan's schedule from its terms",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rows, err := a.loans.Regenerate(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Regenerated loan %d with %d installments\n", id, len(rows))
			return nil
		}),
	}
}

func writeSchedule(out io.Writer, sum loan.Summary) error {
	w := newTable(out)
	fmt.Fprintln(w, "#\tDUE\tPRINCIPAL\tINTEREST\tTOTAL\tREMAINING\tSTATUS")
	for _, r := range sum.Schedule {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Installment, formatDate(r.DueDate), r.Principal.StringFixed(2),
			r.Interest.StringFixed(2), r.Total.StringFixed(2), r.RemainingBalance.StringFixed(2), r.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Total interest %s, total repayment %s, paid principal %s, remaining %s\n",
		sum.TotalInterest.StringFixed(2), sum.TotalRepayment.StringFixed(2),
		sum.PaidPrincipal.StringFixed(2), sum.RemainingPrincipal.StringFixed(2))
	if sum.Next != nil {
		fmt.Fprintf(out, "Next payment #%d on %s: %s\n", sum.Next.Installment, formatDate(sum.Next.DueDate), sum.Next.Total.StringFixed(2))
	}
	return nil
}

func newLoanPayCommand(a *app) *cobra.Command {
	var p loan.PayParams
	var date string
	cmd := &cobra.Command{
		Use:   "pay <loan>",
		Short: "Book an installment payment",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			var err error
			if p.LoanID, err = parseID(args[0]); err != nil {
				return err
			}
			if p.Date, err = optionalDate(date); err != nil {
				return err
			}
			e, row, err := a.loans.PayInstallment(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paid installment %d (%s) in entry %d\n", row.Installment, row.Total.StringFixed(2), e.ID)
			return nil
		}),
	}
	cmd.Flags().IntVar(&p.Installment, "installment", 0, "installment number (default: next pending)")
	cmd.Flags().Int64Var(&p.PaymentAccountID, "from", 0, "account the payment leaves (required)")
	cmd.Flags().Int64Var(&p.InterestAccountID, "interest", 0, "interest expense account (required)")
	cmd.Flags().StringVar(&date, "date", "", "payment date YYYY-MM-DD (default: due date)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("interest")
	return cmd
}
