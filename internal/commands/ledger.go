package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/journal"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

func newPostCommand(a *app) *cobra.Command {
	var date, desc, memo string
	var debits, credits []string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a balanced journal entry",
		Example: `  homebook post --desc "점심" --debit 510001=12000 --credit 110001=12000
  homebook post --desc "Amazon" --debit 590001=25.99USD@1385.2 --credit 210001=36000`,
		Args: cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := dateOrToday(date)
			if err != nil {
				return err
			}
			var lines []model.Line
			for _, side := range []struct {
				specs []string
				debit bool
			}{{debits, true}, {credits, false}} {
				for _, s := range side.specs {
					l, err := a.buildLine(cmd, s, side.debit, memo)
					if err != nil {
						return err
					}
					lines = append(lines, l)
				}
			}
			e, err := a.ledger.Post(ctx, journal.PostParams{Date: d, Description: desc, Lines: lines})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted entry %d on %s (%d lines)\n", e.ID, formatDate(e.Date), len(e.Lines))
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "entry date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&desc, "desc", "", "description")
	cmd.Flags().StringVar(&memo, "memo", "", "memo applied to every line")
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit line ACCOUNT=AMOUNT[CUR[@RATE]] (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit line ACCOUNT=AMOUNT[CUR[@RATE]] (repeatable)")
	return cmd
}

// buildLine turns a line spec into a journal line. Foreign lines without an
// explicit rate use the latest rate on file.
func (a *app) buildLine(cmd *cobra.Command, s string, debit bool, memo string) (model.Line, error) {
	spec, err := parseLineSpec(s)
	if err != nil {
		return model.Line{}, err
	}
	if spec.Currency == "" || spec.Currency == a.ledger.BaseCurrency() {
		if debit {
			return journal.Debit(spec.AccountID, spec.Amount, memo), nil
		}
		return journal.Credit(spec.AccountID, spec.Amount, memo), nil
	}
	if spec.Rate.IsZero() {
		if spec.Rate, err = a.rates.Rate(cmd.Context(), a.ledger.BaseCurrency(), spec.Currency); err != nil {
			return model.Line{}, err
		}
	}
	native := model.NativeAmount{Amount: spec.Amount, Currency: spec.Currency, Rate: spec.Rate}
	if debit {
		return journal.ForeignDebit(spec.AccountID, native, memo), nil
	}
	return journal.ForeignCredit(spec.AccountID, native, memo), nil
}

func newBalancesCommand(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show debit-minus-credit balances per account",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			at, err := optionalDate(asOf)
			if err != nil {
				return err
			}
			bal, err := a.ledger.AccountBalancesMulti(ctx, at)
			if err != nil {
				return err
			}
			chart, err := a.chart.List(ctx)
			if err != nil {
				return err
			}
			base := a.ledger.BaseCurrency()
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tBALANCE\tNATIVE")
			for _, acct := range chart {
				b, ok := bal[acct.ID]
				if !ok {
					continue
				}
				native := ""
				if acct.Currency != "" && acct.Currency != base {
					native = model.FormatAmount(b.Native, acct.Currency)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", acct.ID, acct.Name, model.FormatAmount(b.Base, base), native)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "include entries dated on or before YYYY-MM-DD")
	return cmd
}

func newTrialBalanceCommand(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Show the trial balance",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			at, err := optionalDate(asOf)
			if err != nil {
				return err
			}
			tb, err := a.ledger.TrialBalance(cmd.Context(), at)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tDEBIT\tCREDIT")
			for _, r := range tb.Rows {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Account.ID, r.Account.Name, r.Debit.StringFixed(2), r.Credit.StringFixed(2))
			}
			fmt.Fprintf(w, "\tTOTAL\t%s\t%s\n", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2))
			if err := w.Flush(); err != nil {
				return err
			}
			if !tb.Balanced() {
				a.log.Error("trial balance does not balance", "debit", tb.TotalDebit, "credit", tb.TotalCredit)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "include entries dated on or before YYYY-MM-DD")
	return cmd
}

func newBalanceSheetCommand(a *app) *cobra.Command {
	var asOf, display string
	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Show assets, liabilities and equity marked to market",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			at, err := optionalDate(asOf)
			if err != nil {
				return err
			}
			bs, err := a.ledger.BalanceSheet(cmd.Context(), at, display)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "ACCOUNT\tBOOK (%s)\tCURRENT (%s)\tDISPLAY (%s)\n", bs.BaseCurrency, bs.BaseCurrency, bs.DisplayCurrency)
			for _, section := range []struct {
				title string
				items []journal.BalanceSheetItem
				total string
			}{
				{"Assets", bs.Assets, model.FormatAmount(bs.DisplayAssets, bs.DisplayCurrency)},
				{"Liabilities", bs.Liabilities, model.FormatAmount(bs.DisplayLiabilities, bs.DisplayCurrency)},
				{"Equity", bs.Equity, model.FormatAmount(bs.DisplayEquity, bs.DisplayCurrency)},
			} {
				fmt.Fprintf(w, "%s\t\t\t%s\n", section.title, section.total)
				for _, i := range section.items {
					fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", i.Account.Name, i.Book.StringFixed(2), i.Current.StringFixed(2),
						model.FormatAmount(i.Display, bs.DisplayCurrency))
				}
			}
			fmt.Fprintf(w, "Net worth\t\t%s\t%s\n", bs.NetWorth.StringFixed(2), model.FormatAmount(bs.DisplayNetWorth, bs.DisplayCurrency))
			if err := w.Flush(); err != nil {
				return err
			}
			if len(bs.MissingRates) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: no fx rate for %s; book values used\n", formatPairs(bs.MissingRates))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "include entries dated on or before YYYY-MM-DD")
	cmd.Flags().StringVar(&display, "display", "", "display currency (default: base currency)")
	return cmd
}

func newIncomeStatementCommand(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "income-statement",
		Short: "Show income and expense for a period",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			start, err := model.ParseDate(from)
			if err != nil {
				return err
			}
			end, err := model.ParseDate(to)
			if err != nil {
				return err
			}
			if end.Before(start) {
				return model.ErrInvalidPeriod
			}
			is, err := a.ledger.IncomeStatement(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			base := a.ledger.BaseCurrency()
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "Income\t%s\n", model.FormatAmount(is.TotalIncome, base))
			for _, r := range is.Income {
				fmt.Fprintf(w, "  %s\t%s\n", r.Account.Name, model.FormatAmount(r.Amount, base))
			}
			fmt.Fprintf(w, "Expense\t%s\n", model.FormatAmount(is.TotalExpense, base))
			for _, r := range is.Expense {
				fmt.Fprintf(w, "  %s\t%s\n", r.Account.Name, model.FormatAmount(r.Amount, base))
			}
			fmt.Fprintf(w, "Net profit\t%s\n", model.FormatAmount(is.NetProfit, base))
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newCashflowCommand(a *app) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "cashflow",
		Short: "Show monthly cash movement for a year",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			cf, err := a.ledger.MonthlyCashflow(cmd.Context(), year)
			if err != nil {
				return err
			}
			base := a.ledger.BaseCurrency()
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "Opening\t\t%s\n", model.FormatAmount(cf.OpeningBalance, base))
			fmt.Fprintln(w, "MONTH\tNET\tENDING")
			for _, m := range cf.Months {
				fmt.Fprintf(w, "%d-%02d\t%s\t%s\n", cf.Year, int(m.Month), model.FormatAmount(m.NetChange, base),
					model.FormatAmount(m.EndingBalance, base))
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "calendar year")
	return cmd
}

func newJournalCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and export journal entries",
	}
	cmd.AddCommand(newJournalExportCommand(a), newJournalShowCommand(a), newJournalDeleteCommand(a))
	return cmd
}

func newJournalExportCommand(a *app) *cobra.Command {
	var from, to string
	var accountIDs []int64
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write journal lines as CSV",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			var f store.LineFilter
			var err error
			if f.From, err = optionalDate(from); err != nil {
				return err
			}
			if f.To, err = optionalDate(to); err != nil {
				return err
			}
			f.AccountIDs = accountIDs
			return a.ledger.Export(cmd.Context(), cmd.OutOrStdout(), f)
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD")
	cmd.Flags().Int64SliceVar(&accountIDs, "account", nil, "restrict to these account ids")
	return cmd
}

func newJournalShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry>",
		Short: "Show one entry with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryRef(args[0])
			if err != nil {
				return err
			}
			e, err := a.ledger.GetEntry(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  %s  [%s]\n", entryRef(e), formatDate(e.Date), e.Description, e.Source)
			w := newTable(out)
			fmt.Fprintln(w, "ACCOUNT\tDEBIT\tCREDIT\tNATIVE\tMEMO")
			for _, l := range e.Lines {
				native := ""
				if l.Native != nil {
					native = fmt.Sprintf("%s %s @ %s", l.Native.Amount, l.Native.Currency, l.Native.Rate)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", l.AccountID, l.Debit.StringFixed(2), l.Credit.StringFixed(2), native, l.Memo)
			}
			return w.Flush()
		}),
	}
}

func newJournalDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry>",
		Short: "Delete a whole entry",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryRef(args[0])
			if err != nil {
				return err
			}
			if err := a.ledger.DeleteEntry(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %d\n", id)
			return nil
		}),
	}
}
