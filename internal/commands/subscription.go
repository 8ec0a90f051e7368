package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/subscription"
)

func newSubscriptionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Manage recurring transactions",
	}
	cmd.AddCommand(
		newSubscriptionCreateCommand(a),
		newSubscriptionListCommand(a),
		newSubscriptionSetActiveCommand(a, "pause", "Stop processing a subscription", false),
		newSubscriptionSetActiveCommand(a, "resume", "Resume a paused subscription", true),
		newSubscriptionProjectCommand(a),
		newSubscriptionProcessCommand(a),
	)
	return cmd
}

func newSubscriptionCreateCommand(a *app) *cobra.Command {
	var p subscription.CreateParams
	var cadence, next, amount string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a subscription",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			var err error
			if p.Cadence, err = model.ParseCadence(cadence); err != nil {
				return err
			}
			if p.NextDueDate, err = model.ParseDate(next); err != nil {
				return err
			}
			if p.Amount, err = parseAmount(amount); err != nil {
				return err
			}
			sub, err := a.subs.Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created subscription %d %s, next due %s\n", sub.ID, sub.Name, formatDate(sub.NextDueDate))
			return nil
		}),
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "name (required)")
	cmd.Flags().StringVar(&cadence, "cadence", string(model.CadenceMonthly), "daily, weekly, monthly, quarterly or yearly")
	cmd.Flags().IntVar(&p.Interval, "interval", 1, "repeat every N cadence units")
	cmd.Flags().StringVar(&next, "next", "", "next due date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (required)")
	cmd.Flags().Int64Var(&p.DebitAccountID, "debit", 0, "debit account id (required)")
	cmd.Flags().Int64Var(&p.CreditAccountID, "credit", 0, "credit account id (required)")
	cmd.Flags().StringVar(&p.Memo, "memo", "", "memo")
	cmd.Flags().BoolVar(&p.AutoPost, "auto-post", false, "post an entry for each processed occurrence")
	for _, f := range []string{"name", "next", "amount", "debit", "credit"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newSubscriptionListCommand(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions by next due date",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			subs, err := a.subs.List(cmd.Context(), !all)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tEVERY\tNEXT\tAMOUNT\tDEBIT\tCREDIT\tAUTO\tACTIVE")
			for _, s := range subs {
				fmt.Fprintf(w, "%d\t%s\t%d %s\t%s\t%s\t%d\t%d\t%t\t%t\n", s.ID, s.Name, s.Interval, s.Cadence,
					formatDate(s.NextDueDate), s.Amount.StringFixed(2), s.DebitAccountID, s.CreditAccountID, s.AutoPost, s.IsActive)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "include paused subscriptions")
	return cmd
}

func newSubscriptionSetActiveCommand(a *app, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <subscription>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.subs.SetActive(cmd.Context(), id, active)
		}),
	}
}

func newSubscriptionProjectCommand(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List upcoming occurrences without changing anything",
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
			rows, err := a.subs.Project(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "DUE\tNAME\tAMOUNT\tDEBIT\tCREDIT")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", formatDate(r.DueDate), r.Name, r.Amount.StringFixed(2), r.DebitAccountID, r.CreditAccountID)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSubscriptionProcessCommand(a *app) *cobra.Command {
	var asOf string
	var noPost bool
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Advance due subscriptions, posting auto-post ones",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			at, err := dateOrToday(asOf)
			if err != nil {
				return err
			}
			rows, err := a.subs.ProcessDue(cmd.Context(), at, !noPost)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "DUE\tNAME\tAMOUNT\tENTRY")
			for _, r := range rows {
				entry := "-"
				if r.EntryID != 0 {
					entry = fmt.Sprint(r.EntryID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", formatDate(r.DueDate), r.Name, r.Amount.StringFixed(2), entry)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d occurrences\n", len(rows))
			return nil
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "process occurrences due on or before YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&noPost, "no-post", false, "advance schedules without posting entries")
	return cmd
}
