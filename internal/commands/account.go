package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/accounts"
	"github.com/cleared-dev/homebook/internal/model"
)

func newAccountCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountListCommand(a),
		newAccountGroupsCommand(a),
		newAccountCreateCommand(a),
		newAccountRenameCommand(a),
		newAccountDeactivateCommand(a),
		newAccountCurrencyCommand(a),
		newAccountDeleteCommand(a),
		newAccountExportCommand(a),
		newAccountImportCommand(a),
	)
	return cmd
}

func newAccountGroupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List posting accounts by household group",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			groups, err := a.chart.ListGrouped(cmd.Context(), accounts.ListPostingParams{})
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			for _, g := range groups {
				if len(g.Accounts) == 0 {
					continue
				}
				fmt.Fprintf(w, "%s\t\t\n", g.Group.Label())
				for _, acct := range g.Accounts {
					fmt.Fprintf(w, "  %d\t%s\t%s\n", acct.ID, acct.Name, acct.RootName)
				}
			}
			return w.Flush()
		}),
	}
}

func newAccountListCommand(a *app) *cobra.Command {
	var posting, all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			w := newTable(cmd.OutOrStdout())
			if posting {
				rows, err := a.chart.ListPosting(cmd.Context(), accounts.ListPostingParams{IncludeInactive: all})
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tNAME\tTYPE\tGROUP\tCURRENCY")
				for _, r := range rows {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Type, r.Group.Label(), r.Currency)
				}
				return w.Flush()
			}

			chart, err := a.chart.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tPARENT\tPOSTING\tCURRENCY")
			for _, acct := range chart {
				if !acct.IsActive && !all {
					continue
				}
				parent := "-"
				if acct.ParentID != 0 {
					parent = fmt.Sprint(acct.ParentID)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", acct.ID, acct.Name, acct.Type, parent, acct.AllowPosting, acct.Currency)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().BoolVar(&posting, "posting", false, "only posting accounts, with their household group")
	cmd.Flags().BoolVar(&all, "all", false, "include inactive accounts")
	return cmd
}

func newAccountCreateCommand(a *app) *cobra.Command {
	var p accounts.CreateParams
	var typ string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a child account under a parent",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			var err error
			if p.Type, err = model.ParseAccountType(typ); err != nil {
				return err
			}
			id, err := a.chart.Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %d %s\n", id, p.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "account name (required)")
	cmd.Flags().StringVar(&typ, "type", "", "ASSET, LIABILITY, EQUITY, INCOME or EXPENSE (required)")
	cmd.Flags().Int64Var(&p.ParentID, "parent", 0, "parent account id (required)")
	cmd.Flags().StringVar(&p.Currency, "currency", "", "account currency (default: base currency)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("parent")
	return cmd
}

func newAccountRenameCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename an account",
		Args:  cobra.ExactArgs(2),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.chart.Rename(cmd.Context(), id, args[1])
		}),
	}
}

func newAccountDeactivateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Hide an account from reports and pickers",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.chart.Deactivate(cmd.Context(), id)
		}),
	}
}

func newAccountCurrencyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "currency <id> <code>",
		Short: "Change an account's currency",
		Args:  cobra.ExactArgs(2),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.chart.UpdateCurrency(cmd.Context(), id, args[1])
		}),
	}
}

func newAccountDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an unused account",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.chart.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %d\n", id)
			return nil
		}),
	}
}

func newAccountExportCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return a.chart.Export(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			if err := a.chart.Export(cmd.Context(), f); err != nil {
				return err
			}
			return f.Close()
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newAccountImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add accounts from a CSV chart, skipping ids that already exist",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			n, err := a.chart.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts\n", n)
			return nil
		}),
	}
}
