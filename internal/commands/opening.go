package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/opening"
)

func newOpeningCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opening",
		Short: "Manage the opening-balance entry",
	}
	cmd.AddCommand(newOpeningCreateCommand(a), newOpeningDeleteCommand(a))
	return cmd
}

func newOpeningCreateCommand(a *app) *cobra.Command {
	var date, desc string
	var assetSpecs, liabilitySpecs []string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Post starting balances, plugging the difference to opening equity",
		Example: `  homebook opening create --date 2026-01-01 --asset 120001=3500000 --liability 210001=420000`,
		Args:    cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			p := opening.CreateParams{Description: desc}
			var err error
			if p.Date, err = dateOrToday(date); err != nil {
				return err
			}
			for _, s := range assetSpecs {
				acct, amt, err := parseBalanceSpec(s)
				if err != nil {
					return err
				}
				p.Assets = append(p.Assets, opening.Balance{AccountID: acct, Amount: amt})
			}
			for _, s := range liabilitySpecs {
				acct, amt, err := parseBalanceSpec(s)
				if err != nil {
					return err
				}
				p.Liabilities = append(p.Liabilities, opening.Balance{AccountID: acct, Amount: amt})
			}
			e, err := a.opening.Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted opening balance entry %d (%d lines)\n", e.ID, len(e.Lines))
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "opening date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&desc, "desc", "", "description")
	cmd.Flags().StringArrayVar(&assetSpecs, "asset", nil, "asset balance ACCOUNT=AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&liabilitySpecs, "liability", nil, "liability balance ACCOUNT=AMOUNT (repeatable)")
	return cmd
}

func newOpeningDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the opening-balance entry",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			n, err := a.opening.Delete(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d opening balance entries\n", n)
			return nil
		}),
	}
}
