package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/valuation"
)

func newAssetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Track assets and reconcile their valuations with the ledger",
	}
	cmd.AddCommand(
		newAssetCreateCommand(a),
		newAssetListCommand(a),
		newAssetValueCommand(a),
		newAssetHistoryCommand(a),
		newAssetReconcileCommand(a),
		newAssetDisposeCommand(a),
	)
	return cmd
}

func newAssetCreateCommand(a *app) *cobra.Command {
	var asset model.Asset
	var date, cost string
	var payFrom int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an asset, optionally booking its purchase",
		Example: `  homebook asset create --name 아파트 --class REAL_ESTATE --account 150001 --cost 500000000
  homebook asset create --name ETF --account 140001 --cost 1200000 --pay-from 120001`,
		Args: cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			var err error
			if asset.AcquisitionDate, err = dateOrToday(date); err != nil {
				return err
			}
			if asset.AcquisitionCost, err = parseAmount(cost); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if payFrom != 0 {
				created, e, err := a.assets.Purchase(cmd.Context(), asset, payFrom)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Created asset %d %s, purchase posted as entry %d\n", created.ID, created.Name, e.ID)
				return nil
			}
			created, err := a.assets.CreateAsset(cmd.Context(), asset)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created asset %d %s\n", created.ID, created.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&asset.Name, "name", "", "asset name (required)")
	cmd.Flags().StringVar(&asset.AssetClass, "class", "OTHER", "asset class, e.g. STOCK or REAL_ESTATE")
	cmd.Flags().Int64Var(&asset.LinkedAccountID, "account", 0, "linked asset account id (required)")
	cmd.Flags().StringVar(&date, "date", "", "acquisition date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&cost, "cost", "0", "acquisition cost")
	cmd.Flags().Int64Var(&payFrom, "pay-from", 0, "post the purchase against this account")
	cmd.Flags().StringVar(&asset.Note, "note", "", "note")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newAssetListCommand(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			assets, err := a.assets.ListAssets(cmd.Context(), all)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tCLASS\tACCOUNT\tACQUIRED\tCOST\tDISPOSED")
			for _, as := range assets {
				disposed := "-"
				if as.DisposalDate != nil {
					disposed = formatDate(*as.DisposalDate)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n", as.ID, as.Name, as.AssetClass, as.LinkedAccountID,
					formatDate(as.AcquisitionDate), as.AcquisitionCost.StringFixed(2), disposed)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "include disposed assets")
	return cmd
}

func newAssetValueCommand(a *app) *cobra.Command {
	var v model.AssetValuation
	var asOf string
	cmd := &cobra.Command{
		Use:     "value <asset> <amount>",
		Short:   "Record a market valuation",
		Example: `  homebook asset value 3 1250.50 --currency USD --as-of 2026-03-31`,
		Args:    cobra.ExactArgs(2),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			var err error
			if v.AssetID, err = parseID(args[0]); err != nil {
				return err
			}
			if v.ValueNative, err = parseAmount(args[1]); err != nil {
				return err
			}
			if v.AsOfDate, err = dateOrToday(asOf); err != nil {
				return err
			}
			saved, err := a.assets.RecordValuation(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %d valued at %s on %s\n", saved.AssetID,
				model.FormatAmount(saved.ValueNative, saved.Currency), formatDate(saved.AsOfDate))
			return nil
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "valuation date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&v.Currency, "currency", "", "valuation currency (default: base currency)")
	cmd.Flags().StringVar(&v.Method, "method", "", "valuation method (default: manual)")
	cmd.Flags().StringVar(&v.Source, "source", "", "where the figure came from")
	cmd.Flags().StringVar(&v.Note, "note", "", "note")
	return cmd
}

func newAssetHistoryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <asset>",
		Short: "Show an asset's valuations, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			vals, err := a.assets.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "AS OF\tVALUE\tMETHOD\tSOURCE")
			for _, v := range vals {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", formatDate(v.AsOfDate), model.FormatAmount(v.ValueNative, v.Currency), v.Method, v.Source)
			}
			return w.Flush()
		}),
	}
}

func newAssetReconcileCommand(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare valuations with book balances per linked account",
		Args:  cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			at, err := optionalDate(asOf)
			if err != nil {
				return err
			}
			rec, err := a.assets.Reconcile(cmd.Context(), at)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := newTable(out)
			fmt.Fprintln(w, "ACCOUNT\tNAME\tBOOK\tVALUATION\tDELTA\tVALUED")
			for _, it := range rec.Items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d/%d\n", it.AccountID, it.AccountName, it.Book.StringFixed(2),
					it.Valuation.StringFixed(2), it.Delta.StringFixed(2), it.ValuedCount, it.AssetCount)
			}
			fmt.Fprintf(w, "\tTOTAL\t%s\t%s\t%s\t\n", rec.TotalBook.StringFixed(2), rec.TotalValuation.StringFixed(2), rec.TotalDelta.StringFixed(2))
			if err := w.Flush(); err != nil {
				return err
			}
			if len(rec.MissingRates) > 0 {
				fmt.Fprintf(out, "warning: no fx rate for %s; those valuations are excluded\n", formatPairs(rec.MissingRates))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "reconcile as of YYYY-MM-DD (default: everything on file)")
	return cmd
}

func newAssetDisposeCommand(a *app) *cobra.Command {
	var p valuation.DisposeParams
	var date, price, book string
	cmd := &cobra.Command{
		Use:   "dispose <asset>",
		Short: "Book the sale or write-off of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			var err error
			if p.AssetID, err = parseID(args[0]); err != nil {
				return err
			}
			if p.Date, err = dateOrToday(date); err != nil {
				return err
			}
			if p.SalePrice, err = parseAmount(price); err != nil {
				return err
			}
			if book != "" {
				if p.BookValue, err = parseAmount(book); err != nil {
					return err
				}
			}
			e, err := a.assets.Dispose(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Disposed asset %d in entry %d\n", p.AssetID, e.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "disposal date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&price, "price", "0", "sale price")
	cmd.Flags().StringVar(&book, "book-value", "", "carrying amount (default: acquisition cost)")
	cmd.Flags().Int64Var(&p.DepositAccountID, "deposit", 0, "account receiving the proceeds (required)")
	cmd.Flags().Int64Var(&p.GainLossAccountID, "gain-loss", 0, "account for the gain or loss (required)")
	_ = cmd.MarkFlagRequired("deposit")
	_ = cmd.MarkFlagRequired("gain-loss")
	return cmd
}
