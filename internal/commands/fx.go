package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/fx"
	"github.com/cleared-dev/homebook/internal/model"
)

func newFxCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fx",
		Short: "Record and look up exchange rates and prices",
	}
	cmd.AddCommand(newFxSetCommand(a), newFxGetCommand(a), newFxPriceCommand(a), newFxSyncCommand(a))
	return cmd
}

func newFxSetCommand(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:     "set <base> <quote> <rate>",
		Short:   "Record that one unit of quote costs rate units of base",
		Example: `  homebook fx set KRW USD 1385.2`,
		Args:    cobra.ExactArgs(3),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			rate, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			r := model.FxRate{Base: args[0], Quote: args[1], Rate: rate}
			if r.AsOf, err = optionalDate(asOf); err != nil {
				return err
			}
			saved, err := a.rates.Save(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s\n", saved.Quote, saved.Rate, saved.Base)
			return nil
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "rate date YYYY-MM-DD (default: now)")
	return cmd
}

func newFxGetCommand(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "get <base> <quote>",
		Short: "Show the latest rate for a pair",
		Args:  cobra.ExactArgs(2),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			at, err := optionalDate(asOf)
			if err != nil {
				return err
			}
			r, ok, err := a.rates.LatestAsOf(cmd.Context(), args[0], args[1], at)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s/%s", model.ErrMissingRate, strings.ToUpper(args[0]), strings.ToUpper(args[1]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s (as of %s, %s)\n", r.Quote, r.Rate, r.Base,
				r.AsOf.Format("2006-01-02 15:04"), r.Source)
			return nil
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "latest rate on or before YYYY-MM-DD")
	return cmd
}

func newFxPriceCommand(a *app) *cobra.Command {
	var market, currency, asOf string
	cmd := &cobra.Command{
		Use:   "price <symbol> [price]",
		Short: "Record or show a market price snapshot",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.withBook(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 2 {
				price, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				if currency == "" {
					currency = a.ledger.BaseCurrency()
				}
				q := model.PriceQuote{Symbol: args[0], Market: market, Currency: currency, Price: price}
				if q.AsOf, err = optionalDate(asOf); err != nil {
					return err
				}
				if err := a.rates.SavePrice(ctx, q); err != nil {
					return err
				}
			}
			q, ok, err := a.rates.LatestPrice(ctx, args[0], market)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: no price for %s", model.ErrNotFound, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (as of %s)\n", q.Symbol, q.Price, q.Currency, formatDate(q.AsOf))
			return nil
		}),
	}
	cmd.Flags().StringVar(&market, "market", "", "exchange or market code")
	cmd.Flags().StringVar(&currency, "currency", "", "price currency (default: base currency)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "price date YYYY-MM-DD (default: today)")
	return cmd
}

func newFxSyncCommand(a *app) *cobra.Command {
	var rateSpecs, priceSpecs []string
	var asOf string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Load a batch of rates and prices through the sync log",
		Long: `Stores the given rates and prices as one logged provider run. Every
currency held by an active account is synced against the base currency,
and pairs without a rate are listed as missing.`,
		Example: `  homebook fx sync --rate KRW/USD=1385.2 --price VOO@NYSE=480.25USD`,
		Args:    cobra.NoArgs,
		RunE: a.withBook(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			at, err := optionalDate(asOf)
			if err != nil {
				return err
			}

			p := fx.NewManualProvider()
			wanted := make(map[model.CurrencyPair]bool)
			for _, s := range rateSpecs {
				pair, rate, err := parseRateSpec(s)
				if err != nil {
					return err
				}
				p.SetRate(pair.Base, pair.Quote, rate, at)
				wanted[pair] = true
			}
			all, err := a.chart.List(ctx)
			if err != nil {
				return err
			}
			base := a.ledger.BaseCurrency()
			for _, acct := range all {
				if acct.IsActive && acct.Currency != "" && acct.Currency != base {
					wanted[model.CurrencyPair{Base: base, Quote: acct.Currency}] = true
				}
			}
			pairs := make([]model.CurrencyPair, 0, len(wanted))
			for pair := range wanted {
				pairs = append(pairs, pair)
			}
			sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })

			w := cmd.OutOrStdout()
			if len(pairs) > 0 {
				res, err := a.rates.SyncRates(ctx, p, pairs)
				if err != nil {
					return err
				}
				printSyncResult(w, "rates", res)
			}

			if len(priceSpecs) > 0 {
				instruments := make([]fx.Instrument, 0, len(priceSpecs))
				for _, s := range priceSpecs {
					q, err := parsePriceSpec(s, base)
					if err != nil {
						return err
					}
					q.AsOf = at
					p.SetPrice(q)
					instruments = append(instruments, fx.Instrument{Symbol: q.Symbol, Market: q.Market})
				}
				res, err := a.rates.SyncPrices(ctx, p, instruments)
				if err != nil {
					return err
				}
				printSyncResult(w, "prices", res)
			}
			if len(pairs) == 0 && len(priceSpecs) == 0 {
				fmt.Fprintln(w, "Nothing to sync")
			}
			return nil
		}),
	}
	cmd.Flags().StringArrayVar(&rateSpecs, "rate", nil, "rate BASE/QUOTE=RATE (repeatable)")
	cmd.Flags().StringArrayVar(&priceSpecs, "price", nil, "price SYMBOL[@MARKET]=PRICE[CUR] (repeatable)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "snapshot date YYYY-MM-DD (default: now)")
	return cmd
}

func printSyncResult(w io.Writer, what string, res fx.SyncResult) {
	fmt.Fprintf(w, "Synced %d %s from %s\n", res.Saved, what, res.Provider)
	if len(res.Missing) > 0 {
		fmt.Fprintf(w, "missing: %s\n", strings.Join(res.Missing, ", "))
	}
}
