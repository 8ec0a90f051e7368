package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/accounts"
	"github.com/cleared-dev/homebook/internal/buildinfo"
	"github.com/cleared-dev/homebook/internal/config"
	"github.com/cleared-dev/homebook/internal/fx"
	"github.com/cleared-dev/homebook/internal/journal"
	"github.com/cleared-dev/homebook/internal/loan"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/opening"
	"github.com/cleared-dev/homebook/internal/store"
	"github.com/cleared-dev/homebook/internal/subscription"
	"github.com/cleared-dev/homebook/internal/valuation"
)

// app holds the services of an open book for the duration of one command.
type app struct {
	dir   string
	debug bool
	log   *slog.Logger

	cfg     *config.Config
	store   *store.Store
	chart   *accounts.Service
	rates   *fx.Service
	ledger  *journal.Service
	opening *opening.Service
	loans   *loan.Service
	subs    *subscription.Service
	assets  *valuation.Service
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:     "homebook",
		Short:   "Double-entry household ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setLogger(cmd, slog.LevelInfo)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dir, "dir", ".", "book directory")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newInitCommand(a),
		newAccountCommand(a),
		newPostCommand(a),
		newBalancesCommand(a),
		newTrialBalanceCommand(a),
		newBalanceSheetCommand(a),
		newIncomeStatementCommand(a),
		newCashflowCommand(a),
		newOpeningCommand(a),
		newFxCommand(a),
		newLoanCommand(a),
		newSubscriptionCommand(a),
		newAssetCommand(a),
		newJournalCommand(a),
	)

	return rootCmd
}

func (a *app) setLogger(cmd *cobra.Command, level slog.Level) {
	if a.debug {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// open loads the book's config and wires every service over its database.
func (a *app) open(cmd *cobra.Command) error {
	dir, err := filepath.Abs(a.dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadDir(dir)
	if err != nil {
		return err
	}
	level, _ := cfg.LogLevel()
	a.setLogger(cmd, level)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	groups, _ := cfg.CashGroups()

	a.cfg = cfg
	a.store = st
	a.chart = accounts.NewService(st, cfg.Book.BaseCurrency, a.log)
	a.rates = fx.NewService(st, a.log)
	a.ledger = journal.NewService(st, a.rates, journal.Options{BaseCurrency: cfg.Book.BaseCurrency, CashGroups: groups}, a.log)
	a.opening = opening.NewService(a.ledger, cfg.OpeningBalance.EquityAccounts, a.log)
	a.loans = loan.NewService(a.ledger, a.log)
	a.subs = subscription.NewService(a.ledger, a.log)
	a.assets = valuation.NewService(a.ledger, a.rates, a.log)
	a.log.Debug("opened book", "db", cfg.Database.Path, "base_currency", cfg.Book.BaseCurrency)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing database", "error", err)
		}
		a.store = nil
	}
}

// withBook opens the book around fn.
func (a *app) withBook(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}

// ExitCode maps an error to the process exit status by its kind.
func ExitCode(err error) int {
	switch model.KindOf(err) {
	case model.KindValidation:
		return 2
	case model.KindReferential:
		return 3
	case model.KindCapacity:
		return 4
	case model.KindDataGap:
		return 5
	}
	return 1
}
