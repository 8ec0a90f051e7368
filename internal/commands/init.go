package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/homebook/internal/config"
	"github.com/cleared-dev/homebook/internal/model"
)

func newInitCommand(a *app) *cobra.Command {
	var name string
	var baseCurrency string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new book with the default chart of accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				a.dir = args[0]
			}
			absDir, err := filepath.Abs(a.dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			if err := writeConfig(absDir, name, baseCurrency); err != nil {
				return err
			}
			a.dir = absDir
			return a.withBook(func(cmd *cobra.Command, _ []string) error {
				n, err := a.chart.Seed(cmd.Context())
				if err != nil {
					return fmt.Errorf("seeding chart of accounts: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized homebook at %s (%d accounts seeded, base currency %s)\n",
					absDir, n, a.cfg.Book.BaseCurrency)
				return nil
			})(cmd, args)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "book name (default: directory name)")
	cmd.Flags().StringVar(&baseCurrency, "base-currency", model.DefaultCurrency, "reporting currency")

	return cmd
}

// writeConfig creates dir and its homebook.yaml unless one already exists.
func writeConfig(dir, name, baseCurrency string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if name == "" {
		name = filepath.Base(dir)
	}
	cfg := config.Default(name)
	cfg.Book.BaseCurrency = baseCurrency
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.db\n*.db-wal\n*.db-shm\n.env\n"), 0o644)
}
