package cmd

import (
	"context"
	"os"

	"github.com/nfrund/smartshop/internal/config"
	"github.com/nfrund/smartshop/internal/database"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smartshop-cli",
	Short: "SmartShop CLI tool",
	Long: `SmartShop CLI works with the store and pricing rules of a SmartShop deployment.

Available commands:
  seed      Create the admin account and the starting catalogue
  plan      Compute the best purchase plan for a coin budget
  price     Evaluate the pricing rule for one purchase
  topics    List the market event topics

Use "smartshop-cli [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.New()
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig is replaced in tests.
var loadConfig = func() *config.Config { return config.New() }

// openStore opens the configured store. A memory store starts out seeded so
// that read-only commands have a catalogue to work on.
func openStore(ctx context.Context, cfg *config.Config) (domain.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.StoreDriver == config.DriverMemory {
		if _, err := database.Seed(ctx, store, cfg); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}
