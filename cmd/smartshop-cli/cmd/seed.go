package cmd

import (
	"fmt"

	"github.com/nfrund/smartshop/internal/database"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and the starting catalogue",
	Long: `Seed creates the admin account from ADMIN_EMAIL and ADMIN_PASSWORD and
inserts the starting products. Rows that already exist are left untouched, so
the command is safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		store, err := database.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		res, err := database.Seed(ctx, store, cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Admin created: %t\nProducts created: %d\n", res.AdminCreated, res.ProductsCreated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
