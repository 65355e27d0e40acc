package cmd

import (
	"fmt"

	"github.com/nfrund/smartshop/cmd/smartshop-cli/internal/output"
	"github.com/nfrund/smartshop/internal/planner"
	"github.com/spf13/cobra"
)

var (
	planCoins  float64
	planSteps  int
	planScript string
	planJSON   bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute the best purchase plan for a coin budget",
	Long: `Plan runs the recommendation search against the current products of the
configured store and prints the purchase sequence with the most points.

Examples:
  smartshop-cli plan --coins 50000
  smartshop-cli plan --coins 50000 --steps 3 --json
  smartshop-cli plan --coins 50000 --script ./pricing.tengo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if planCoins < 0 {
			return fmt.Errorf("--coins must not be negative")
		}
		if planSteps < 1 {
			return fmt.Errorf("--steps must be positive")
		}
		rule, err := loadRule(planScript)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openStore(ctx, loadConfig())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		products, err := store.ListProducts(ctx)
		if err != nil {
			return err
		}
		plan, err := planner.Plan(ctx, products, planCoins, planSteps, rule)
		if err != nil {
			return err
		}

		if planJSON {
			return output.PlanJSON(cmd.OutOrStdout(), plan)
		}
		output.PlanTable(cmd.OutOrStdout(), plan)
		return nil
	},
}

func init() {
	planCmd.Flags().Float64Var(&planCoins, "coins", 50000, "Coin budget to plan with")
	planCmd.Flags().IntVar(&planSteps, "steps", 5, "Maximum number of purchases")
	planCmd.Flags().StringVar(&planScript, "script", "", "Tengo pricing script (default: demand rule)")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the plan as JSON")
	rootCmd.AddCommand(planCmd)
}
