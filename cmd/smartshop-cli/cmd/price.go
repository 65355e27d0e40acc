package cmd

import (
	"fmt"

	"github.com/nfrund/smartshop/cmd/smartshop-cli/internal/output"
	"github.com/spf13/cobra"
)

var (
	pricePrice  float64
	priceStock  int
	priceQty    int
	priceScript string
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Evaluate the pricing rule for one purchase",
	Long: `Price prints the price a product moves to after qty units are bought
from stock. Use --script to try out a Tengo pricing script before deploying it.

Examples:
  smartshop-cli price --price 4000 --stock 20
  smartshop-cli price --price 4000 --stock 20 --qty 2 --script ./pricing.tengo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pricePrice <= 0 {
			return fmt.Errorf("--price must be positive")
		}
		if priceQty < 1 {
			return fmt.Errorf("--qty must be positive")
		}
		rule, err := loadRule(priceScript)
		if err != nil {
			return err
		}
		next, err := rule.Next(cmd.Context(), pricePrice, priceStock, priceQty)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", output.Coins(pricePrice), output.Coins(next))
		return nil
	},
}

func init() {
	priceCmd.Flags().Float64Var(&pricePrice, "price", 0, "Current price")
	priceCmd.Flags().IntVar(&priceStock, "stock", 0, "Stock before the purchase")
	priceCmd.Flags().IntVar(&priceQty, "qty", 1, "Units bought")
	priceCmd.Flags().StringVar(&priceScript, "script", "", "Tengo pricing script (default: demand rule)")
	priceCmd.MarkFlagRequired("price")
	priceCmd.MarkFlagRequired("stock")
	rootCmd.AddCommand(priceCmd)
}
