package cmd

import (
	"github.com/nfrund/smartshop/cmd/smartshop-cli/internal/output"
	"github.com/nfrund/smartshop/internal/market"
	"github.com/spf13/cobra"
)

var topicsFormat string

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the market event topics",
	Long: `List the topics the market publishes. The websocket stream at /ws/market
forwards each of them as a {type, payload} message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if topicsFormat == "json" {
			return output.TopicsJSON(cmd.OutOrStdout(), market.Topics())
		}
		output.TopicsTable(cmd.OutOrStdout(), market.Topics())
		return nil
	},
}

func init() {
	topicsCmd.Flags().StringVarP(&topicsFormat, "format", "f", "table", "Output format (table, json)")
	rootCmd.AddCommand(topicsCmd)
}
