package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/view"
)

// PlanDisplay is the JSON form of a plan.
type PlanDisplay struct {
	Steps       []domain.PlanStep `json:"steps"`
	TotalCost   float64           `json:"total_cost"`
	TotalPoints int               `json:"total_points"`
}

// Coins formats an amount the way the admin monitor does.
func Coins(v float64) string {
	return view.FormatCoins(v)
}

// PlanTable writes plan as an aligned table followed by its totals.
func PlanTable(w io.Writer, plan []domain.PlanStep) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "STEP\tPRODUCT\tCOST\tPOINTS")
	fmt.Fprintln(tw, "----\t-------\t----\t------")

	if len(plan) == 0 {
		fmt.Fprintln(tw, "Nothing affordable")
		return
	}
	for _, step := range plan {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n",
			step.Step,
			truncateString(step.ProductName, 30),
			Coins(step.Cost),
			step.Points)
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t%d\n", Coins(domain.TotalCost(plan)), domain.TotalPoints(plan))
}

// PlanJSON writes plan and its totals as indented JSON.
func PlanJSON(w io.Writer, plan []domain.PlanStep) error {
	if plan == nil {
		plan = []domain.PlanStep{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(PlanDisplay{
		Steps:       plan,
		TotalCost:   domain.TotalCost(plan),
		TotalPoints: domain.TotalPoints(plan),
	})
}

// TopicsTable writes one topic per line.
func TopicsTable(w io.Writer, topics []string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tWEBSOCKET TYPE")
	fmt.Fprintln(tw, "----\t--------------")
	for _, topic := range topics {
		fmt.Fprintf(tw, "%s\t%s\n", topic, topic)
	}
}

// TopicsJSON writes the topics with their count.
func TopicsJSON(w io.Writer, topics []string) error {
	output := struct {
		Topics []string `json:"topics"`
		Count  int      `json:"count"`
	}{
		Topics: topics,
		Count:  len(topics),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
