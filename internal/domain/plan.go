package domain

// PlanStep is one suggested purchase of a recommendation plan.
type PlanStep struct {
	Step        int     `json:"step"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Cost        float64 `json:"cost"`
	Points      int     `json:"points"`
}

// Recommendation is the result of a planning request.
type Recommendation struct {
	Plan      []PlanStep `json:"plan"`
	TriesLeft int        `json:"tries_left"`
}

// TotalPoints sums the points of every step.
func TotalPoints(plan []PlanStep) int {
	total := 0
	for _, s := range plan {
		total += s.Points
	}
	return total
}

// TotalCost sums the cost of every step.
func TotalCost(plan []PlanStep) float64 {
	total := 0.0
	for _, s := range plan {
		total += s.Cost
	}
	return total
}
