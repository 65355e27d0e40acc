// Package planner searches for the purchase sequence that earns a player the
// most points with the coins they have.
package planner

import (
	"context"
	"sort"

	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/pricing"
)

// DefaultSteps is the plan length used when the caller does not ask for one.
const DefaultSteps = 5

// item is the simulated state of one product during the search.
type item struct {
	id     int64
	name   string
	price  float64
	stock  int
	points int
}

type search struct {
	ctx   context.Context
	rule  pricing.Rule
	steps int

	best    []domain.PlanStep
	bestPts int
	visited int
	scratch []domain.PlanStep
}

// Plan returns the sequence of at most steps purchases with the highest
// total points. Each simulated purchase lowers stock by one and reprices the
// product through rule, so later steps see the inflated price.
//
// Products are explored in descending points order, ties in input order, and
// the first path found with strictly more points than the current best wins.
// An empty plan means nothing is affordable.
func Plan(ctx context.Context, products []domain.Product, coins float64, steps int, rule pricing.Rule) ([]domain.PlanStep, error) {
	if steps <= 0 {
		steps = DefaultSteps
	}
	if rule == nil {
		rule = pricing.DemandRule{}
	}

	items := make([]item, 0, len(products))
	for _, p := range products {
		if p.Stock <= 0 {
			continue
		}
		items = append(items, item{id: p.ID, name: p.Name, price: p.CurrentPrice, stock: p.Stock, points: p.Points})
	}
	// Points never change during the search, so one stable sort fixes the
	// exploration order for every node.
	sort.SliceStable(items, func(i, j int) bool { return items[i].points > items[j].points })

	s := &search{
		ctx:     ctx,
		rule:    rule,
		steps:   steps,
		bestPts: -1,
		scratch: make([]domain.PlanStep, 0, steps),
	}
	if err := s.dfs(0, coins, 0, items); err != nil {
		return nil, err
	}
	if s.best == nil {
		return []domain.PlanStep{}, nil
	}
	return s.best, nil
}

func (s *search) record(points int) {
	if points > s.bestPts {
		s.bestPts = points
		s.best = append([]domain.PlanStep(nil), s.scratch...)
	}
}

func (s *search) dfs(step int, coins float64, points int, items []item) error {
	s.visited++
	if s.visited%1024 == 1 {
		if err := s.ctx.Err(); err != nil {
			return err
		}
	}

	if step == s.steps {
		s.record(points)
		return nil
	}

	// Nothing below this node can beat the best path so far.
	if points+(s.steps-step)*maxPointsInStock(items) <= s.bestPts {
		return nil
	}

	bought := false
	for i := range items {
		it := items[i]
		if it.stock <= 0 || coins < it.price {
			continue
		}
		bought = true

		next, err := s.rule.Next(s.ctx, it.price, it.stock, 1)
		if err != nil {
			return err
		}

		child := make([]item, len(items))
		copy(child, items)
		child[i].stock--
		child[i].price = next

		s.scratch = append(s.scratch, domain.PlanStep{
			Step:        step + 1,
			ProductID:   it.id,
			ProductName: it.name,
			Cost:        it.price,
			Points:      it.points,
		})
		err = s.dfs(step+1, coins-it.price, points+it.points, child)
		s.scratch = s.scratch[:len(s.scratch)-1]
		if err != nil {
			return err
		}
	}

	if !bought {
		s.record(points)
	}
	return nil
}

func maxPointsInStock(items []item) int {
	// items are sorted by points, so the first in-stock one is the maximum.
	for _, it := range items {
		if it.stock > 0 {
			return it.points
		}
	}
	return 0
}
