// Package pricing computes how a product's price reacts to demand.
package pricing

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Rule computes the price that follows a purchase of qty units from a
// product that had stockBefore units at the given current price.
type Rule interface {
	Next(ctx context.Context, current float64, stockBefore, qty int) (float64, error)
}

// DemandRule raises the price in proportion to the share of remaining stock
// that was just bought: newPrice = current * (1 + qty/stockBefore).
// The lower the stock, the larger the jump.
type DemandRule struct{}

// Next implements Rule. An empty or negative stock leaves the price unchanged.
func (DemandRule) Next(_ context.Context, current float64, stockBefore, qty int) (float64, error) {
	return Demand(current, stockBefore, qty), nil
}

// Demand is the formula behind DemandRule, exposed for callers that need it
// without a context.
func Demand(current float64, stockBefore, qty int) float64 {
	if stockBefore <= 0 {
		return current
	}
	return current * (1 + float64(qty)/float64(stockBefore))
}

// checkIncrease validates a rule result: prices only ever go up after a
// purchase from positive stock.
func checkIncrease(current, next float64, stockBefore, qty int) error {
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return fmt.Errorf("pricing rule returned non-finite price %v", next)
	}
	if stockBefore > 0 && qty > 0 && next <= current {
		return fmt.Errorf("pricing rule returned %.4f, not above current price %.4f", next, current)
	}
	return nil
}

// Switchable is a Rule whose underlying implementation can be replaced at
// runtime, e.g. when a pricing script is edited.
type Switchable struct {
	mu   sync.RWMutex
	rule Rule
}

// NewSwitchable wraps the given rule, defaulting to DemandRule when nil.
func NewSwitchable(rule Rule) *Switchable {
	if rule == nil {
		rule = DemandRule{}
	}
	return &Switchable{rule: rule}
}

// Swap installs a new rule.
func (s *Switchable) Swap(rule Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rule = rule
}

// Current returns the active rule.
func (s *Switchable) Current() Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rule
}

// Next implements Rule by delegating to the active rule.
func (s *Switchable) Next(ctx context.Context, current float64, stockBefore, qty int) (float64, error) {
	return s.Current().Next(ctx, current, stockBefore, qty)
}
