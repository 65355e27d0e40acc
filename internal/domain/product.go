package domain

import (
	"context"
	"time"
)

// Product is an item in the market whose price rises with demand.
type Product struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name" validate:"required,max=100"`
	Description  string  `json:"description"`
	ImageURL     string  `json:"image_url" validate:"omitempty,url"`
	BasePrice    float64 `json:"base_price" validate:"gt=0"`
	CurrentPrice float64 `json:"current_price" validate:"gt=0"`
	Stock        int     `json:"stock" validate:"gte=0"`
	Points       int     `json:"points" validate:"gte=0"`
}

// Validate runs validation checks on the Product using the struct tags.
func (p *Product) Validate() error {
	return validatorInstance.Struct(p)
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// PricePoint is one entry of a product's price history.
type PricePoint struct {
	ProductID int64     `json:"product_id"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Transaction records a completed purchase.
type Transaction struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	PricePaid float64   `json:"price_paid"`
	Timestamp time.Time `json:"timestamp"`
}

// Purchase is the complete set of changes one buy applies: PricePaid leaves
// the buyer's coins, Points are added to their score, stock drops by one and
// the product is repriced to NewPrice. Ledgers apply it atomically and reject
// it with ErrConflict when StockBefore no longer matches the stored stock or
// the buyer can no longer afford it. NewCoins and NewPoints are the balances
// the caller expects afterwards.
type Purchase struct {
	UserID      int64
	ProductID   int64
	PricePaid   float64
	Points      int
	NewCoins    float64
	NewPoints   int
	StockBefore int
	NewStock    int
	NewPrice    float64
	At          time.Time
}

// RevenueSummary aggregates the transaction ledger.
type RevenueSummary struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalTransactions int     `json:"total_transactions"`
}

// ProductRepository defines storage operations for products.
type ProductRepository interface {
	// ListProducts returns every product ordered by id.
	ListProducts(ctx context.Context) ([]Product, error)
	// FindProductByID returns ErrNotFound when the id is unknown.
	FindProductByID(ctx context.Context, id int64) (*Product, error)
	// FindProductByName returns ErrNotFound when the name is unknown.
	FindProductByName(ctx context.Context, name string) (*Product, error)
	// CreateProduct assigns an id and persists the product.
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
}

// HistoryRepository stores the price history of products.
type HistoryRepository interface {
	AppendPrice(ctx context.Context, point PricePoint) error
	// ListPriceHistory returns the points of a product ordered by time.
	// An unknown product yields an empty slice.
	ListPriceHistory(ctx context.Context, productID int64) ([]PricePoint, error)
}

// Ledger applies purchases and summarizes revenue.
type Ledger interface {
	ApplyPurchase(ctx context.Context, purchase Purchase) error
	Revenue(ctx context.Context) (RevenueSummary, error)
}

// Store aggregates every repository the market needs.
type Store interface {
	UserRepository
	ProductRepository
	HistoryRepository
	Ledger
	Close() error
}
