package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/smartshop/internal/config"
	"github.com/nfrund/smartshop/internal/domain"
)

// SeedProducts is the starting catalogue.
var SeedProducts = []domain.Product{
	{
		Name:        "iPhone 15 Pro",
		Description: "Titanium design.",
		ImageURL:    "https://images.unsplash.com/photo-1695048133142-1a20484d2569?auto=format&fit=crop&w=800&q=80",
		BasePrice:   80000, CurrentPrice: 80000, Stock: 5, Points: 500,
	},
	{
		Name:        "Samsung S24 Ultra",
		Description: "Galaxy AI.",
		ImageURL:    "https://images.unsplash.com/photo-1610945415295-d9bbf067e59c?auto=format&fit=crop&w=800&q=80",
		BasePrice:   75000, CurrentPrice: 75000, Stock: 6, Points: 450,
	},
	{
		Name:        "Servo Motor",
		Description: "High Torque.",
		ImageURL:    "https://images.unsplash.com/photo-1581092160562-40aa52a78671?auto=format&fit=crop&w=800&q=80",
		BasePrice:   1200, CurrentPrice: 1200, Stock: 50, Points: 10,
	},
	{
		Name:        "DSA Book",
		Description: "Cormen Algorithms.",
		ImageURL:    "https://images.unsplash.com/photo-1532012197267-da84d127e765?auto=format&fit=crop&w=800&q=80",
		BasePrice:   4000, CurrentPrice: 4000, Stock: 20, Points: 30,
	},
	{
		Name:        "Apple (Fruit)",
		Description: "Fresh Red.",
		ImageURL:    "https://images.unsplash.com/photo-1560807707-8cc77767d783?auto=format&fit=crop&w=800&q=80",
		BasePrice:   200, CurrentPrice: 200, Stock: 100, Points: 2,
	},
}

// SeedResult reports what Seed created.
type SeedResult struct {
	AdminCreated     bool
	ProductsCreated  int
	PricesBackfilled int
}

// Seed creates the admin account from cfg and the starting catalogue.
// Existing rows are left untouched, so Seed can run on every start. A
// product left without its initial price point by an earlier run gets one.
func Seed(ctx context.Context, store domain.Store, cfg config.Provider) (SeedResult, error) {
	var res SeedResult
	adminEmail := cfg.GetAdminEmail()

	if _, err := store.FindAdminByEmail(ctx, adminEmail); errors.Is(err, domain.ErrNotFound) {
		admin := domain.NewAdmin(adminEmail)
		if err := admin.SetPassword(cfg.GetAdminPassword()); err != nil {
			return res, fmt.Errorf("failed to hash admin password: %w", err)
		}
		if _, err := store.CreateUser(ctx, admin); err != nil && !errors.Is(err, domain.ErrUserAlreadyExists) {
			return res, fmt.Errorf("failed to create admin: %w", err)
		}
		res.AdminCreated = true
	} else if err != nil {
		return res, fmt.Errorf("failed to look up admin: %w", err)
	}

	for _, seed := range SeedProducts {
		product, created, err := ensureProduct(ctx, store, seed)
		if err != nil {
			return res, err
		}
		if created {
			res.ProductsCreated++
		}

		history, err := store.ListPriceHistory(ctx, product.ID)
		if err != nil {
			return res, fmt.Errorf("failed to read price history of %q: %w", seed.Name, err)
		}
		if len(history) > 0 {
			continue
		}
		if err := store.AppendPrice(ctx, domain.PricePoint{
			ProductID: product.ID,
			Price:     product.CurrentPrice,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			return res, fmt.Errorf("failed to record initial price of %q: %w", seed.Name, err)
		}
		if !created {
			res.PricesBackfilled++
		}
	}

	slog.InfoContext(ctx, "Store seeded", "event", "db_seeded",
		"admin_created", res.AdminCreated, "products_created", res.ProductsCreated,
		"prices_backfilled", res.PricesBackfilled)
	return res, nil
}

// ensureProduct returns the product named like seed, creating it when absent.
func ensureProduct(ctx context.Context, store domain.Store, seed domain.Product) (*domain.Product, bool, error) {
	existing, err := store.FindProductByName(ctx, seed.Name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up product %q: %w", seed.Name, err)
	}

	p := seed
	created, err := store.CreateProduct(ctx, &p)
	if errors.Is(err, domain.ErrProductExists) {
		// Lost a race with a concurrent seed.
		existing, err = store.FindProductByName(ctx, seed.Name)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up product %q: %w", seed.Name, err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create product %q: %w", seed.Name, err)
	}
	return created, true, nil
}
