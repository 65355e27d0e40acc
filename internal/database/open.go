package database

import (
	"context"
	"fmt"

	"github.com/nfrund/smartshop/internal/config"
	"github.com/nfrund/smartshop/internal/domain"
)

// Open returns the store selected by STORE_DRIVER.
func Open(ctx context.Context, cfg config.Provider) (domain.Store, error) {
	switch cfg.GetStoreDriver() {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSurreal, "":
		return NewSurrealStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.GetStoreDriver())
	}
}
