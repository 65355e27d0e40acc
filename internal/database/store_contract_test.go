package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nfrund/smartshop/internal/config"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seedConfig = &config.Config{AdminEmail: "admin@example.com", AdminPassword: "adminpassword"}

// runStoreContract exercises the behaviour every domain.Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) domain.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	t.Run("users", func(t *testing.T) {
		store := newStore(t)

		player := domain.NewPlayer("CS-001")
		require.NoError(t, player.SetPassword("pw"))
		created, err := store.CreateUser(ctx, player)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, domain.DefaultCoins, created.Coins)

		byID, err := store.FindUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "CS-001", byID.CollegeID)
		assert.True(t, byID.CheckPassword("pw"))

		byCollege, err := store.FindPlayerByCollegeID(ctx, "CS-001")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byCollege.ID)

		_, err = store.CreateUser(ctx, domain.NewPlayer("CS-001"))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

		_, err = store.FindUserByID(ctx, created.ID+1000)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.FindAdminByEmail(ctx, "CS-001")
		assert.ErrorIs(t, err, domain.ErrNotFound, "players are not admins")

		admin, err := store.CreateUser(ctx, domain.NewAdmin("boss@example.com"))
		require.NoError(t, err)
		found, err := store.FindAdminByEmail(ctx, "boss@example.com")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, found.ID)
		assert.Equal(t, domain.AdminCoins, found.Coins)

		_, err = store.CreateUser(ctx, domain.NewAdmin("boss@example.com"))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists, "admin emails are unique")

		sameName, err := store.CreateUser(ctx, domain.NewPlayer("boss@example.com"))
		require.NoError(t, err, "handles are unique per role")
		assert.NotEqual(t, admin.ID, sameName.ID)
	})

	t.Run("recommendation tries", func(t *testing.T) {
		store := newStore(t)
		u, err := store.CreateUser(ctx, domain.NewPlayer("CS-TRY"))
		require.NoError(t, err)

		left, err := store.ConsumeRecommendationTry(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, left)

		left, err = store.ConsumeRecommendationTry(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, left)

		_, err = store.ConsumeRecommendationTry(ctx, u.ID)
		assert.ErrorIs(t, err, domain.ErrNoTriesLeft)

		_, err = store.ConsumeRecommendationTry(ctx, u.ID+1000)
		assert.ErrorIs(t, err, domain.ErrNoTriesLeft)
	})

	t.Run("products and history", func(t *testing.T) {
		store := newStore(t)
		_, err := Seed(ctx, store, seedConfig)
		require.NoError(t, err)

		products, err := store.ListProducts(ctx)
		require.NoError(t, err)
		require.Len(t, products, len(SeedProducts))
		for i, p := range products {
			assert.Equal(t, SeedProducts[i].Name, p.Name, "products are ordered by id")
		}

		book, err := store.FindProductByName(ctx, "DSA Book")
		require.NoError(t, err)
		assert.Equal(t, 20, book.Stock)

		history, err := store.ListPriceHistory(ctx, book.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, 4000.0, history[0].Price)

		empty, err := store.ListPriceHistory(ctx, 99999)
		require.NoError(t, err)
		assert.Empty(t, empty)

		_, err = store.CreateProduct(ctx, &domain.Product{Name: "DSA Book", BasePrice: 1, CurrentPrice: 1})
		assert.ErrorIs(t, err, domain.ErrProductExists)
	})

	t.Run("seed is idempotent", func(t *testing.T) {
		store := newStore(t)
		first, err := Seed(ctx, store, seedConfig)
		require.NoError(t, err)
		assert.True(t, first.AdminCreated)
		assert.Equal(t, len(SeedProducts), first.ProductsCreated)

		second, err := Seed(ctx, store, seedConfig)
		require.NoError(t, err)
		assert.False(t, second.AdminCreated)
		assert.Zero(t, second.ProductsCreated)

		admin, err := store.FindAdminByEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		assert.True(t, admin.CheckPassword("adminpassword"))
	})

	t.Run("seed backfills a missing initial price", func(t *testing.T) {
		store := newStore(t)
		seed := SeedProducts[3]
		book, err := store.CreateProduct(ctx, &seed)
		require.NoError(t, err)

		res, err := Seed(ctx, store, seedConfig)
		require.NoError(t, err)
		assert.Equal(t, len(SeedProducts)-1, res.ProductsCreated)
		assert.Equal(t, 1, res.PricesBackfilled)

		history, err := store.ListPriceHistory(ctx, book.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, 4000.0, history[0].Price)

		again, err := Seed(ctx, store, seedConfig)
		require.NoError(t, err)
		assert.Zero(t, again.PricesBackfilled)
		history, err = store.ListPriceHistory(ctx, book.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("apply purchase", func(t *testing.T) {
		store := newStore(t)
		_, err := Seed(ctx, store, seedConfig)
		require.NoError(t, err)
		buyer, err := store.CreateUser(ctx, domain.NewPlayer("CS-BUY"))
		require.NoError(t, err)
		apple, err := store.FindProductByName(ctx, "Apple (Fruit)")
		require.NoError(t, err)

		at := time.Now().UTC().Add(time.Second)
		err = store.ApplyPurchase(ctx, domain.Purchase{
			UserID: buyer.ID, ProductID: apple.ID,
			PricePaid: 200, Points: 2,
			NewCoins: buyer.Coins - 200, NewPoints: 2,
			StockBefore: 100, NewStock: 99, NewPrice: 202, At: at,
		})
		require.NoError(t, err)

		u, err := store.FindUserByID(ctx, buyer.ID)
		require.NoError(t, err)
		assert.InDelta(t, domain.DefaultCoins-200, u.Coins, 1e-9)
		assert.Equal(t, 2, u.PointsEarned)

		p, err := store.FindProductByID(ctx, apple.ID)
		require.NoError(t, err)
		assert.Equal(t, 99, p.Stock)
		assert.InDelta(t, 202.0, p.CurrentPrice, 1e-9)

		history, err := store.ListPriceHistory(ctx, apple.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.InDelta(t, 202.0, history[1].Price, 1e-9)

		rev, err := store.Revenue(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 200.0, rev.TotalRevenue, 1e-9)
		assert.Equal(t, 1, rev.TotalTransactions)

		t.Run("stale stock is a conflict", func(t *testing.T) {
			err := store.ApplyPurchase(ctx, domain.Purchase{
				UserID: buyer.ID, ProductID: apple.ID, PricePaid: 202, Points: 2,
				StockBefore: 100, NewPrice: 204.02, At: time.Now().UTC(),
			})
			assert.ErrorIs(t, err, domain.ErrConflict)

			p, err := store.FindProductByID(ctx, apple.ID)
			require.NoError(t, err)
			assert.Equal(t, 99, p.Stock, "rejected purchase leaves stock untouched")
		})

		t.Run("insufficient coins is a conflict", func(t *testing.T) {
			err := store.ApplyPurchase(ctx, domain.Purchase{
				UserID: buyer.ID, ProductID: apple.ID, PricePaid: 1e9, Points: 2,
				StockBefore: 99, NewPrice: 1e10, At: time.Now().UTC(),
			})
			assert.ErrorIs(t, err, domain.ErrConflict)
		})
	})

	t.Run("leaderboard", func(t *testing.T) {
		store := newStore(t)
		_, err := Seed(ctx, store, seedConfig)
		require.NoError(t, err)
		book, err := store.FindProductByName(ctx, "DSA Book")
		require.NoError(t, err)

		low, err := store.CreateUser(ctx, domain.NewPlayer("low"))
		require.NoError(t, err)
		high, err := store.CreateUser(ctx, domain.NewPlayer("high"))
		require.NoError(t, err)

		require.NoError(t, store.ApplyPurchase(ctx, domain.Purchase{
			UserID: high.ID, ProductID: book.ID, PricePaid: 4000, Points: 30,
			StockBefore: book.Stock, NewPrice: 4200, At: time.Now().UTC(),
		}))

		players, err := store.ListPlayersByPoints(ctx)
		require.NoError(t, err)
		require.Len(t, players, 2, "admins are excluded")
		assert.Equal(t, "high", players[0].CollegeID)
		assert.Equal(t, low.ID, players[1].ID)
	})

	t.Run("concurrent purchases of the last unit", func(t *testing.T) {
		store := newStore(t)
		last, err := store.CreateProduct(ctx, &domain.Product{Name: "Last One", BasePrice: 10, CurrentPrice: 10, Stock: 1, Points: 1})
		require.NoError(t, err)

		const buyers = 5
		var ok atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < buyers; i++ {
			u, err := store.CreateUser(ctx, domain.NewPlayer(fmt.Sprintf("racer-%d", i)))
			require.NoError(t, err)
			wg.Add(1)
			go func(uid int64) {
				defer wg.Done()
				err := store.ApplyPurchase(ctx, domain.Purchase{
					UserID: uid, ProductID: last.ID, PricePaid: 10, Points: 1,
					StockBefore: 1, NewPrice: 20, At: time.Now().UTC(),
				})
				if err == nil {
					ok.Add(1)
				}
			}(u.ID)
		}
		wg.Wait()

		assert.Equal(t, int32(1), ok.Load())
		p, err := store.FindProductByID(ctx, last.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, p.Stock)
	})
}
