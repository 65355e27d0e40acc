// Package market implements the game rules: logging in, buying products and
// planning purchases.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/planner"
	"github.com/nfrund/smartshop/internal/pricing"
	"github.com/nfrund/smartshop/internal/pubsub"
)

// Service coordinates the store, the pricing rule, the planner and the event
// bus. Purchases and recommendations are serialized so that each one sees a
// consistent catalogue.
type Service struct {
	store     domain.Store
	rule      pricing.Rule
	publisher pubsub.Publisher
	steps     int
	now       func() time.Time

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithRule sets the pricing rule. The default is pricing.DemandRule.
func WithRule(rule pricing.Rule) Option {
	return func(s *Service) { s.rule = rule }
}

// WithPublisher sets where market events go. Without one, events are dropped.
func WithPublisher(p pubsub.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPlanSteps sets the recommendation plan length.
func WithPlanSteps(n int) Option {
	return func(s *Service) { s.steps = n }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a market service over store.
func NewService(store domain.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		rule:  pricing.DemandRule{},
		steps: planner.DefaultSteps,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginInput carries the credentials of a login attempt. Admins identify by
// Email, players by CollegeID.
type LoginInput struct {
	Role      domain.Role
	Email     string
	CollegeID string
	Password  string
}

// Login authenticates a user. Unknown players are registered on the spot
// with the starting balance; unknown admins are rejected.
func (s *Service) Login(ctx context.Context, in LoginInput) (*domain.User, error) {
	switch in.Role {
	case domain.RoleAdmin:
		admin, err := s.store.FindAdminByEmail(ctx, in.Email)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		if err != nil {
			return nil, err
		}
		if !admin.CheckPassword(in.Password) {
			return nil, domain.ErrInvalidCredentials
		}
		return admin, nil

	case domain.RolePlayer:
		if in.CollegeID == "" {
			return nil, domain.ErrInvalidCredentials
		}
		player, err := s.store.FindPlayerByCollegeID(ctx, in.CollegeID)
		if err == nil {
			if !player.CheckPassword(in.Password) {
				return nil, domain.ErrInvalidCredentials
			}
			return player, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return s.register(ctx, in)

	default:
		return nil, domain.ErrInvalidCredentials
	}
}

func (s *Service) register(ctx context.Context, in LoginInput) (*domain.User, error) {
	player := domain.NewPlayer(in.CollegeID)
	if err := player.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.store.CreateUser(ctx, player)
	if errors.Is(err, domain.ErrUserAlreadyExists) {
		// Registered concurrently; treat as a normal login.
		existing, findErr := s.store.FindPlayerByCollegeID(ctx, in.CollegeID)
		if findErr != nil {
			return nil, findErr
		}
		if !existing.CheckPassword(in.Password) {
			return nil, domain.ErrInvalidCredentials
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Player registered", "event", "player_registered", "user_id", created.ID, "college_id", created.CollegeID)
	return created, nil
}

// User returns the user with the given id.
func (s *Service) User(ctx context.Context, id int64) (*domain.User, error) {
	return s.store.FindUserByID(ctx, id)
}

// Products lists the catalogue in id order.
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	return s.store.ListProducts(ctx)
}

// History returns a product's price history, oldest first.
func (s *Service) History(ctx context.Context, productID int64) ([]domain.PricePoint, error) {
	return s.store.ListPriceHistory(ctx, productID)
}

// Leaderboard returns players ordered by points, highest first.
func (s *Service) Leaderboard(ctx context.Context) ([]domain.User, error) {
	return s.store.ListPlayersByPoints(ctx)
}

// BuyResult is the buyer's state after a purchase.
type BuyResult struct {
	NewCoins  float64
	NewPoints int
	PricePaid float64
	NewPrice  float64
	Product   domain.Product
}

// Buy purchases one unit of a product. Every rejection is ErrCannotPurchase:
// unknown user or product, admin buyer, empty stock or too few coins.
func (s *Service) Buy(ctx context.Context, userID, productID int64) (*BuyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, cannotPurchase(err)
	}
	if user.IsAdmin() {
		return nil, fmt.Errorf("%w: admins cannot buy", domain.ErrCannotPurchase)
	}
	product, err := s.store.FindProductByID(ctx, productID)
	if err != nil {
		return nil, cannotPurchase(err)
	}
	if product.Stock <= 0 {
		return nil, fmt.Errorf("%w: %s is out of stock", domain.ErrCannotPurchase, product.Name)
	}
	price := product.CurrentPrice
	if user.Coins < price {
		return nil, fmt.Errorf("%w: %.2f coins, %s costs %.2f", domain.ErrCannotPurchase, user.Coins, product.Name, price)
	}

	newPrice, err := s.rule.Next(ctx, price, product.Stock, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to reprice %s: %w", product.Name, err)
	}

	at := s.now().UTC()
	purchase := domain.Purchase{
		UserID:      user.ID,
		ProductID:   product.ID,
		PricePaid:   price,
		Points:      product.Points,
		NewCoins:    user.Coins - price,
		NewPoints:   user.PointsEarned + product.Points,
		StockBefore: product.Stock,
		NewStock:    product.Stock - 1,
		NewPrice:    newPrice,
		At:          at,
	}
	if err := s.store.ApplyPurchase(ctx, purchase); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", domain.ErrCannotPurchase, err)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "Purchase completed", "event", "purchase_completed",
		"user_id", user.ID, "product_id", product.ID, "price_paid", price, "new_price", newPrice, "stock", purchase.NewStock)

	s.publishPurchase(ctx, user, product, purchase)

	product.Stock = purchase.NewStock
	product.CurrentPrice = newPrice
	return &BuyResult{
		NewCoins:  purchase.NewCoins,
		NewPoints: purchase.NewPoints,
		PricePaid: price,
		NewPrice:  newPrice,
		Product:   *product,
	}, nil
}

func cannotPurchase(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrCannotPurchase, err)
	}
	return err
}

// Recommend spends one recommendation try and plans the best purchases for
// the user's current coins over the in-stock catalogue.
func (s *Service) Recommend(ctx context.Context, userID int64) (*domain.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	triesLeft, err := s.store.ConsumeRecommendationTry(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	inStock := products[:0]
	for _, p := range products {
		if p.InStock() {
			inStock = append(inStock, p)
		}
	}

	plan, err := planner.Plan(ctx, inStock, user.Coins, s.steps, s.rule)
	if err != nil {
		return nil, fmt.Errorf("failed to plan purchases: %w", err)
	}

	slog.InfoContext(ctx, "Recommendation planned", "event", "recommendation_planned",
		"user_id", userID, "steps", len(plan), "points", domain.TotalPoints(plan), "tries_left", triesLeft)

	s.publish(ctx, func() error {
		return pubsub.Publish(ctx, s.publisher, RecommendationEvents, userKey(userID), RecommendationEvent{
			UserID: userID, Steps: len(plan), TriesLeft: triesLeft,
		})
	})

	return &domain.Recommendation{Plan: plan, TriesLeft: triesLeft}, nil
}

// MonitorProduct is one row of the admin inventory view.
type MonitorProduct struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Image            string  `json:"image"`
	Price            float64 `json:"price"`
	Stock            int     `json:"stock"`
	RevenuePotential float64 `json:"revenue_potential"`
}

// MonitorSnapshot is the admin view of the market.
type MonitorSnapshot struct {
	Products          []MonitorProduct `json:"products"`
	TotalRevenue      float64          `json:"total_revenue"`
	TotalTransactions int              `json:"total_transactions"`
	PlayerCount       int              `json:"player_count"`
}

// Monitor builds the admin snapshot of inventory and revenue.
func (s *Service) Monitor(ctx context.Context) (*MonitorSnapshot, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.store.Revenue(ctx)
	if err != nil {
		return nil, err
	}
	players, err := s.store.ListPlayersByPoints(ctx)
	if err != nil {
		return nil, err
	}

	snap := &MonitorSnapshot{
		Products:          make([]MonitorProduct, 0, len(products)),
		TotalRevenue:      revenue.TotalRevenue,
		TotalTransactions: revenue.TotalTransactions,
		PlayerCount:       len(players),
	}
	for _, p := range products {
		snap.Products = append(snap.Products, MonitorProduct{
			ID:               p.ID,
			Name:             p.Name,
			Image:            p.ImageURL,
			Price:            p.CurrentPrice,
			Stock:            p.Stock,
			RevenuePotential: p.CurrentPrice * float64(p.Stock),
		})
	}
	return snap, nil
}

func (s *Service) publishPurchase(ctx context.Context, user *domain.User, product *domain.Product, p domain.Purchase) {
	s.publish(ctx, func() error {
		return pubsub.Publish(ctx, s.publisher, PurchaseEvents, userKey(user.ID), PurchaseEvent{
			UserID:      user.ID,
			Username:    user.Username(),
			ProductID:   product.ID,
			ProductName: product.Name,
			PricePaid:   p.PricePaid,
			NewCoins:    p.NewCoins,
			NewPoints:   p.NewPoints,
			At:          p.At,
		})
	})
	s.publish(ctx, func() error {
		return pubsub.Publish(ctx, s.publisher, PriceEvents, "", PriceEvent{
			ProductID: product.ID,
			Price:     p.NewPrice,
			Stock:     p.NewStock,
			At:        p.At,
		})
	})
}

// publish runs fn when a publisher is configured. Event delivery never fails
// the operation that caused it.
func (s *Service) publish(ctx context.Context, fn func() error) {
	if s.publisher == nil {
		return
	}
	if err := fn(); err != nil {
		slog.WarnContext(ctx, "Failed to publish market event", "event", "market_event_publish_failure", "error", err)
	}
}

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
