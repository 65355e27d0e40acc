package market

import (
	"time"

	"github.com/nfrund/smartshop/internal/pubsub"
)

// Topic names of market events.
const (
	TopicPurchase       = "market.purchase"
	TopicPrice          = "market.price"
	TopicRecommendation = "market.recommendation"
)

// PurchaseEvent is published after every successful buy.
type PurchaseEvent struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	PricePaid   float64   `json:"price_paid"`
	NewCoins    float64   `json:"new_coins"`
	NewPoints   int       `json:"new_points"`
	At          time.Time `json:"at"`
}

// PriceEvent announces a product's price and stock after a buy.
type PriceEvent struct {
	ProductID int64     `json:"product_id"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	At        time.Time `json:"at"`
}

// RecommendationEvent is published when a player spends a recommendation try.
type RecommendationEvent struct {
	UserID    int64 `json:"user_id"`
	Steps     int   `json:"steps"`
	TriesLeft int   `json:"tries_left"`
}

var (
	PurchaseEvents       = pubsub.NewEvent[PurchaseEvent](TopicPurchase)
	PriceEvents          = pubsub.NewEvent[PriceEvent](TopicPrice)
	RecommendationEvents = pubsub.NewEvent[RecommendationEvent](TopicRecommendation)
)

// Topics lists every topic the market publishes.
func Topics() []string {
	return []string{TopicPurchase, TopicPrice, TopicRecommendation}
}
