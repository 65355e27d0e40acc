package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/market"
)

// historyTimeLayout is the wall-clock format of price history points.
const historyTimeLayout = "15:04:05"

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Error: msg})
}

func forbidden(c echo.Context) error {
	return jsonError(c, http.StatusForbidden, "Forbidden")
}

// UserResponse is the login and /api/me shape of a user.
type UserResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Coins     float64     `json:"coins"`
	Points    int         `json:"points"`
	RecoTries int         `json:"reco_tries"`
}

// NewUserResponse creates a UserResponse from a domain.User.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username(),
		Role:      u.Role,
		Coins:     u.Coins,
		Points:    u.PointsEarned,
		RecoTries: u.RecoTriesLeft,
	}
}

// ProductResponse is one catalogue entry.
type ProductResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	BasePrice   float64 `json:"basePrice"`
	Stock       int     `json:"stock"`
	Points      int     `json:"points"`
}

// NewProductResponses converts the catalogue, keeping its order.
func NewProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ProductResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Image:       p.ImageURL,
			Price:       p.CurrentPrice,
			BasePrice:   p.BasePrice,
			Stock:       p.Stock,
			Points:      p.Points,
		})
	}
	return out
}

// PricePointResponse is one point of a price history chart.
type PricePointResponse struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

// NewHistoryResponse converts a price history, keeping its order.
func NewHistoryResponse(points []domain.PricePoint) []PricePointResponse {
	out := make([]PricePointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, PricePointResponse{
			Time:  p.Timestamp.UTC().Format(historyTimeLayout),
			Price: p.Price,
		})
	}
	return out
}

// BuyResponse is returned after a successful purchase.
type BuyResponse struct {
	Message   string  `json:"message"`
	NewCoins  float64 `json:"new_coins"`
	NewPoints int     `json:"new_points"`
}

// NewBuyResponse creates a BuyResponse from a market.BuyResult.
func NewBuyResponse(res *market.BuyResult) BuyResponse {
	return BuyResponse{Message: "Success", NewCoins: res.NewCoins, NewPoints: res.NewPoints}
}

// LeaderboardEntry is one row of /api/stats.
type LeaderboardEntry struct {
	Username string  `json:"username"`
	Coins    float64 `json:"coins"`
	Points   int     `json:"points"`
}

// StatsResponse is the body of /api/stats.
type StatsResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// NewStatsResponse converts players that are already ordered by points.
func NewStatsResponse(players []domain.User) StatsResponse {
	board := make([]LeaderboardEntry, 0, len(players))
	for _, u := range players {
		board = append(board, LeaderboardEntry{Username: u.Username(), Coins: u.Coins, Points: u.PointsEarned})
	}
	return StatsResponse{Leaderboard: board}
}
