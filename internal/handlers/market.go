package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/market"
	"github.com/nfrund/smartshop/internal/middleware"
)

// Market is the part of the market service the player endpoints use.
type Market interface {
	Products(ctx context.Context) ([]domain.Product, error)
	History(ctx context.Context, productID int64) ([]domain.PricePoint, error)
	Leaderboard(ctx context.Context) ([]domain.User, error)
	Buy(ctx context.Context, userID, productID int64) (*market.BuyResult, error)
	Recommend(ctx context.Context, userID int64) (*domain.Recommendation, error)
}

var (
	errForbiddenUser = errors.New("body user does not match the session")
	errNoUser        = errors.New("no user given")
)

// MarketHandler serves the catalogue, purchases and recommendations.
type MarketHandler struct {
	market Market
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(m Market) *MarketHandler {
	return &MarketHandler{market: m}
}

// actingUser picks the user a request acts for. A session user wins over the
// body, and a body userId naming someone else is forbidden. Without a
// session the body's userId is used.
func actingUser(c echo.Context, bodyID *int64) (int64, error) {
	sessionID, _, ok := middleware.CurrentUser(c)
	switch {
	case ok && bodyID != nil && *bodyID != sessionID:
		return 0, errForbiddenUser
	case ok:
		return sessionID, nil
	case bodyID != nil:
		return *bodyID, nil
	default:
		return 0, errNoUser
	}
}

// Products handles GET /api/products.
func (h *MarketHandler) Products(c echo.Context) error {
	products, err := h.market.Products(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewProductResponses(products))
}

// History handles GET /api/product/:id/history.
func (h *MarketHandler) History(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Not Found")
	}
	points, err := h.market.History(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewHistoryResponse(points))
}

// Stats handles GET /api/stats.
func (h *MarketHandler) Stats(c echo.Context) error {
	players, err := h.market.Leaderboard(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewStatsResponse(players))
}

// Buy handles POST /api/buy.
func (h *MarketHandler) Buy(c echo.Context) error {
	logger := middleware.FromContext(c.Request().Context())

	var req BuyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Cannot purchase")
	}
	userID, err := actingUser(c, req.UserID)
	if errors.Is(err, errForbiddenUser) {
		return forbidden(c)
	}
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Cannot purchase")
	}

	res, err := h.market.Buy(c.Request().Context(), userID, req.ProductID)
	if errors.Is(err, domain.ErrCannotPurchase) {
		logger.Info("Purchase rejected", "event", "purchase_rejected", "user_id", userID, "product_id", req.ProductID, "reason", err.Error())
		return jsonError(c, http.StatusBadRequest, "Cannot purchase")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewBuyResponse(res))
}

// Recommendations handles POST /api/recommendations.
func (h *MarketHandler) Recommendations(c echo.Context) error {
	var req RecommendationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return jsonError(c, http.StatusForbidden, "No tries left")
	}
	userID, err := actingUser(c, req.UserID)
	if errors.Is(err, errForbiddenUser) {
		return forbidden(c)
	}
	if err != nil {
		return jsonError(c, http.StatusForbidden, "No tries left")
	}

	rec, err := h.market.Recommend(c.Request().Context(), userID)
	if errors.Is(err, domain.ErrNoTriesLeft) {
		return jsonError(c, http.StatusForbidden, "No tries left")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
