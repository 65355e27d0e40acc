package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/market"
	"github.com/nfrund/smartshop/internal/middleware"
)

// Authenticator is the part of the market service the auth handlers use.
type Authenticator interface {
	Login(ctx context.Context, in market.LoginInput) (*domain.User, error)
	User(ctx context.Context, id int64) (*domain.User, error)
}

// AuthHandler handles login, logout and session lookups.
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /api/login. Unknown players are registered on the spot.
func (h *AuthHandler) Login(c echo.Context) error {
	logger := middleware.FromContext(c.Request().Context())

	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		logger.Debug("Rejected login body", "event", "login_bad_request", "error", err)
		return jsonError(c, http.StatusBadRequest, "Invalid request")
	}

	user, err := h.auth.Login(c.Request().Context(), market.LoginInput{
		Role:      domain.Role(req.Role),
		Email:     req.Email,
		CollegeID: req.CollegeID,
		Password:  req.Password,
	})
	if errors.Is(err, domain.ErrInvalidCredentials) {
		logger.Warn("Failed login attempt", "event", "login_failure", "role", req.Role, "email", req.Email, "college_id", req.CollegeID)
		return jsonError(c, http.StatusUnauthorized, "Invalid Credentials")
	}
	if err != nil {
		return err
	}

	if err := middleware.Login(c, user); err != nil {
		return err
	}
	logger.Info("User logged in", "event", "login_success", "user_id", user.ID, "role", user.Role)
	return c.JSON(http.StatusOK, NewUserResponse(user))
}

// Logout handles POST /api/logout by expiring the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := middleware.Logout(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c echo.Context) error {
	id, _, ok := middleware.CurrentUser(c)
	if !ok {
		return jsonError(c, http.StatusUnauthorized, "Unauthorized")
	}
	user, err := h.auth.User(c.Request().Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return jsonError(c, http.StatusUnauthorized, "Unauthorized")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewUserResponse(user))
}
