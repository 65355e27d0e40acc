package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/domain"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// LoginRequest is the body of POST /api/login. Admins send an email, players
// a college id. A missing role means player.
type LoginRequest struct {
	Role      string `json:"role" validate:"oneof=player admin"`
	Email     string `json:"email" validate:"required_if=Role admin,max=254"`
	CollegeID string `json:"collegeId" validate:"required_if=Role player,max=64"`
	Password  string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) applyDefaults() {
	if r.Role == "" {
		r.Role = string(domain.RolePlayer)
	}
}

// BuyRequest is the body of POST /api/buy. UserID may be omitted when the
// request carries a session.
type BuyRequest struct {
	UserID    *int64 `json:"userId"`
	ProductID int64  `json:"productId" validate:"required,gt=0"`
}

// RecommendationRequest is the body of POST /api/recommendations.
type RecommendationRequest struct {
	UserID *int64 `json:"userId"`
}

type defaulter interface {
	applyDefaults()
}

// bindAndValidate binds the request body into req, fills defaults and runs
// the echo validator when one is configured.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	if d, ok := req.(defaulter); ok {
		d.applyDefaults()
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}
