package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/handlers"
	"github.com/nfrund/smartshop/internal/middleware"
	"github.com/nfrund/smartshop/internal/view"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	authHandler := handlers.NewAuthHandler(s.Market)
	marketHandler := handlers.NewMarketHandler(s.Market)
	adminHandler := handlers.NewAdminHandler(s.Market, s.renderer)
	rateLimiter := middleware.RateLimiter()
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	api := s.E.Group("/api")
	api.POST("/login", authHandler.Login, rateLimiter)
	api.POST("/logout", authHandler.Logout)
	api.GET("/me", authHandler.Me)

	api.GET("/products", marketHandler.Products)
	api.GET("/product/:id/history", marketHandler.History)
	api.GET("/stats", marketHandler.Stats)
	api.POST("/buy", marketHandler.Buy)
	api.POST("/recommendations", marketHandler.Recommendations)

	api.GET("/admin/monitor", adminHandler.MonitorJSON, adminOnly)
	s.E.GET("/admin", adminHandler.MonitorPage, adminOnly)
	s.E.GET(view.MonitorFragmentPath, adminHandler.MonitorFragment, adminOnly)

	s.E.GET("/ws/market", s.Bridge.Handler())

	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}
