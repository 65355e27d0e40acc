package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/market"
	"github.com/nfrund/smartshop/internal/rendering"
	"github.com/nfrund/smartshop/internal/view"
)

// Monitor is the part of the market service the admin endpoints use.
type Monitor interface {
	Monitor(ctx context.Context) (*market.MonitorSnapshot, error)
}

// AdminHandler serves the inventory and revenue monitor. Its routes sit
// behind middleware.RequireRole(domain.RoleAdmin).
type AdminHandler struct {
	monitor  Monitor
	renderer rendering.Renderer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(monitor Monitor, renderer rendering.Renderer) *AdminHandler {
	return &AdminHandler{monitor: monitor, renderer: renderer}
}

// MonitorJSON handles GET /api/admin/monitor.
func (h *AdminHandler) MonitorJSON(c echo.Context) error {
	snap, err := h.monitor.Monitor(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

// MonitorPage handles GET /admin.
func (h *AdminHandler) MonitorPage(c echo.Context) error {
	snap, err := h.monitor.Monitor(c.Request().Context())
	if err != nil {
		return err
	}
	page := view.Layout("Market Monitor", view.FromGomponent(view.MonitorPage(snap)))
	return h.renderer.RenderPage(c, http.StatusOK, page)
}

// MonitorFragment handles GET /admin/monitor/fragment, polled by the page.
func (h *AdminHandler) MonitorFragment(c echo.Context) error {
	snap, err := h.monitor.Monitor(c.Request().Context())
	if err != nil {
		return err
	}
	return h.renderer.RenderPage(c, http.StatusOK, view.MonitorFragment(snap))
}
