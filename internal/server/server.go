package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/smartshop/internal/config"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/handlers"
	"github.com/nfrund/smartshop/internal/market"
	"github.com/nfrund/smartshop/internal/middleware"
	"github.com/nfrund/smartshop/internal/pricing"
	"github.com/nfrund/smartshop/internal/pubsub"
	"github.com/nfrund/smartshop/internal/rendering"
	"github.com/nfrund/smartshop/internal/websocket"
	"github.com/spf13/afero"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E       *echo.Echo
	Cfg     config.Provider
	Store   domain.Store
	Market  *market.Service
	Bus     *pubsub.WatermillBridge
	Bridge  *websocket.Bridge
	Pricing *pricing.Switchable

	renderer        *rendering.UniversalRenderer
	watcher         *pricing.Watcher
	tracingShutdown func()
}

// New wires the market service, the event bus and the echo instance around
// an opened store. Routes are added by RegisterRoutes.
func New(cfg config.Provider, store domain.Store) (*Server, error) {
	tracingCfg := pubsub.LoadTracingConfigFromEnv()
	tracer, tracingShutdown, err := pubsub.SetupOTel(context.Background(), tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	bus := pubsub.NewWatermillBridge()
	if tracingCfg.Enabled {
		bus = pubsub.NewWatermillBridgeWithTracer(tracer)
	}

	rule := pricing.NewSwitchable(pricing.DemandRule{})
	var watcher *pricing.Watcher
	if path := cfg.GetPricingScript(); path != "" {
		watcher = pricing.NewWatcher(afero.NewOsFs(), path, rule)
	}

	svc := market.NewService(store,
		market.WithRule(rule),
		market.WithPublisher(bus),
		market.WithPlanSteps(cfg.GetPlanSteps()),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	renderer := rendering.NewUniversalRenderer()
	e.Renderer = renderer
	setupErrorHandling(e)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(session.Middleware(middleware.NewSessionStore(cfg.GetSessionSecret())))
	e.Use(middleware.Session)

	slog.Info("Server configured", "event", "server_configured",
		"store_driver", cfg.GetStoreDriver(), "plan_steps", cfg.GetPlanSteps(),
		"pricing_script", cfg.GetPricingScript(), "tracing", tracingCfg.Enabled)

	return &Server{
		E:               e,
		Cfg:             cfg,
		Store:           store,
		Market:          svc,
		Bus:             bus,
		Bridge:          websocket.NewBridge(bus),
		Pricing:         rule,
		renderer:        renderer,
		watcher:         watcher,
		tracingShutdown: tracingShutdown,
	}, nil
}
