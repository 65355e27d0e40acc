package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/smartshop/internal/market"
)

// Start runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run starts the background components and serves HTTP until ctx is
// canceled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.startBackground(bgCtx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.E.Start(s.Cfg.GetServerAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("Server started", "event", "server_started", "addr", s.Cfg.GetServerAddr())

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received", "event", "server_stopping")
	case runErr = <-errCh:
		slog.Error("Server stopped unexpectedly", "event", "server_failure", "error", runErr)
	}

	// Disconnects websocket clients and stops the pricing watcher.
	cancel()
	if err := s.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// startBackground loads the pricing script and connects the websocket bridge
// to the market topics.
func (s *Server) startBackground(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start pricing script watcher: %w", err)
		}
	}
	if err := s.Bridge.Start(ctx, market.Topics()...); err != nil {
		return fmt.Errorf("failed to start websocket bridge: %w", err)
	}
	return nil
}
