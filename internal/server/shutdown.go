package server

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const shutdownTimeout = 10 * time.Second

// shutdown stops accepting requests, waits for in-flight ones, then closes
// the bus, the store and the tracer in that order.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Bus.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.tracingShutdown != nil {
		s.tracingShutdown()
	}

	err := errors.Join(errs...)
	if err != nil {
		slog.Error("Shutdown finished with errors", "event", "server_stopped", "error", err)
	} else {
		slog.Info("Server stopped", "event", "server_stopped")
	}
	return err
}
