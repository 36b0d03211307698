// SPDX-License-Identifier: MIT

// Package api serves the admin HTTP interface: health and readiness probes,
// target status, check history, statistics, manual config reload and the
// Prometheus metrics endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/ManuGH/apiwatch/internal/health"
	"github.com/ManuGH/apiwatch/internal/history"
	xglog "github.com/ManuGH/apiwatch/internal/log"
	"github.com/ManuGH/apiwatch/internal/state"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options wires the server's collaborators.
type Options struct {
	Holder  *config.Holder
	States  state.Store
	History *history.Store
	Health  *health.Manager
}

// Server is the admin HTTP server.
type Server struct {
	opts   Options
	router chi.Router
	logger zerolog.Logger
}

// NewServer builds the admin server and its routes.
func NewServer(opts Options) *Server {
	s := &Server{
		opts:   opts,
		logger: xglog.WithComponent("api"),
	}

	cfg := opts.Holder.Get()

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	if cfg.API.RateLimit > 0 {
		r.Use(rateLimit(cfg.API.RateLimit, cfg.API.RateWindow.Std()))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/targets", s.handleTargets)
		r.Get("/targets/{name}", s.handleTarget)
		r.Get("/targets/{name}/stats", s.handleTargetStats)
		r.Post("/reload", s.handleReload)
	})

	s.router = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Serve runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Holder.Get().API.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str(xglog.FieldEvent, "api.started").
			Str("addr", srv.Addr).
			Msg("admin API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info().Str(xglog.FieldEvent, "api.stopped").Msg("admin API stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// writeJSON renders a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError renders a structured JSON error.
func (s *Server) writeError(w http.ResponseWriter, status int, code, detail string) {
	s.writeJSON(w, status, map[string]string{
		"error":  code,
		"detail": detail,
	})
}
