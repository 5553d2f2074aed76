// Package server implements the public-facing half of the relay: the
// intake handler (C3), the subscriber endpoint (C4), the auth guard
// (C5), and the server side of lifecycle/signal handling (C8).
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Ap3pp3rs94/hookhub/internal/fanout"
)

// ControlPrefix is the reserved path under which the server handles
// its own WebSocket upgrade; it is never captured or published.
const ControlPrefix = "/__hookhub__"

// Server holds everything a request handler needs, passed explicitly
// at construction rather than held as ambient package state.
type Server struct {
	bus     *fanout.Bus
	secret  string
	version string
	log     zerolog.Logger

	// shutdown is the process-wide shutdown signal (C8), held here so
	// per-connection handlers can derive a session context from it.
	// It is deliberately distinct from any single request's context,
	// which ends when that request returns, not when the server does.
	shutdown context.Context
}

// New builds a Server bound to bus, gated by secret and advertising
// version to clients during the auth handshake.
func New(bus *fanout.Bus, secret, version string, log zerolog.Logger, shutdown context.Context) *Server {
	return &Server{bus: bus, secret: secret, version: version, log: log, shutdown: shutdown}
}

// Handler builds the gorilla/mux router. The entire ControlPrefix
// scope is reserved for the server's own use, matching
// original_source/src/server.rs's web::scope("/__hookhub__"): a
// request under that prefix either matches the guarded subscribe
// route or falls to the scope's own not-found/not-allowed handlers,
// and never reaches the public intake handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	control := r.PathPrefix(ControlPrefix).Subrouter()
	control.HandleFunc("/", s.requireAuth(s.handleSubscribe)).Methods(http.MethodGet)
	control.NotFoundHandler = http.HandlerFunc(rejectControlRequest)
	control.MethodNotAllowedHandler = http.HandlerFunc(rejectControlRequest)

	r.PathPrefix("/").HandlerFunc(s.handleIntake)
	return r
}

// rejectControlRequest answers any request under ControlPrefix that
// isn't the guarded GET subscribe route. It never captures or
// publishes what it receives.
func rejectControlRequest(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "not found", http.StatusNotFound)
}

// Run serves Handler() on addr until ctx is cancelled, then drains for
// up to drain before forcing a close. Grounded on the
// signal.Notify + context.WithTimeout + Shutdown/Close-fallback
// pattern used elsewhere in the pack for graceful HTTP shutdown.
func (s *Server) Run(ctx context.Context, addr string, drain time.Duration) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("bind_addr", addr).Msg("starting hookhub server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down hookhub server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		if closeErr := httpServer.Close(); closeErr != nil {
			return closeErr
		}
	}
	s.log.Info().Msg("hookhub server stopped")
	return nil
}
