package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/notify"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
)

// Server serves the notification engine's HTTP endpoints.
type Server struct {
	addr       string
	store      store.Store
	dispatcher *notify.Dispatcher
	httpServer *http.Server
}

// NewServer wires the HTTP surface over the given store and dispatcher.
func NewServer(addr string, s store.Store, dispatcher *notify.Dispatcher) *Server {
	return &Server{
		addr:       addr,
		store:      s,
		dispatcher: dispatcher,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.eventsHandler)
	mux.HandleFunc("/notifications", s.notificationsHandler)
	mux.HandleFunc("/notifications/read", s.notificationsReadHandler)
	mux.HandleFunc("/devices", s.devicesHandler)
	mux.HandleFunc("/outbox", s.outboxHandler)
	mux.HandleFunc("/outbox/reset", s.outboxResetHandler)
	return mux
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
