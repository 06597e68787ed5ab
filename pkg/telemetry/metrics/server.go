// Package metrics exposes the Prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler for the Prometheus exposition endpoint,
// serving every metric registered with the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server serves the metrics endpoint on its own listener.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server on the given address and scrape path.
func NewServer(addr, path string) *Server {
	mux := http.NewServeMux()
	mux.Handle(path, Handler())

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", s.srv.Addr, "error", err)
		}
	}()
	slog.Info("metrics server started", "addr", s.srv.Addr)
}

// Shutdown stops the server, waiting for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
