// Package server exposes the price resolution REST API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hirokada/shisan/internal/app"
	"github.com/hirokada/shisan/internal/common"
)

// Server owns the HTTP listener for the price API. Routes read their
// collaborators through the app reference, so tests can build a Server
// around stub stores and drive Handler() directly.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// NewServer assembles the mux, middleware chain and listener from config.
// The generous write timeout covers cold resolutions that backfill years of
// history before responding.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      applyMiddleware(mux, a.Logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetShutdownChannel wires the channel signaled by the /api/shutdown route.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// Handler returns the fully wrapped handler for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
