// Package server wires the HTTP surface: middleware, auth routes, the
// data endpoint and health checks.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gatehouse/internal/auth"
	"gatehouse/internal/config"
	"gatehouse/internal/session"
	"gatehouse/internal/users"
)

// Pinger is implemented by session backends that can report connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the collaborators the HTTP layer needs
type Deps struct {
	Users    users.Store
	Sessions *session.Manager
	Auth     auth.Service

	// DB is nil when running without Postgres
	DB *pgxpool.Pool

	// SessionBackend is pinged by /health when it implements Pinger
	SessionBackend any

	Logger *slog.Logger
}

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg  *config.Config
	deps Deps
	log  *slog.Logger
}

// New creates a Server from its dependencies
func New(cfg *config.Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, deps: deps, log: log}
}

// HTTPServer configures the net/http server around the router
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.RegisterRoutes(),
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
