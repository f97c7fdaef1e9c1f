// Package server exposes the gateway's HTTP surface: the authenticated
// /query endpoint plus health, readiness and metrics.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"postgate/internal/config"
	"postgate/internal/domain"
	"postgate/internal/logger"
)

// MetadataStore is the slice of the store the server needs. Token validation
// and database resolution are distinct pipeline stages with distinct failure
// codes, so they stay separate methods.
type MetadataStore interface {
	ValidateToken(ctx context.Context, secret string) (*domain.TokenInfo, error)
	GetDatabase(ctx context.Context, id uuid.UUID) (*domain.DatabaseConfig, error)
	Ping(ctx context.Context) error
}

// QueryExecutor runs one validated statement.
type QueryExecutor interface {
	Execute(ctx context.Context, databaseID uuid.UUID, backend domain.Backend, req domain.QueryRequest, maxRows int) (*domain.QueryResponse, error)
}

// Server wires the request pipeline together.
type Server struct {
	cfg   config.ServerConfig
	store MetadataStore
	exec  QueryExecutor
	log   *logger.Logger
	audit *logger.AuditLogger

	httpServer *http.Server
}

// New creates a Server. audit may be nil to disable audit logging.
func New(cfg config.ServerConfig, st MetadataStore, exec QueryExecutor, log *logger.Logger, audit *logger.AuditLogger) *Server {
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		cfg:   cfg,
		store: st,
		exec:  exec,
		log:   log,
		audit: audit,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(logMiddleware(s.log))
	r.Use(middleware.Recoverer)

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/query", s.handleQuery)

	return r
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.cfg.Addr())
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
