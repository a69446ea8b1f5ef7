package httpserver

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides HTTP endpoints for metrics and health checks.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port             string
	Logger           *zap.Logger
	HealthChecker    *healthprobe.HealthChecker
	OrderbookManager *orderbook.Manager
	Mappings         MappingLookup
	Scheduler        TaskCreator             // optional; enables /api/tasks.
	Reconciler       CloseOpportunitySource // optional; enables /api/close-opportunities.

	// AuthToken gates the task-control and close-opportunity routes with a
	// bearer-token check. Empty disables those routes entirely rather than
	// exposing them unauthenticated.
	AuthToken string
}

// bearerAuth rejects any request whose "Authorization: Bearer <token>"
// header doesn't match token.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	// Orderbook API endpoint (if components provided)
	if cfg.OrderbookManager != nil && cfg.Mappings != nil {
		obHandler := NewOrderbookHandler(cfg.OrderbookManager, cfg.Mappings, cfg.Logger)
		r.Get("/api/orderbook", obHandler.HandleOrderbook)
	}

	if cfg.AuthToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(cfg.AuthToken))

		if cfg.Scheduler != nil {
			taskHandler := NewTaskHandler(cfg.Scheduler, cfg.Logger)
			r.Get("/api/tasks", taskHandler.HandleList)
			r.Post("/api/tasks", taskHandler.HandleCreate)
			r.Post("/api/tasks/{id}/cancel", taskHandler.HandleCancel)
		}

		if cfg.Reconciler != nil {
			closeHandler := NewCloseOpportunityHandler(cfg.Reconciler, cfg.Logger)
			r.Get("/api/close-opportunities", closeHandler.HandleList)
		}
		})
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
