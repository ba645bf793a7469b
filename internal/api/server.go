package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nishad/enaimport/internal/logger"
	"github.com/nishad/enaimport/internal/metrics"
	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/runstore"
)

// RunStore is the read side of the run history.
type RunStore interface {
	Get(ctx context.Context, id string) (*models.PipelineRun, error)
	List(ctx context.Context, f runstore.Filter) ([]*models.PipelineRun, error)
}

// Pinger is a dependency reported by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the ops HTTP server
type Server struct {
	router  *mux.Router
	server  *http.Server
	runs    RunStore
	metrics *metrics.Metrics
	checks  map[string]Pinger
	log     *logger.Logger
}

// Config holds server configuration
type Config struct {
	Addr       string
	EnableCORS bool
}

// NewServer creates a new ops server. checks are pinged by /health; metrics
// may be nil, in which case /metrics is not served.
func NewServer(cfg Config, runs RunStore, m *metrics.Metrics, checks map[string]Pinger, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		router:  mux.NewRouter(),
		runs:    runs,
		metrics: m,
		checks:  checks,
		log:     log.With("component", "api"),
	}

	s.setupRoutes()

	if cfg.EnableCORS {
		s.router.Use(corsMiddleware)
	}
	s.router.Use(s.loggingMiddleware)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(jsonMiddleware)
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("starting ops server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ops server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down ops server")
	return s.server.Shutdown(ctx)
}

// Middleware functions

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "uri", r.RequestURI, "elapsed", time.Since(start))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Helper functions

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  status,
	})
}
