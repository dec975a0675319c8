// Package httpapi exposes the module's HTTP surface: webhook ingestion
// from the chat platform, an authenticated API for opportunities and
// preferences, admin overrides, and the ambient /healthz and /metrics
// endpoints, all behind the shared rate-limit and RBAC middleware chain.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/arbengine/fundarb/internal/access"
	"github.com/arbengine/fundarb/internal/log"
	"github.com/arbengine/fundarb/internal/profile"
	"github.com/arbengine/fundarb/internal/ratelimit"
	"github.com/arbengine/fundarb/internal/store/kv"
)

var logger = log.Component("httpapi")

// ServerConfig holds the listener and timeout settings for the server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the baseline listener configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Deps bundles the collaborators the HTTP surface delegates to.
type Deps struct {
	Store       kv.Store
	Sessions    *profile.SessionStore
	Profiles    *profile.Service
	Checker     *access.Checker
	RouteTable  *ratelimit.RouteTable
	PingPostgres func(ctx context.Context) error
	Version     string
	BuildStamp  string
}

// Server wraps the gorilla/mux router serving every route this process
// exposes.
type Server struct {
	router    *mux.Router
	server    *http.Server
	config    ServerConfig
	deps      Deps
	startedAt time.Time
}

// NewServer builds the router, wires every middleware and route, and
// returns a Server ready for Start.
func NewServer(config ServerConfig, deps Deps) *Server {
	router := mux.NewRouter()
	s := &Server{
		router:    router,
		config:    config,
		deps:      deps,
		startedAt: time.Now(),
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.timeoutMiddleware(5 * time.Second))
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.jsonContentTypeMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)

	webhook := s.router.PathPrefix("/webhook").Subrouter()
	webhook.Use(s.rateLimitMiddleware)
	webhook.HandleFunc("/{platform}", s.handleWebhook).Methods(http.MethodPost)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authenticateMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/opportunities", s.requirePermission(access.BasicOpportunities, s.handleListOpportunities)).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.requirePermission(access.BasicOpportunities, s.handleGetPreferences)).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.requirePermission(access.BasicOpportunities, s.handleUpdatePreferences)).Methods(http.MethodPatch)

	admin := s.router.PathPrefix("/admin").Subrouter()
	admin.Use(s.authenticateMiddleware)
	admin.Use(s.rateLimitMiddleware)
	admin.HandleFunc("/venues/{venueId}/disable", s.requirePermission(access.SystemAdministration, s.handleDisableVenue)).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	logger.Info().Str("addr", s.GetAddress()).Msg("http server starting")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the listener address.
func (s *Server) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Router exposes the underlying router for tests.
func (s *Server) Router() http.Handler { return s.router }

// responseWrapper captures the status code written so logging middleware
// can report it after the handler has run.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
