package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/events"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/rules"
	"github.com/veilhq/veil/internal/security"
	"go.uber.org/zap"
)

// Server is the HTTP front of the anonymisation core. The rules cache and
// audit committer are injected so the handler logic stays testable without
// process-level state.
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	cache     *rules.Cache
	committer *audit.Committer
	limiter   *security.RateLimiter
	hub       *events.Hub
	router    *mux.Router
	server    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger, cache *rules.Cache, committer *audit.Committer) *Server {
	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		cache:     cache,
		committer: committer,
		router:    mux.NewRouter(),
	}

	if cfg.RateLimit.Enabled {
		server.limiter = security.NewRateLimiter(cfg.RateLimit.RequestsPerMin)
	}

	if cfg.Events.Enabled {
		server.hub = events.NewHub(cfg.Events.AllowedOrigins, log.WithComponent("events").Logger)
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)

	// Health check endpoint, no dependencies
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET", "OPTIONS")

	// Anonymisation endpoint
	s.router.Handle("/anonymise", s.rateLimitMiddleware(http.HandlerFunc(s.handleAnonymise))).Methods("POST", "OPTIONS")

	// Operational event stream
	if s.hub != nil {
		s.router.HandleFunc(s.config.Events.Path, s.handleWebSocket).Methods("GET")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting veil server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("audit_enabled", s.config.Audit.Enabled),
		zap.Bool("rate_limit_enabled", s.config.RateLimit.Enabled),
		zap.String("allowed_origin", logger.Sanitize(s.config.CORS.AllowedOrigin)),
	)

	if s.hub != nil {
		go s.hub.Run()
	}

	if s.limiter != nil {
		s.limiter.StartCleanupRoutine()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping veil server")
	return s.server.Shutdown(ctx)
}

// handleWebSocket handles event stream subscriptions
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWebSocket(w, r)
}
