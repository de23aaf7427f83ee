package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsfloor/sophub/pkg/access"
	"github.com/opsfloor/sophub/pkg/ai"
	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/middleware"
	"github.com/opsfloor/sophub/pkg/observability"
	"github.com/opsfloor/sophub/pkg/runs"
	"github.com/opsfloor/sophub/pkg/sops"
	"github.com/opsfloor/sophub/pkg/suggestions"
	"github.com/opsfloor/sophub/pkg/teams"
)

// Server wires the domain services behind an HTTP API
type Server struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.Metrics

	issuer *auth.TokenIssuer
	engine *access.Engine

	users          *auth.Store
	teams          *teams.Store
	sops           *sops.Service
	runs           *runs.Service
	suggestions    *suggestions.Service
	worker         *suggestions.Worker
	aiClient       *ai.Client
	loginLimiter   *middleware.RateLimiter
	assistLimiter  *middleware.RateLimiter
	authMiddleware *middleware.AuthMiddleware
}

// NewServer creates an API server over the given database connection
func NewServer(db *sql.DB, issuer *auth.TokenIssuer, aiClient *ai.Client, logger *observability.Logger) *Server {
	engine := access.NewEngine(db)
	suggestionService := suggestions.NewService(db, engine)

	return &Server{
		db:             db,
		logger:         logger,
		issuer:         issuer,
		engine:         engine,
		users:          auth.NewStore(db),
		teams:          teams.NewStore(db),
		sops:           sops.NewService(db, engine),
		runs:           runs.NewService(db, engine),
		suggestions:    suggestionService,
		worker:         suggestions.NewWorker(suggestionService.Store(), aiClient, logger),
		aiClient:       aiClient,
		loginLimiter:   middleware.NewRateLimiter(middleware.LoginRateLimitConfig()),
		assistLimiter:  middleware.NewRateLimiter(middleware.AssistRateLimitConfig()),
		authMiddleware: middleware.NewAuthMiddleware(issuer),
	}
}

// WithMetrics attaches metrics to the server, its access engine, and the
// summarization worker
func (s *Server) WithMetrics(m *observability.Metrics) *Server {
	s.metrics = m
	s.engine.WithMetrics(m)
	s.worker.WithMetrics(m)
	return s
}

// Worker exposes the suggestion summarization worker for scheduling
func (s *Server) Worker() *suggestions.Worker {
	return s.worker
}

// HealthHandler exposes the health check for a standalone probe server.
func (s *Server) HealthHandler() http.HandlerFunc {
	return s.health
}

// StartRateLimitCleanup launches the background bucket cleanup loops.
func (s *Server) StartRateLimitCleanup(ctx context.Context) {
	s.loginLimiter.StartCleanup(ctx)
	s.assistLimiter.StartCleanup(ctx)
}

// RefreshGauges recomputes the SOP and active-run gauges from the database.
// No-op when metrics are disabled.
func (s *Server) RefreshGauges(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}
	total, err := s.sops.Store().Count(ctx)
	if err != nil {
		return err
	}
	active, err := s.runs.Store().CountActive(ctx)
	if err != nil {
		return err
	}
	s.metrics.SopsTotal.Set(float64(total))
	s.metrics.RunsActiveTotal.Set(float64(active))
	return nil
}

// Router builds the HTTP routing table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	if s.metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	// Public routes
	router.HandleFunc("/health", s.health).Methods("GET")
	router.Handle("/auth/login",
		s.loginLimiter.Handler(http.HandlerFunc(s.login))).Methods("POST")

	// Everything else requires a bearer token
	authed := router.NewRoute().Subrouter()
	authed.Use(s.authMiddleware.Handler)

	authed.HandleFunc("/auth/me", s.me).Methods("GET")

	s.registerSopRoutes(authed)
	s.registerRunRoutes(authed)
	s.registerSuggestionRoutes(authed)
	s.registerTeamRoutes(authed)
	s.registerUserRoutes(authed)
	s.registerAdminRoutes(authed)
	s.registerAIRoutes(authed)

	return router
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.WithError(err).Error("health check failed")
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}
