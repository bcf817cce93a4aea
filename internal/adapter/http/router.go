package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/gosettle/internal/adapter/http/handler"
	"github.com/iho/gosettle/internal/adapter/http/middleware"
	"github.com/iho/gosettle/internal/infrastructure/metrics"
	"github.com/iho/gosettle/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuthHandler       *handler.AuthHandler
	GroupHandler      *handler.GroupHandler
	ExpenseHandler    *handler.ExpenseHandler
	SettlementHandler *handler.SettlementHandler
	HealthHandler     *handler.HealthHandler

	TokenVerifier    middleware.TokenVerifier
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", cfg.AuthHandler.Register)
		r.Post("/auth/login", cfg.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier))

			// Idempotency runs after auth so keys are scoped to the caller.
			if cfg.IdempotencyStore != nil {
				r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
			}

			r.Get("/auth/me", cfg.AuthHandler.Me)

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", cfg.GroupHandler.Create)
				r.Get("/", cfg.GroupHandler.List)
				r.Get("/{id}", cfg.GroupHandler.Get)
				r.Post("/{id}/members", cfg.GroupHandler.AddMember)
				r.Get("/{id}/expenses", cfg.ExpenseHandler.ListByGroup)
			})

			r.Post("/expenses", cfg.ExpenseHandler.Record)

			r.Route("/settlements", func(r chi.Router) {
				r.Post("/optimize", cfg.SettlementHandler.Optimize)
				r.Post("/optimize/accept", cfg.SettlementHandler.Accept)
				r.Get("/balance", cfg.SettlementHandler.Balance)
				r.Patch("/complete", cfg.SettlementHandler.Complete)
				r.Patch("/cancel", cfg.SettlementHandler.Cancel)
				r.Post("/", cfg.SettlementHandler.Create)
				r.Get("/", cfg.SettlementHandler.List)
				r.Get("/{id}", cfg.SettlementHandler.Get)
			})
		})
	})

	return r
}
