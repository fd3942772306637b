package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/finova/ledger/internal/adapter/http/handler"
	"github.com/finova/ledger/internal/adapter/http/middleware"
	"github.com/finova/ledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler        *handler.AccountHandler
	EventHandler          *handler.EventHandler
	AuditHandler          *handler.AuditHandler
	RatesHandler          *handler.RatesHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler
	IdempotencyStore      usecase.IdempotencyStore
	IdempotencyTTL        time.Duration
	RateLimiter           *middleware.RateLimiter
	Logger                zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Wrap)

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Financial events
		r.Route("/events", func(r chi.Router) {
			r.Post("/", cfg.EventHandler.Create)
			r.Get("/{id}", cfg.EventHandler.Get)
			r.Put("/{id}", cfg.EventHandler.Update)
			r.Delete("/{id}", cfg.EventHandler.Delete)
			r.Get("/{id}/audit", cfg.AuditHandler.ListByEvent)
		})

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/events", cfg.EventHandler.ListByAccount)
			r.Get("/{id}/reconciliation", cfg.ReconciliationHandler.ReconcileAccount)
		})

		// Rates and conversion
		r.Get("/rates", cfg.RatesHandler.GetRates)
		r.Get("/convert", cfg.RatesHandler.Convert)
	})

	return r
}
