package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/adapter/http/handler"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
	"github.com/iho/gobooks/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler *handler.AccountHandler
	PartnerHandler *handler.PartnerHandler
	PeriodHandler  *handler.PeriodHandler
	JournalHandler *handler.JournalHandler
	ClosingHandler *handler.ClosingHandler
	ReportHandler  *handler.ReportHandler
	LedgerHandler  *handler.LedgerHandler
	HealthHandler  *handler.HealthHandler

	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter

	// ReportRateLimit caps report requests per client IP and minute; zero disables it.
	ReportRateLimit int

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	// TokenVerifier enables bearer authentication. When nil every request
	// runs as an admin of DefaultOrganizationID.
	TokenVerifier         middleware.TokenVerifier
	DefaultOrganizationID string
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

	canWrite := middleware.RequireRole(domain.Role.CanWriteJournal)
	canManage := middleware.RequireRole(domain.Role.CanManageBooks)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.Authenticate(cfg.TokenVerifier, cfg.Metrics))
		} else {
			r.Use(middleware.StaticActor(cfg.DefaultOrganizationID))
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore).WithTTL(cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/options", cfg.AccountHandler.Options)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(canManage)
				r.Post("/", cfg.AccountHandler.Create)
				r.Post("/import", cfg.AccountHandler.Import)
				r.Put("/{id}", cfg.AccountHandler.Update)
				r.Delete("/{id}", cfg.AccountHandler.Delete)
			})
		})

		r.Route("/partners", func(r chi.Router) {
			r.Get("/", cfg.PartnerHandler.List)
			r.Get("/options", cfg.PartnerHandler.Options)
			r.Get("/{id}", cfg.PartnerHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(canManage)
				r.Post("/", cfg.PartnerHandler.Create)
				r.Post("/import", cfg.PartnerHandler.Import)
				r.Put("/{id}", cfg.PartnerHandler.Update)
				r.Delete("/{id}", cfg.PartnerHandler.Delete)
			})
		})

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", cfg.PeriodHandler.List)
			r.Group(func(r chi.Router) {
				r.Use(canManage)
				r.Post("/", cfg.PeriodHandler.Create)
				r.Post("/{id}/close", cfg.PeriodHandler.Close)
				r.Post("/{id}/reopen", cfg.PeriodHandler.Reopen)
			})
		})

		r.Route("/journals", func(r chi.Router) {
			r.Get("/", cfg.JournalHandler.List)
			r.Get("/{id}", cfg.JournalHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(canWrite)
				r.Post("/", cfg.JournalHandler.Create)
				r.Put("/{id}", cfg.JournalHandler.Update)
				r.Post("/{id}/post", cfg.JournalHandler.Post)
				r.Post("/{id}/reverse", cfg.JournalHandler.Reverse)
				r.Post("/{id}/void", cfg.JournalHandler.Void)
			})
			r.With(canManage).Post("/opening", cfg.JournalHandler.Opening)
		})

		r.Route("/closing", func(r chi.Router) {
			r.Get("/{year}", cfg.ClosingHandler.Status)
			r.With(canManage).Post("/{year}", cfg.ClosingHandler.Run)
		})

		r.Route("/reports", func(r chi.Router) {
			if cfg.ReportRateLimit > 0 {
				r.Use(reportLimiter(cfg.ReportRateLimit, cfg.Metrics))
			}
			r.Get("/trial-balance", cfg.ReportHandler.TrialBalance)
			r.Get("/income-statement", cfg.ReportHandler.IncomeStatement)
			r.Get("/balance-sheet", cfg.ReportHandler.BalanceSheet)
			r.Get("/cash-flow", cfg.ReportHandler.CashFlow)
			r.Get("/equity-statement", cfg.ReportHandler.EquityStatement)
			r.Get("/worksheet", cfg.ReportHandler.Worksheet)
			r.Get("/subledger", cfg.ReportHandler.Subledger)
			r.Get("/subledger/detail", cfg.ReportHandler.SubledgerDetail)
			r.Get("/ledger", cfg.ReportHandler.Ledger)
			r.Get("/charts", cfg.ReportHandler.Chart)
		})

		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	})

	return r
}

// reportLimiter throttles report builds per client IP.
func reportLimiter(perMinute int, m *metrics.Metrics) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if m != nil {
				m.RateLimitHits.WithLabelValues("reports").Inc()
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
		}),
	)
}
