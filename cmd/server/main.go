package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/gobooks/internal/adapter/http"
	"github.com/iho/gobooks/internal/adapter/http/handler"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/gobooks/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gobooks/internal/adapter/repository/redis"
	"github.com/iho/gobooks/internal/infrastructure/auth"
	"github.com/iho/gobooks/internal/infrastructure/config"
	"github.com/iho/gobooks/internal/infrastructure/logger"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
	"github.com/iho/gobooks/internal/infrastructure/postgres"
	"github.com/iho/gobooks/internal/infrastructure/redis"
	"github.com/iho/gobooks/internal/usecase"
)

// limiterIdle is how long a client may stay silent before its rate limiter is dropped.
const limiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer a.close()

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	if a.limiter != nil {
		go a.sweepLimiters(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// app is the wired HTTP application.
type app struct {
	handler http.Handler
	limiter *middleware.RateLimiter
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) sweepLimiters(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.CleanupLimiters(limiterIdle)
		}
	}
}

// storage is the set of repositories backing the use cases.
type storage struct {
	txManager   usecase.TransactionManager
	accounts    usecase.AccountRepository
	partners    usecase.PartnerRepository
	journals    usecase.JournalRepository
	ledger      usecase.LedgerRepository
	locks       usecase.PeriodLockRepository
	idempotency usecase.IdempotencyRepository
	audit       usecase.AuditRepository
	retrier     usecase.Retrier
	checks      map[string]handler.Pinger
	close       func()
}

func newStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.New()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &storage{
			txManager:   memory.NewTxManager(store),
			accounts:    memory.NewAccountRepository(store),
			partners:    memory.NewPartnerRepository(store),
			journals:    memory.NewJournalRepository(store),
			ledger:      memory.NewLedgerRepository(store),
			locks:       memory.NewPeriodLockRepository(store),
			idempotency: memory.NewIdempotencyRepository(store),
			audit:       memory.NewAuditRepository(store),
			checks:      map[string]handler.Pinger{},
			close:       func() {},
		}, nil

	case config.DriverPostgres:
		if cfg.AutoMigrate {
			if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log).Up(); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
		defer cancel()

		pool, err := postgres.NewPoolWithConfig(connectCtx, postgres.PoolConfig{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    cfg.DatabaseMaxConns,
			MinConns:    cfg.DatabaseMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info().Msg("connected to postgres")

		return &storage{
			txManager:   postgresRepo.NewTxManager(pool),
			accounts:    postgresRepo.NewAccountRepository(pool),
			partners:    postgresRepo.NewPartnerRepository(pool),
			journals:    postgresRepo.NewJournalRepository(pool),
			ledger:      postgresRepo.NewLedgerRepository(pool),
			locks:       postgresRepo.NewPeriodLockRepository(pool),
			idempotency: postgresRepo.NewIdempotencyRepository(pool).WithLockTimeout(cfg.LockTimeout),
			audit:       postgresRepo.NewAuditRepository(pool),
			retrier:     postgresRepo.NewRetrier(log),
			checks:      map[string]handler.Pinger{"postgres": pool},
			close:       pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// newApp wires repositories, use cases and handlers into a router.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg *prometheus.Registry) (*app, error) {
	st, err := newStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{closers: []func(){st.close}}

	m := metrics.New(reg)
	idGen := postgresRepo.NewULIDGenerator()

	reports := usecase.NewReportUseCase(st.accounts, st.partners, st.ledger).
		WithRecorder(m).
		WithLogger(log)

	var idempotencyStore usecase.IdempotencyStore
	if cfg.RedisEnabled {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info().Msg("connected to redis")

		a.closers = append(a.closers, func() { _ = client.Close() })
		st.checks["redis"] = redisPinger(client)
		reports.WithCache(redisRepo.NewCache(client), cfg.ReportCacheTTL)
		idempotencyStore = redisRepo.NewIdempotencyStore(client)
	}

	periods := usecase.NewPeriodUseCase(st.txManager, st.locks, idGen).
		WithAuditRepository(st.audit)

	journal := usecase.NewJournalUseCase(st.txManager, st.journals, st.accounts, st.partners, st.idempotency, periods, idGen).
		WithAuditRepository(st.audit).
		WithRecorder(m).
		WithObserver(reports).
		WithLogger(log)

	closing := usecase.NewClosingUseCase(st.txManager, st.journals, st.accounts, st.ledger, periods, idGen).
		WithAuditRepository(st.audit).
		WithRecorder(m).
		WithObserver(reports).
		WithLogger(log)

	if st.retrier != nil {
		journal.WithRetrier(st.retrier)
		closing.WithRetrier(st.retrier)
	}

	accounts := usecase.NewAccountUseCase(st.txManager, st.accounts, idGen).WithAuditRepository(st.audit)
	partners := usecase.NewPartnerUseCase(st.txManager, st.partners, idGen).WithAuditRepository(st.audit)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler: handler.NewAccountHandler(accounts),
		PartnerHandler: handler.NewPartnerHandler(partners),
		PeriodHandler:  handler.NewPeriodHandler(periods),
		JournalHandler: handler.NewJournalHandler(journal),
		ClosingHandler: handler.NewClosingHandler(closing),
		ReportHandler:  handler.NewReportHandler(reports),
		LedgerHandler:  handler.NewLedgerHandler(usecase.NewLedgerUseCase(st.ledger)),
		HealthHandler:  handler.NewHealthHandler(st.checks),

		Logger:          log,
		Metrics:         m,
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReportRateLimit: cfg.ReportRateLimitPerMinute,

		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,

		DefaultOrganizationID: cfg.DefaultOrganizationID,
	}

	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)
		routerCfg.RateLimiter = a.limiter
	}

	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	} else {
		log.Warn().Str("organization_id", cfg.DefaultOrganizationID).Msg("authentication disabled, requests run as admin")
	}

	a.handler = httpAdapter.NewRouter(routerCfg)
	return a, nil
}

func redisPinger(client *goredis.Client) handler.PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
