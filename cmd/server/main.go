package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/finova/ledger/internal/adapter/http"
	"github.com/finova/ledger/internal/adapter/http/handler"
	"github.com/finova/ledger/internal/adapter/http/middleware"
	"github.com/finova/ledger/internal/adapter/ratesource"
	postgresRepo "github.com/finova/ledger/internal/adapter/repository/postgres"
	redisRepo "github.com/finova/ledger/internal/adapter/repository/redis"
	"github.com/finova/ledger/internal/infrastructure/config"
	"github.com/finova/ledger/internal/infrastructure/logger"
	"github.com/finova/ledger/internal/infrastructure/metrics"
	"github.com/finova/ledger/internal/infrastructure/postgres"
	"github.com/finova/ledger/internal/infrastructure/redis"
	"github.com/finova/ledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), cfg.DatabaseTimeout)
	defer cancelConnect()

	pool, err := postgres.NewPool(connectCtx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := redis.NewClient(connectCtx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	eventRepo := postgresRepo.NewEventRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	retrier := postgresRepo.NewRetrier(log)
	idGen := postgresRepo.NewULIDGenerator()
	rateCache := redisRepo.NewCache(redisClient, m)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Rates and conversion
	rateSource := ratesource.NewClient(cfg.RateSourceURL, cfg.RateFetchTimeout)
	rateProvider := usecase.NewRateProvider(rateSource, rateCache, cfg.RateCacheTTL, cfg.RateFetchTimeout, m, log)
	converter := usecase.NewCurrencyConverter(rateProvider, cfg.LocalCurrency)

	// Use cases
	reconciler := usecase.NewBalanceReconciler(accountRepo, converter, log)
	ledgerUC := usecase.NewLedgerUseCase(
		txManager, accountRepo, eventRepo, auditRepo, outboxRepo,
		reconciler, converter, retrier, idGen, m, log,
	)
	reconciliationUC := usecase.NewReconciliationUseCase(accountRepo, eventRepo, converter, m)

	// Outbox relay
	publisher := redisRepo.NewPublisher(redisClient)
	relay := usecase.NewOutboxRelay(outboxRepo, publisher, cfg.OutboxRelayInterval, cfg.OutboxBatchSize, log)

	relayCtx, cancelRelay := context.WithCancel(context.Background())
	defer cancelRelay()
	go relay.Run(relayCtx)

	accountUC := usecase.NewAccountUseCase(accountRepo, idGen, log)

	// Handlers
	accountHandler := handler.NewAccountHandler(accountUC)
	eventHandler := handler.NewEventHandler(ledgerUC)
	auditHandler := handler.NewAuditHandler(auditRepo)
	ratesHandler := handler.NewRatesHandler(rateProvider, converter, m)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        accountHandler,
		EventHandler:          eventHandler,
		AuditHandler:          auditHandler,
		RatesHandler:          ratesHandler,
		ReconciliationHandler: reconciliationHandler,
		HealthHandler:         healthHandler,
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		RateLimiter:           rateLimiter,
		Logger:                log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	done := make(chan struct{})
	go reportPoolStats(pool, m, done)
	go cleanupLimiters(rateLimiter, done)

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	close(done)
	cancelRelay()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// reportPoolStats periodically copies pgx pool stats into the
// connection gauge until done is closed.
func reportPoolStats(pool *pgxpool.Pool, m *metrics.Metrics, done <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.DBConnections.Set(float64(pool.Stat().TotalConns()))
		}
	}
}

// cleanupLimiters bounds the per-IP limiter map by resetting it every
// hour until done is closed.
func cleanupLimiters(rl *middleware.RateLimiter, done <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rl.CleanupLimiters()
		}
	}
}
