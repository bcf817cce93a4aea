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

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	amqpAdapter "github.com/iho/gosettle/internal/adapter/amqp"
	httpAdapter "github.com/iho/gosettle/internal/adapter/http"
	"github.com/iho/gosettle/internal/adapter/http/handler"
	"github.com/iho/gosettle/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/gosettle/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gosettle/internal/adapter/repository/redis"
	"github.com/iho/gosettle/internal/infrastructure/auth"
	"github.com/iho/gosettle/internal/infrastructure/config"
	"github.com/iho/gosettle/internal/infrastructure/eventpublisher"
	"github.com/iho/gosettle/internal/infrastructure/logger"
	"github.com/iho/gosettle/internal/infrastructure/metrics"
	"github.com/iho/gosettle/internal/infrastructure/postgres"
	"github.com/iho/gosettle/internal/infrastructure/redis"
	"github.com/iho/gosettle/internal/usecase"
)

const rateLimiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	zlog.Logger = log
	zerolog.DefaultContextLogger = &log

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log).Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Connect to Redis when configured
	var (
		redisClient      *goredis.Client
		cache            usecase.Cache
		idempotencyStore usecase.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		cache = redisRepo.NewCache(redisClient)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_URL not set; running without cache and idempotency")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	retrier := postgresRepo.NewRetrier(log)
	memberRepo := postgresRepo.NewMemberRepository(pool)
	groupRepo := postgresRepo.NewGroupRepository(pool)
	expenseRepo := postgresRepo.NewExpenseRepository(pool)
	settlementRepo := postgresRepo.NewSettlementRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	// Initialize use cases
	memberUC := usecase.NewMemberUseCase(memberRepo, idGen, jwtManager, m)
	groupUC := usecase.NewGroupUseCase(txManager, groupRepo, memberRepo, outboxRepo, idGen, m)
	expenseUC := usecase.NewExpenseUseCase(txManager, groupRepo, expenseRepo, outboxRepo, idGen, m)
	settlementUC := usecase.NewSettlementUseCase(
		txManager, retrier, groupRepo, memberRepo, expenseRepo, settlementRepo, outboxRepo,
		idGen, cache, m, log,
		usecase.SettlementOptions{OptimizeTimeout: cfg.OptimizeTimeout, CacheTTL: cfg.OptimizeCacheTTL},
	)

	// Outbox relay
	publisher, closePublisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	outbox := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Metrics:    m,
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuthHandler:       handler.NewAuthHandler(memberUC),
		GroupHandler:      handler.NewGroupHandler(groupUC),
		ExpenseHandler:    handler.NewExpenseHandler(expenseUC),
		SettlementHandler: handler.NewSettlementHandler(settlementUC),
		HealthHandler:     handler.NewHealthHandler(pool, redisClient),
		TokenVerifier:     jwtManager,
		IdempotencyStore:  idempotencyStore,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		RateLimiter:       rateLimiter,
		Metrics:           m,
		MetricsHandler:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Logger:            log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := outbox.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(rateLimiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := rateLimiter.CleanupLimiters(rateLimiterIdle); n > 0 {
					log.Debug().Int("removed", n).Msg("pruned idle rate limiters")
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newPublisher connects to the AMQP broker when one is configured and falls
// back to logging events otherwise.
func newPublisher(ctx context.Context, cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		log.Warn().Msg("AMQP_URL not set; outbox events will only be logged")
		return eventpublisher.NewLogPublisher(log), func() {}, nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)

	var publisher *amqpAdapter.Publisher
	err := backoff.RetryNotify(func() error {
		var err error
		publisher, err = amqpAdapter.Dial(cfg.AMQPURL, cfg.AMQPExchange, log)
		return err
	}, b, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("amqp dial failed")
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to amqp: %w", err)
	}

	log.Info().Str("exchange", cfg.AMQPExchange).Msg("connected to amqp")
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close amqp publisher")
		}
	}, nil
}
