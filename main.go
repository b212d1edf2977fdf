package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"kanmind/backend/internal/cache"
	"kanmind/backend/internal/config"
	"kanmind/backend/internal/database"
	"kanmind/backend/internal/monitoring"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kanmind: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := monitoring.NewLogger(os.Stdout, cfg.Observability.LogLevel, cfg.Server.Environment)
	slog.SetDefault(log)
	log.Info("starting kanmind backend", slog.String("environment", cfg.Server.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := monitoring.InitTracing(ctx, log, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName, cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	pool, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := openCache(ctx, cfg, log)
	defer store.Close()

	app := newApplication(cfg, log, pool, store)
	app.worker.Start()
	defer app.stop()

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      otelhttp.NewHandler(app.routes(), cfg.Observability.ServiceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("failed to flush traces", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
	return nil
}

func openDatabase(cfg *config.Config, log *slog.Logger) (*database.DatabasePool, error) {
	poolConfig := database.DefaultPoolConfig()
	poolConfig.Driver = cfg.Database.Driver
	poolConfig.DSN = cfg.GetDatabaseDSN()
	poolConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	poolConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	poolConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	poolConfig.Logger = log

	pool, err := database.NewDatabasePool(poolConfig)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(pool.DB); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("database schema migrated", slog.String("driver", cfg.Database.Driver))
	}
	return pool, nil
}

// openCache returns the shared cache. Without redis it keeps only the
// in-process level, which is enough for a single instance.
func openCache(ctx context.Context, cfg *config.Config, log *slog.Logger) *cache.MultiLevelCache {
	breakerConfig := cache.DefaultCircuitBreakerConfig()
	breakerConfig.OnStateChange = func(from, to cache.CircuitBreakerState) {
		monitoring.ObserveBreakerTransition(from.String(), to.String())
		log.Warn("cache circuit breaker changed state",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}
	breaker := cache.NewCircuitBreaker(breakerConfig)

	if !cfg.Redis.Enabled {
		log.Info("redis disabled, using in-process cache only")
		return cache.NewMultiLevelCache(nil, breaker)
	}

	redisCache := cache.NewRedisCache(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		KeyPrefix:    "kanmind:",
	})
	if err := redisCache.Health(ctx); err != nil {
		log.Warn("redis not reachable at startup", slog.String("addr", cfg.GetRedisAddr()), slog.String("error", err.Error()))
	}
	return cache.NewMultiLevelCache(redisCache, breaker)
}
