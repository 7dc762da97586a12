// Package main is the entry point for the wallet API.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paywave/internal/config"
	"paywave/internal/handlers"
	"paywave/internal/logging"
	"paywave/internal/metrics"
	"paywave/internal/repositories"
	"paywave/internal/repositories/cache"
	"paywave/internal/routes"
	"paywave/internal/services/notification"
	"paywave/internal/services/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	os.Exit(serve())
}

// serve returns the process exit code so every deferred close and the final
// logger flush run before os.Exit.
func serve() int {
	config.LoadEnv()
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Printf("failed to build logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if err := repositories.CloseDB(db); err != nil {
				logger.Warn("failed to close database", zap.Error(err))
			}
		}()
	}

	collector := metrics.NewCollector()

	registry, redisClient, err := buildRegistry(cfg, collector, logger)
	if err != nil {
		return err
	}
	var redisPinger handlers.Pinger
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis", zap.Error(err))
			}
		}()
		redisPinger = handlers.PingFunc(func(ctx context.Context) error {
			return cache.HealthCheck(ctx, redisClient)
		})
	}
	go registry.Run(ctx, sweepInterval)

	app := fiber.New(fiber.Config{
		AppName:      "paywave " + routes.Version,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
	}))
	if !cfg.IsProduction() {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	routes.SetupRoutes(app, routes.Dependencies{
		Config:   cfg,
		Store:    store,
		Registry: registry,
		Metrics:  collector,
		Logger:   logger,
		Notifier: notification.NewService(logger),
		Redis:    redisPinger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreDriver),
			zap.String("rate_limit_backend", cfg.RateLimitBackend),
		)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// openStore returns the configured store. db is nil for the memory driver.
func openStore(cfg *config.Config, logger *zap.Logger) (repositories.Store, *gorm.DB, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; balances are lost on restart")
		return repositories.NewMemoryStore(), nil, nil
	case config.StoreDriverPostgres:
		db, err := repositories.InitDB(cfg.DB, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return repositories.NewGormStore(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// buildRegistry registers one limiter per configured policy. The redis
// client is nil for the memory backend.
func buildRegistry(cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*ratelimit.Registry, *redis.Client, error) {
	registry := ratelimit.NewRegistry(collector)

	var client *redis.Client
	if cfg.RateLimitBackend == config.RateLimitBackendRedis {
		client = cache.NewRedisClient(cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cache.HealthCheck(ctx, client); err != nil {
			// The limiter fails open, so a cold redis is not fatal.
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		cancel()
	} else if cfg.RateLimitBackend != config.RateLimitBackendMemory {
		return nil, nil, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}

	for _, policy := range ratelimit.PoliciesFromConfig(cfg) {
		var (
			limiter ratelimit.Limiter
			err     error
		)
		if client != nil {
			limiter, err = ratelimit.NewRedisLimiter(policy, client, logger, collector)
		} else {
			limiter, err = ratelimit.NewMemoryLimiter(policy)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("rate limit policy %q: %w", policy.Name, err)
		}
		registry.Register(limiter)
	}
	return registry, client, nil
}
