// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"paywave/internal/config"
	"paywave/internal/handlers"
	"paywave/internal/metrics"
	"paywave/internal/middleware"
	"paywave/internal/repositories"
	"paywave/internal/services/ratelimit"
	"paywave/internal/services/transfer"
	"paywave/internal/services/wallet"
	"paywave/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

const Version = "1.0.0"

// Dependencies are the long-lived objects the routes are built from.
// Notifier and Redis are optional.
type Dependencies struct {
	Config   *config.Config
	Store    repositories.Store
	Registry *ratelimit.Registry
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	Notifier transfer.NotificationService
	Redis    handlers.Pinger
}

// SetupRoutes configures all application routes.
// Every /api route except the collaborator rate limit check passes the api
// rate limit first and the JWT check second.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	v := validation.New()

	transferService := transfer.NewService(
		deps.Store,
		transfer.Config{MaxAmount: cfg.TransferMaxAmount, Timeout: cfg.TransferTimeout},
		deps.Logger,
		deps.Metrics,
		deps.Notifier,
	)
	walletService := wallet.NewService(deps.Store, deps.Logger, deps.Metrics)

	transferHandler := handlers.NewTransferHandler(transferService, v)
	walletHandler := handlers.NewWalletHandler(walletService)
	rateLimitHandler := handlers.NewRateLimitHandler(deps.Registry, v)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Redis, Version)

	app.Use(middleware.Metrics(deps.Metrics))

	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	auth := middleware.NewAuthMiddleware(cfg.JWTSecret, deps.Logger)

	// Registered before the /api group so it is not charged to the api policy.
	app.Post("/api/ratelimit/check", auth.Handler, rateLimitHandler.Check)

	api := app.Group("/api",
		middleware.RateLimit(deps.Registry, ratelimit.PolicyAPI, deps.Logger),
		auth.Handler,
	)

	walletGroup := api.Group("/wallet")
	walletGroup.Post("/transfer", transferHandler.Transfer)
	walletGroup.Get("/balance", walletHandler.GetBalance)

	api.Get("/transactions", walletHandler.ListTransactions)
}
