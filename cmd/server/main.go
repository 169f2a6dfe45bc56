/**
 * @description
 * This is the main entry point for the marketplace API.
 * It initializes and wires together all the components of the application,
 * including configuration, logging, the database repository, the catalog cache,
 * the event producer, the service, and the HTTP router.
 * Finally, it starts the HTTP server and shuts it down gracefully on SIGINT/SIGTERM.
 *
 * @dependencies
 * - github.com/joho/godotenv: Loads a local .env file for development.
 * - pkg/catalogcache: Redis-backed catalog read cache.
 * - pkg/rabbitmq: Publishes catalog and request lifecycle events.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/elllyers/ineza/internal/api"
	"github.com/elllyers/ineza/internal/app"
	"github.com/elllyers/ineza/internal/config"
	"github.com/elllyers/ineza/internal/logging"
	"github.com/elllyers/ineza/internal/store"
	"github.com/elllyers/ineza/pkg/catalogcache"
	"github.com/elllyers/ineza/pkg/rabbitmq"
)

func main() {
	// Load .env when present; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repository, closeStore, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to open database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("database connection established", "driver", cfg.DatabaseDriver)

	cache, closeCache := newCatalogCache(ctx, cfg, logger)
	defer closeCache()

	var publisher app.EventPublisher = &rabbitmq.EventProducerFallback{Logger: logger}
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		logger.Warn("rabbitmq url missing; events will be logged and dropped", "env", "RABBITMQ_URL")
	} else if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange, logger); err != nil {
		logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
	} else {
		defer producer.Close()
		publisher = producer
		logger.Info("rabbitmq producer connected", "exchange", cfg.EventsExchange)
	}

	// Initialize application layers
	service := app.NewService(repository, cache, publisher, logger)
	handler := api.NewHandler(service, logger)
	verifier := api.NewClerkVerifier(cfg.ClerkJWKSURL, cfg.ClerkIssuer, cfg.ClerkAudience)
	auth := api.NewAuthenticator(verifier, app.NewAdminList(cfg.AdminIDs), logger)
	router := api.NewRouter(handler, auth, api.NewMetrics(), cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.ServerPort, "admins", len(cfg.AdminIDs))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, gracefully shutting down")
	case err := <-serverErr:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

// newCatalogCache connects to Redis when configured. Any failure falls back to
// an uncached catalog.
func newCatalogCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (app.CatalogCache, func()) {
	if cfg.RedisURL == "" {
		logger.Warn("redis url missing; catalog cache disabled", "env", "REDIS_URL")
		return catalogcache.Noop{}, func() {}
	}
	ttl := time.Duration(cfg.CatalogCacheTTLSeconds) * time.Second
	cache, closeCache, err := catalogcache.Connect(ctx, cfg.RedisURL, cfg.CatalogCachePrefix, ttl)
	if err != nil {
		logger.Warn("catalog cache disabled", "error", err)
		return catalogcache.Noop{}, func() {}
	}
	logger.Info("redis connected", "prefix", cfg.CatalogCachePrefix, "ttl_seconds", cfg.CatalogCacheTTLSeconds)
	return cache, closeCache
}
