// Command seed creates catalog services from a YAML file. Services whose type
// and title already exist are skipped, so the command can be re-run safely.
//
//	go run ./cmd/seed -file cmd/seed/catalog.example.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/elllyers/ineza/internal/app"
	"github.com/elllyers/ineza/internal/config"
	"github.com/elllyers/ineza/internal/logging"
	"github.com/elllyers/ineza/internal/seed"
	"github.com/elllyers/ineza/internal/store"
	"github.com/elllyers/ineza/pkg/catalogcache"
	"github.com/elllyers/ineza/pkg/rabbitmq"
)

func main() {
	file := flag.String("file", "catalog.yaml", "path to the YAML catalog file")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger, logCloser := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()

	if err := run(*file, cfg, logger); err != nil {
		logger.Error("seeding failed", "file", *file, "error", err)
		os.Exit(1)
	}
}

func run(path string, cfg config.Config, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	catalog, err := seed.Parse(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repository, closeStore, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	var cache app.CatalogCache = catalogcache.Noop{}
	if cfg.RedisURL != "" {
		ttl := time.Duration(cfg.CatalogCacheTTLSeconds) * time.Second
		redisCache, closeCache, err := catalogcache.Connect(ctx, cfg.RedisURL, cfg.CatalogCachePrefix, ttl)
		if err != nil {
			logger.Warn("catalog cache unavailable; running servers may serve stale listings until the TTL expires", "error", err)
		} else {
			defer closeCache()
			cache = redisCache
		}
	}

	var publisher app.EventPublisher = &rabbitmq.EventProducerFallback{Logger: logger}
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange, logger)
		if err != nil {
			logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
		} else {
			defer producer.Close()
			publisher = producer
		}
	}

	service := app.NewService(repository, cache, publisher, logger)
	result, err := seed.Run(ctx, service, catalog, logger)
	if err != nil {
		return err
	}
	logger.Info("seeding complete", "created", result.Created, "skipped", result.Skipped)
	return nil
}
