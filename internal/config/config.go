/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all the configuration variables for the service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseDriver         string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	ClerkJWKSURL           string `mapstructure:"CLERK_JWKS_URL"`
	ClerkIssuer            string `mapstructure:"CLERK_ISSUER"`
	ClerkAudience          string `mapstructure:"CLERK_AUDIENCE"`
	AdminIDsRaw            string `mapstructure:"ADMIN_IDS"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	EventsExchange         string `mapstructure:"EVENTS_EXCHANGE"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	CatalogCachePrefix     string `mapstructure:"CATALOG_CACHE_PREFIX"`
	CatalogCacheTTLSeconds int    `mapstructure:"CATALOG_CACHE_TTL_SECONDS"`
	CORSAllowedOriginsRaw  string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogFile                string `mapstructure:"LOG_FILE"`
	LogLevel               string `mapstructure:"LOG_LEVEL"`

	// AdminIDs is the parsed admin allow-list.
	AdminIDs []string `mapstructure:"-"`
	// CORSAllowedOrigins is the parsed origin list.
	CORSAllowedOrigins []string `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DATABASE_DRIVER", DriverPostgres)
	viper.SetDefault("EVENTS_EXCHANGE", "ineza.events")
	viper.SetDefault("CATALOG_CACHE_PREFIX", "ineza:catalog")
	viper.SetDefault("CATALOG_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "https://*,http://*")
	viper.SetDefault("LOG_LEVEL", "info")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_DRIVER")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("CLERK_JWKS_URL")
	_ = viper.BindEnv("CLERK_ISSUER")
	_ = viper.BindEnv("CLERK_AUDIENCE")
	_ = viper.BindEnv("ADMIN_IDS")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("CATALOG_CACHE_PREFIX")
	_ = viper.BindEnv("CATALOG_CACHE_TTL_SECONDS")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("LOG_FILE")
	_ = viper.BindEnv("LOG_LEVEL")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.DatabaseDriver = strings.ToLower(strings.TrimSpace(config.DatabaseDriver))
	if config.DatabaseDriver != DriverPostgres && config.DatabaseDriver != DriverSQLite {
		return config, errors.New("DATABASE_DRIVER must be postgres or sqlite")
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	if config.DatabaseURL == "" {
		return config, errors.New("DATABASE_URL environment variable is not set")
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.CatalogCachePrefix = strings.TrimSpace(config.CatalogCachePrefix)
	if config.CatalogCachePrefix == "" {
		config.CatalogCachePrefix = "ineza:catalog"
	}
	if config.CatalogCacheTTLSeconds <= 0 {
		config.CatalogCacheTTLSeconds = 300
	}
	config.EventsExchange = strings.TrimSpace(config.EventsExchange)
	if config.EventsExchange == "" {
		config.EventsExchange = "ineza.events"
	}

	config.AdminIDs = splitList(config.AdminIDsRaw)
	if len(config.AdminIDs) == 0 {
		log.Printf("level=warn component=config msg=\"ADMIN_IDS is empty; no caller will be treated as admin\"")
	}
	config.CORSAllowedOrigins = splitList(config.CORSAllowedOriginsRaw)

	return
}

// splitList parses a comma-separated value, trimming entries and dropping empties.
func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
