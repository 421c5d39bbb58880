package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

type Config struct {
	Port        string `validate:"required,numeric"`
	Environment string `validate:"required,oneof=development test staging production"`
	LogLevel    slog.Level

	Database     DatabaseConfig
	Repositories RepositoriesConfig
	Events       EventsConfig
}

type DatabaseConfig struct {
	Driver          string `validate:"required,oneof=postgres sqlite"`
	URL             string `validate:"required"`
	MaxOpenConns    int    `validate:"min=1"`
	MaxIdleConns    int    `validate:"min=0"`
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
	AutoMigrate     bool
}

type RepositoriesConfig struct {
	// ProviderToken names the registry entry repositories take their units of work
	// from. Empty means the default lookup.
	ProviderToken        string
	ItemsCommitOnRelease bool
}

type EventsConfig struct {
	KafkaBrokers []string
	Topic        string `validate:"required"`
}

// LoadConfig reads an optional .env file, then the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			URL:             getEnv("DATABASE_URL", "generic-repository.db?_busy_timeout=5000"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			SlowThreshold:   getEnvDuration("DB_SLOW_THRESHOLD", time.Second),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Repositories: RepositoriesConfig{
			ProviderToken:        getEnv("REPOSITORY_PROVIDER_TOKEN", ""),
			ItemsCommitOnRelease: getEnvBool("ITEMS_COMMIT_ON_RELEASE", true),
		},
		Events: EventsConfig{
			KafkaBrokers: getEnvList("KAFKA_BROKERS"),
			Topic:        getEnv("EVENTS_TOPIC", "repository-events"),
		},
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if errs := validator.New().Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errs)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
