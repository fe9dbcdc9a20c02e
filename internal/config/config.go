// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment
// variables. The POSTGRES_* block is the external interface contract shared
// with the CI service container; everything tool-specific sits behind the
// KGC_ prefix.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"postgres"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`

	// MetricsAddr enables the Prometheus listener when non-empty,
	// e.g. ":9090".
	MetricsAddr     string `env:"KGC_METRICS_ADDR" envDefault:""`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"kg-corpus"`

	ImportBatchSize int `env:"KGC_IMPORT_BATCH_SIZE" envDefault:"5000"`
	// WalkWorkers is the walker pool size; 0 means one per CPU.
	WalkWorkers int `env:"KGC_WALK_WORKERS" envDefault:"0"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// DSN assembles the pgx connection URL from the POSTGRES_* parts.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     c.PostgresHost + ":" + strconv.Itoa(c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// EffectiveWalkWorkers resolves the walker pool size.
func (c Config) EffectiveWalkWorkers() int {
	if c.WalkWorkers > 0 {
		return c.WalkWorkers
	}
	return runtime.NumCPU()
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }
