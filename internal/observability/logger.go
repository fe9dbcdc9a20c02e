// Package observability provides logging, metrics and tracing setup.
package observability

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fairyhunter13/kg-corpus/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields. Dev
// always logs at debug; elsewhere LOG_LEVEL decides.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
