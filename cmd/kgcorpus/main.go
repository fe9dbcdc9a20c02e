// Package main provides the kgcorpus command line tool: it ingests
// knowledge-graph dumps into graph storage and generates walk corpora for
// embedding training from them.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/fairyhunter13/kg-corpus/internal/config"
	"github.com/fairyhunter13/kg-corpus/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()
	observability.ServeMetrics(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	app := newApp(NewRunner(cfg, logger))
	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:  "kgcorpus",
		Usage: "Generate walk corpora for graph embeddings from large knowledge graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Graph storage backend (postgres or sqlite)",
				Value: "postgres",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file path for the sqlite backend",
				Value: "kgcorpus.db",
			},
		},
		Commands: runner.register(),
	}
}
