package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/graph/postgres"
	"github.com/fairyhunter13/kg-corpus/internal/adapter/graph/sqlite"
	"github.com/fairyhunter13/kg-corpus/internal/config"
	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Runner holds the dependencies of the CLI commands.
type Runner struct {
	cfg    config.Config
	logger *slog.Logger
	output io.Writer
}

// NewRunner creates a Runner.
func NewRunner(cfg config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger, output: os.Stdout}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		ingestCommand, walkCommand, statsCommand, decodeCommand, purgeCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// graphHandle bundles an open backend with its housekeeping hooks.
type graphHandle struct {
	graph domain.EmbeddedGraph
	purge func(domain.Context) error
	close func()
}

// openGraph opens the backend selected by the global flags. PostgreSQL
// connects with backoff so a run racing a starting database does not fall
// over; SQLite just opens the file.
func (r *Runner) openGraph(ctx domain.Context, cmd *cli.Command) (*graphHandle, error) {
	switch backend := cmd.String("backend"); backend {
	case "sqlite":
		g, err := sqlite.Open(cmd.String("db"))
		if err != nil {
			return nil, err
		}
		g.BatchSize = r.cfg.ImportBatchSize
		return &graphHandle{
			graph: g,
			purge: g.Purge,
			close: func() { _ = g.Close() },
		}, nil
	case "postgres":
		pool, err := postgres.Connect(ctx, r.cfg.DSN())
		if err != nil {
			return nil, err
		}
		g := postgres.NewGraph(pool)
		g.BatchSize = r.cfg.ImportBatchSize
		return &graphHandle{
			graph: g,
			purge: postgres.NewMaintenance(pool).Purge,
			close: pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("op=cli.backend: %w: unknown backend %q", domain.ErrInvalidArgument, backend)
	}
}

func (r *Runner) writeJSON(data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("op=cli.output: %w", err)
	}
	if _, err := fmt.Fprintln(r.output, string(out)); err != nil {
		return fmt.Errorf("op=cli.output: %w", err)
	}
	return nil
}

// stderrIsTTY reports whether progress decorations would land on a
// terminal rather than in a log file.
func stderrIsTTY() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
