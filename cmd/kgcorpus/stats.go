package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/fairyhunter13/kg-corpus/internal/usecase"
)

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Print node, property and edge counts as JSON",
		Action: r.Stats,
	}
}

// Stats prints graph-level counts.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	handle, err := r.openGraph(ctx, cmd)
	if err != nil {
		return err
	}
	defer handle.close()

	stats, err := usecase.NewStatsService(handle.graph).Stats(ctx)
	if err != nil {
		return err
	}
	return r.writeJSON(stats)
}
