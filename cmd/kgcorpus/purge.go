package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

func purgeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Drop the graph storage entirely",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the drop",
			},
		},
		Action: r.Purge,
	}
}

// Purge drops the graph tables after explicit confirmation.
func (r *Runner) Purge(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("op=cli.purge: %w: refusing to drop storage without --yes", domain.ErrInvalidArgument)
	}
	handle, err := r.openGraph(ctx, cmd)
	if err != nil {
		return err
	}
	defer handle.close()

	if err := handle.purge(ctx); err != nil {
		return err
	}
	r.logger.Info("graph storage purged")
	return nil
}
