package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/corpus/lz4bin"
	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/usecase"
)

func walkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "walk",
		Usage: "Sample random walks over the graph into a binary corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Corpus output path",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "walks",
				Usage: "Walks per start node",
				Value: 10,
			},
			&cli.IntFlag{
				Name:  "depth",
				Usage: "Maximum hops per walk",
				Value: 4,
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Sampling strategy (uniform or weighted)",
				Value: "uniform",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "RNG seed; the same seed reproduces the same corpus",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Walker pool size (0 = one per CPU)",
			},
		},
		Action: r.Walk,
	}
}

// Walk generates a corpus from the selected backend.
func (r *Runner) Walk(ctx context.Context, cmd *cli.Command) error {
	handle, err := r.openGraph(ctx, cmd)
	if err != nil {
		return err
	}
	defer handle.close()

	workers := int(cmd.Int("workers"))
	if workers == 0 {
		workers = r.cfg.EffectiveWalkWorkers()
	}
	spec := usecase.GenerateSpec{
		WalksPerNode: int(cmd.Int("walks")),
		Depth:        int(cmd.Int("depth")),
		Strategy:     cmd.String("strategy"),
		Seed:         int64(cmd.Int("seed")),
		Workers:      workers,
		Output:       cmd.String("output"),
	}

	newWriter := func(path string) (domain.SentenceWriter, error) {
		return lz4bin.Create(path)
	}
	stats, err := usecase.NewGenerateService(handle.graph, newWriter, r.logger).Generate(ctx, spec)
	if err != nil {
		return err
	}
	return r.writeJSON(stats)
}
