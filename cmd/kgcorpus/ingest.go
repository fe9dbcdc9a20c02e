package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/cheggaaa/pb"
	"github.com/urfave/cli/v3"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/source/csvedge"
	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/usecase"
)

func ingestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Import edges from a delimited dump (plain, gz, bz2, xz or zst)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Aliases:  []string{"s"},
				Usage:    "Path to the edge dump",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "tsv",
				Usage: "Read tab-separated rows instead of comma-separated",
			},
			&cli.BoolFlag{
				Name:  "skip-header",
				Usage: "Drop the first row",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar (costs one extra pass to count rows)",
				Value: true,
			},
		},
		Action: r.Ingest,
	}
}

// Ingest imports a dump into the selected backend.
func (r *Runner) Ingest(ctx context.Context, cmd *cli.Command) error {
	opts := csvedge.Options{SkipHeader: cmd.Bool("skip-header")}
	if cmd.Bool("tsv") {
		opts.Delimiter = '\t'
	}
	src, err := csvedge.New(cmd.String("source"), opts)
	if err != nil {
		return err
	}

	handle, err := r.openGraph(ctx, cmd)
	if err != nil {
		return err
	}
	defer handle.close()

	var source domain.EdgeSource = src
	if cmd.Bool("progress") && stderrIsTTY() {
		rows, err := src.Count(ctx)
		if err != nil {
			return err
		}
		bar := pb.New64(rows)
		bar.Output = os.Stderr
		bar.ShowTimeLeft = true
		bar.Start()
		defer bar.Finish()
		source = progressSource{inner: src, bar: bar}
	}

	r.logger.Info("ingest starting", slog.String("source", cmd.String("source")))
	stats, err := usecase.NewIngestService(r.logger).Ingest(ctx, source, handle.graph)
	if err != nil {
		return err
	}
	return r.writeJSON(stats)
}

// progressSource ticks the bar once per triple on its way through.
type progressSource struct {
	inner domain.EdgeSource
	bar   *pb.ProgressBar
}

func (s progressSource) Each(ctx domain.Context, fn func(domain.LabelTriple) error) error {
	return s.inner.Each(ctx, func(t domain.LabelTriple) error {
		s.bar.Increment()
		return fn(t)
	})
}
