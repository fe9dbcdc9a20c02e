package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/urfave/cli/v3"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/corpus/lz4bin"
	"github.com/fairyhunter13/kg-corpus/internal/usecase"
)

func decodeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "Render a binary corpus as label text, one sentence per line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Corpus path",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Text output path (.gz compresses; empty writes to stdout)",
			},
		},
		Action: r.Decode,
	}
}

// Decode renders a corpus back into labels through the graph index.
func (r *Runner) Decode(ctx context.Context, cmd *cli.Command) error {
	corpus, err := lz4bin.Open(cmd.String("input"))
	if err != nil {
		return err
	}
	defer corpus.Close()

	handle, err := r.openGraph(ctx, cmd)
	if err != nil {
		return err
	}
	defer handle.close()

	idx, err := handle.graph.Index(ctx)
	if err != nil {
		return err
	}
	defer idx.Close()

	out, cleanup, err := r.decodeSink(cmd.String("output"))
	if err != nil {
		return err
	}

	_, derr := usecase.DecodeService{}.Decode(ctx, corpus, out, idx)
	if cerr := cleanup(); derr == nil {
		derr = cerr
	}
	return derr
}

func (r *Runner) decodeSink(path string) (io.Writer, func() error, error) {
	if path == "" {
		return r.output, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("op=cli.decode: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, f.Close, nil
	}
	zw := gzip.NewWriter(f)
	cleanup := func() error {
		if err := zw.Close(); err != nil {
			_ = f.Close()
			return fmt.Errorf("op=cli.decode: %w", err)
		}
		return f.Close()
	}
	return zw, cleanup, nil
}
