package usecase_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/kg-corpus/internal/adapter/corpus/lz4bin"
	"github.com/fairyhunter13/kg-corpus/internal/adapter/graph/sqlite"
	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/graphtest"
	"github.com/fairyhunter13/kg-corpus/internal/usecase"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fixtureGraph(t *testing.T) *sqlite.Graph {
	t.Helper()
	g, err := sqlite.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	_, err = g.ImportEdges(context.Background(), graphtest.Triples)
	require.NoError(t, err)
	return g
}

func corpusWriter(path string) (domain.SentenceWriter, error) {
	return lz4bin.Create(path)
}

func readCorpus(t *testing.T, path string) []domain.Sentence {
	t.Helper()
	r, err := lz4bin.Open(path)
	require.NoError(t, err)
	defer r.Close()
	var out []domain.Sentence
	for {
		s, err := r.Read()
		if err != nil {
			return out
		}
		out = append(out, s)
	}
}

func TestGenerate_Pipeline(t *testing.T) {
	ctx := context.Background()
	g := fixtureGraph(t)
	out := filepath.Join(t.TempDir(), "corpus.lz4")

	svc := usecase.NewGenerateService(g, corpusWriter, discard())
	spec := usecase.GenerateSpec{
		WalksPerNode: 2,
		Depth:        3,
		Strategy:     "uniform",
		Seed:         42,
		Workers:      4,
		Output:       out,
	}
	stats, err := svc.Generate(ctx, spec)
	require.NoError(t, err)

	nodeCount := int64(len(graphtest.NodeLabels()))
	assert.Equal(t, nodeCount, stats.Nodes)
	assert.Equal(t, nodeCount*2, stats.Sentences)
	assert.Positive(t, stats.Words)

	sentences := readCorpus(t, out)
	require.Len(t, sentences, int(stats.Sentences))
	var words int64
	for _, s := range sentences {
		assert.LessOrEqual(t, len(s), 2*spec.Depth+1)
		assert.Equal(t, 1, len(s)%2)
		words += int64(len(s))
	}
	assert.Equal(t, stats.Words, words)
}

func TestGenerate_Reproducible(t *testing.T) {
	ctx := context.Background()
	g := fixtureGraph(t)
	dir := t.TempDir()

	run := func(out string, workers int) []domain.Sentence {
		svc := usecase.NewGenerateService(g, corpusWriter, discard())
		_, err := svc.Generate(ctx, usecase.GenerateSpec{
			WalksPerNode: 3,
			Depth:        4,
			Strategy:     "weighted",
			Seed:         7,
			Workers:      workers,
			Output:       out,
		})
		require.NoError(t, err)
		return readCorpus(t, out)
	}

	// Different worker counts must not change the corpus content.
	a := run(filepath.Join(dir, "a.lz4"), 1)
	b := run(filepath.Join(dir, "b.lz4"), 8)
	assert.ElementsMatch(t, a, b)
}

func TestGenerate_Manifest(t *testing.T) {
	ctx := context.Background()
	g := fixtureGraph(t)
	out := filepath.Join(t.TempDir(), "corpus.lz4")

	svc := usecase.NewGenerateService(g, corpusWriter, discard())
	spec := usecase.GenerateSpec{
		WalksPerNode: 1,
		Depth:        2,
		Strategy:     "uniform",
		Seed:         1,
		Workers:      2,
		Output:       out,
	}
	stats, err := svc.Generate(ctx, spec)
	require.NoError(t, err)

	raw, err := os.ReadFile(out + ".manifest.json")
	require.NoError(t, err)
	var m usecase.Manifest
	require.NoError(t, json.Unmarshal(raw, &m))

	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, spec, m.Spec)
	assert.Equal(t, stats.Sentences, m.Stats.Sentences)
	assert.False(t, m.FinishedAt.Before(m.StartedAt))

	corpus, err := os.ReadFile(out)
	require.NoError(t, err)
	sum := sha256.Sum256(corpus)
	assert.Equal(t, hex.EncodeToString(sum[:]), m.CorpusSHA256)
}

func TestGenerate_SpecValidation(t *testing.T) {
	g := fixtureGraph(t)
	svc := usecase.NewGenerateService(g, corpusWriter, discard())

	bad := []usecase.GenerateSpec{
		{},
		{WalksPerNode: 1, Depth: 1, Strategy: "teleport", Output: "x.lz4"},
		{WalksPerNode: 0, Depth: 1, Strategy: "uniform", Output: "x.lz4"},
		{WalksPerNode: 1, Depth: 0, Strategy: "uniform", Output: "x.lz4"},
		{WalksPerNode: 1, Depth: 1, Strategy: "uniform", Output: ""},
	}
	for _, spec := range bad {
		_, err := svc.Generate(context.Background(), spec)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, "spec %+v", spec)
	}
}

func TestGenerate_WriterErrorCancelsPipeline(t *testing.T) {
	g := fixtureGraph(t)
	out := filepath.Join(t.TempDir(), "corpus.lz4")

	boom := errors.New("disk full")
	svc := usecase.NewGenerateService(g, func(path string) (domain.SentenceWriter, error) {
		return failingWriter{err: boom}, nil
	}, discard())

	_, err := svc.Generate(context.Background(), usecase.GenerateSpec{
		WalksPerNode: 2,
		Depth:        2,
		Strategy:     "uniform",
		Workers:      2,
		Output:       out,
	})
	assert.ErrorIs(t, err, boom)
}

type failingWriter struct{ err error }

func (w failingWriter) Write(domain.Sentence) error { return w.err }
func (w failingWriter) Close() error                { return nil }
