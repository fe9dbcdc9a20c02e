package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/observability"
	"github.com/fairyhunter13/kg-corpus/internal/walk"
)

// GenerateSpec describes one corpus generation run.
type GenerateSpec struct {
	WalksPerNode int    `json:"walks_per_node" validate:"required,min=1"`
	Depth        int    `json:"depth" validate:"required,min=1"`
	Strategy     string `json:"strategy" validate:"required,oneof=uniform weighted"`
	Seed         int64  `json:"seed"`
	// Workers is the walker pool size; 0 means one per CPU.
	Workers int    `json:"workers" validate:"min=0"`
	Output  string `json:"output" validate:"required"`
}

// GenerateStats reports the outcome of one generation run.
type GenerateStats struct {
	Nodes     int64         `json:"nodes"`
	Sentences int64         `json:"sentences"`
	Words     int64         `json:"words"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Manifest is the sidecar record written next to a finished corpus. The
// checksum pins the corpus the manifest talks about; the spec and seed make
// the run reproducible.
type Manifest struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Spec         GenerateSpec  `json:"spec"`
	Stats        GenerateStats `json:"stats"`
	CorpusSHA256 string        `json:"corpus_sha256"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// GenerateService samples walks over a graph and writes them as a corpus.
type GenerateService struct {
	Graph domain.Graph
	// NewWriter opens the corpus sink for an output path.
	NewWriter func(path string) (domain.SentenceWriter, error)
	Logger    *slog.Logger
}

// NewGenerateService constructs a GenerateService with its dependencies.
func NewGenerateService(g domain.Graph, newWriter func(string) (domain.SentenceWriter, error), logger *slog.Logger) GenerateService {
	return GenerateService{Graph: g, NewWriter: newWriter, Logger: logger}
}

// Generate runs the walk pipeline: one goroutine streams node IDs, a pool of
// walkers samples sentences, one writer owns the corpus sink. Each start
// node gets its own RNG derived from the seed, so the corpus content does
// not depend on goroutine scheduling. The first error cancels everything.
func (s GenerateService) Generate(ctx domain.Context, spec GenerateSpec) (GenerateStats, error) {
	var stats GenerateStats
	if err := getValidator().Struct(spec); err != nil {
		return stats, fmt.Errorf("op=usecase.generate: %w: %v", domain.ErrInvalidArgument, err)
	}
	strat, err := walk.ForName(spec.Strategy)
	if err != nil {
		return stats, err
	}
	eng, err := s.Graph.QueryEngine(ctx)
	if err != nil {
		return stats, err
	}
	defer func() { _ = eng.Close() }()

	w, err := s.NewWriter(spec.Output)
	if err != nil {
		return stats, err
	}

	workers := spec.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	started := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan domain.NodeID, workers)
	sentences := make(chan domain.Sentence, workers*4)
	errc := make(chan error, 1)
	fail := func(err error) {
		select {
		case errc <- err:
		default:
		}
		cancel()
	}

	var (
		nodes atomic.Int64
		wg    sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		err := eng.NodeIDs(ctx, func(id domain.NodeID) error {
			nodes.Add(1)
			select {
			case jobs <- id:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			fail(err)
		}
	}()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range jobs {
				// Derived per-node RNG: reproducible no matter which
				// worker picks the node up.
				rng := rand.New(rand.NewPCG(uint64(spec.Seed)^uint64(node), uint64(spec.Seed)))
				for k := 0; k < spec.WalksPerNode; k++ {
					begin := time.Now()
					sentence, err := walk.Walk(ctx, eng, strat, node, spec.Depth, rng)
					if err != nil {
						if !errors.Is(err, context.Canceled) {
							fail(err)
						}
						return
					}
					observability.WalksTotal.Inc()
					observability.WalkDuration.Observe(time.Since(begin).Seconds())
					select {
					case sentences <- sentence:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(sentences)
	}()

	// This goroutine is the single owner of the corpus writer.
	var werr error
	for sentence := range sentences {
		if werr != nil {
			continue // drain so the pool can shut down
		}
		if err := w.Write(sentence); err != nil {
			werr = err
			cancel()
			continue
		}
		stats.Sentences++
		stats.Words += int64(len(sentence))
		observability.SentencesTotal.Inc()
	}
	if cerr := w.Close(); cerr != nil && werr == nil {
		werr = cerr
	}

	stats.Nodes = nodes.Load()
	stats.Elapsed = time.Since(started)

	if werr != nil {
		return stats, fmt.Errorf("op=usecase.generate: %w", werr)
	}
	select {
	case err := <-errc:
		return stats, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	if err := s.writeManifest(spec, stats, started); err != nil {
		return stats, err
	}
	s.Logger.Info("corpus generated",
		slog.String("output", spec.Output),
		slog.Int64("nodes", stats.Nodes),
		slog.Int64("sentences", stats.Sentences),
		slog.Int64("words", stats.Words),
		slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

func (s GenerateService) writeManifest(spec GenerateSpec, stats GenerateStats, started time.Time) error {
	sum, err := fileSHA256(spec.Output)
	if err != nil {
		return fmt.Errorf("op=usecase.manifest: %w", err)
	}
	m := Manifest{
		RunID:        uuid.NewString(),
		StartedAt:    started.UTC(),
		FinishedAt:   time.Now().UTC(),
		Spec:         spec,
		Stats:        stats,
		CorpusSHA256: sum,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("op=usecase.manifest: %w", err)
	}
	if err := os.WriteFile(spec.Output+".manifest.json", data, 0o644); err != nil {
		return fmt.Errorf("op=usecase.manifest: %w", err)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
