package observability

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportedRowsTotal counts triples read from edge sources.
	ImportedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kgc_imported_rows_total",
			Help: "Total number of triples read from edge sources",
		},
	)
	// ImportedEdgesTotal counts statements newly created in graph storage.
	ImportedEdgesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kgc_imported_edges_total",
			Help: "Total number of statements newly created in graph storage",
		},
	)
	// WalksTotal counts walks sampled, including dead-end walks.
	WalksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kgc_walks_total",
			Help: "Total number of walks sampled",
		},
	)
	// SentencesTotal counts sentences written to a corpus.
	SentencesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kgc_sentences_total",
			Help: "Total number of sentences written to corpora",
		},
	)
	// WalkDuration observes the time one walk takes end to end.
	WalkDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kgc_walk_duration_seconds",
			Help:    "Walk sampling duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
	// GraphQueriesTotal counts graph storage operations by name.
	GraphQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kgc_graph_queries_total",
			Help: "Total number of graph storage operations",
		},
		[]string{"op"},
	)
)

// InitMetrics registers all collectors with the default registry. Call once
// per process.
func InitMetrics() {
	prometheus.MustRegister(
		ImportedRowsTotal,
		ImportedEdgesTotal,
		WalksTotal,
		SentencesTotal,
		WalkDuration,
		GraphQueriesTotal,
	)
}

// ServeMetrics exposes /metrics on addr in a background goroutine. An empty
// addr disables the listener.
func ServeMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", slog.Any("error", err))
		}
	}()
}
