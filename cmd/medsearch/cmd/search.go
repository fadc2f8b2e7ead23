package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/medlit/medsearch/internal/config"
	"github.com/medlit/medsearch/internal/index"
	"github.com/medlit/medsearch/internal/output"
	"github.com/medlit/medsearch/internal/search"
	"github.com/medlit/medsearch/internal/store"
	"github.com/medlit/medsearch/internal/structured"
	"github.com/medlit/medsearch/internal/telemetry"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	k int

	noVector     bool
	noLexical    bool
	noStructured bool

	vectorWeight     float64
	lexicalWeight    float64
	structuredWeight float64

	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed literature",
		Long: `Search the indexed literature with hybrid retrieval.

The query fans out to the vector, lexical, and structured backends
concurrently; per-backend scores are min-max normalized and combined
with weighted addition.

Examples:
  medsearch search "pneumothorax rate after valve placement"
  medsearch search "FEV1 improvement" -k 5 --no-structured
  medsearch search "adverse events" --vector-weight 0 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.k, "k", "k", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.noVector, "no-vector", false, "Disable the vector backend")
	cmd.Flags().BoolVar(&opts.noLexical, "no-lexical", false, "Disable the lexical backend")
	cmd.Flags().BoolVar(&opts.noStructured, "no-structured", false, "Disable the structured backend")
	cmd.Flags().Float64Var(&opts.vectorWeight, "vector-weight", -1, "Override the vector backend weight")
	cmd.Flags().Float64Var(&opts.lexicalWeight, "lexical-weight", -1, "Override the lexical backend weight")
	cmd.Flags().Float64Var(&opts.structuredWeight, "structured-weight", -1, "Override the structured backend weight")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	slog.Info("search_started", slog.String("query", query))

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	paths := index.ArtifactPaths(cfg.Index.Dir)
	dimensions, err := store.ReadHNSWStoreDimensions(paths.Vector)
	if err != nil || dimensions == 0 {
		return fmt.Errorf("no index found at %s, run 'medsearch index' first", cfg.Index.Dir)
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	if embedder.Dimensions() != dimensions {
		return fmt.Errorf("index was built with %d-dimensional embeddings but provider %q produces %d, rebuild the index",
			dimensions, cfg.Embeddings.Provider, embedder.Dimensions())
	}

	lexical, vector, catalog, err := index.Open(cfg.Index.Dir, dimensions)
	if err != nil {
		return err
	}
	defer func() {
		_ = lexical.Close()
		_ = vector.Close()
	}()

	var structuredStore search.StructuredStore
	if cfg.Structured.DatabasePath != "" {
		adapter, err := structured.Open(cfg.Structured.DatabasePath)
		if err != nil {
			slog.Warn("structured_store_unavailable",
				slog.String("path", cfg.Structured.DatabasePath),
				slog.String("error", err.Error()))
		} else {
			defer func() { _ = adapter.Close() }()
			structuredStore = adapter
		}
	}

	engine, err := search.NewEngine(lexical, vector, embedder, structuredStore, catalog,
		cfg.EngineConfig(), slog.Default())
	if err != nil {
		return err
	}

	searchOpts := buildOptions(cfg, opts, structuredStore != nil)
	start := time.Now()
	results, err := engine.Search(ctx, query, searchOpts)
	if err != nil {
		return err
	}
	latency := time.Since(start)

	slog.Info("search_complete",
		slog.Int("results", len(results)),
		slog.Duration("latency", latency))

	recordQueryMetrics(cfg, telemetry.QueryEvent{
		Query:       query,
		Intent:      structured.DetectIntent(query),
		ResultCount: len(results),
		Latency:     latency,
		Timestamp:   start,
	})

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	output.New(cmd.OutOrStdout()).Results(query, results)
	return nil
}

// metricsPath returns the local metrics database, stored next to the
// index artifacts.
func metricsPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.Index.Dir), "metrics.db")
}

// recordQueryMetrics persists one query event to the local metrics
// database. Failures are logged and otherwise ignored; metrics never
// break a search.
func recordQueryMetrics(cfg *config.Config, event telemetry.QueryEvent) {
	metricsStore, err := telemetry.OpenStore(metricsPath(cfg))
	if err != nil {
		slog.Debug("metrics_store_unavailable", slog.String("error", err.Error()))
		return
	}

	collector := telemetry.NewCollector(metricsStore, telemetry.Config{})
	collector.Record(event)
	if err := collector.Close(); err != nil {
		slog.Debug("metrics_flush_failed", slog.String("error", err.Error()))
	}
	_ = metricsStore.Close()
}

// buildOptions merges config defaults with CLI flag overrides.
func buildOptions(cfg *config.Config, opts searchOptions, haveStructured bool) search.Options {
	k := cfg.Search.K
	if opts.k > 0 {
		k = opts.k
	}

	weights := cfg.Weights()
	if opts.vectorWeight >= 0 {
		weights.Vector = opts.vectorWeight
	}
	if opts.lexicalWeight >= 0 {
		weights.Lexical = opts.lexicalWeight
	}
	if opts.structuredWeight >= 0 {
		weights.Structured = opts.structuredWeight
	}

	return search.Options{
		K:             k,
		UseVector:     !opts.noVector,
		UseLexical:    !opts.noLexical,
		UseStructured: !opts.noStructured && haveStructured,
		Weights:       &weights,
	}
}
