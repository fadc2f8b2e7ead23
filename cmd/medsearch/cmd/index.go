package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medlit/medsearch/internal/config"
	"github.com/medlit/medsearch/internal/index"
	"github.com/medlit/medsearch/internal/output"
	"github.com/medlit/medsearch/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		plainOutput bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "index <documents-dir>",
		Short: "Build the retrieval index from document extractions",
		Long: `Build the retrieval index from a directory of document extractions.

The directory holds JSON/JSONL files, one record per document:

  {"document_id": "NCT02203877", "text": "...", "source": "trial"}

Each document is chunked with a sliding token window, embedded, and
written into the BM25 index, the vector index, and the chunk catalog.
Rebuilds are full; use --force to clear an existing index first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runIndex(ctx, cmd, args[0], plainOutput, force)
		},
	}

	cmd.Flags().BoolVar(&plainOutput, "plain", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&force, "force", false, "Clear existing index artifacts before building")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, docsDir string, plainOutput, force bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	if force {
		if err := clearIndexArtifacts(cfg.Index.Dir); err != nil {
			return fmt.Errorf("failed to clear index artifacts: %w", err)
		}
		out.Status("", "Cleared existing index artifacts")
		slog.Info("index_force_clear", slog.String("dir", cfg.Index.Dir))
	}
	if err := os.MkdirAll(cfg.Index.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	renderer := ui.NewRenderer(ui.Config{
		Output:     cmd.OutOrStdout(),
		ForcePlain: plainOutput,
		NoColor:    ui.DetectNoColor(),
	})
	if err := renderer.Start(ctx); err != nil {
		renderer = ui.NewPlainRenderer(ui.Config{Output: cmd.OutOrStdout()})
	}
	defer func() { _ = renderer.Stop() }()

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageLoading, Message: "loading document extractions"})
	docs, err := index.LoadDocuments(docsDir, slog.Default())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		out.Warningf("No documents found in %s", docsDir)
	}

	builder := index.NewBuilder(embedder, index.Config{
		Dir:            cfg.Index.Dir,
		ChunkOptions:   cfg.ChunkOptions(),
		EmbedBatchSize: cfg.Embeddings.BatchSize,
		Progress:       renderer,
	}, slog.Default())

	stats, err := builder.Build(ctx, docs)
	if err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		return err
	}

	renderer.Complete(ui.CompletionStats{
		Documents: stats.Documents,
		Chunks:    stats.Chunks,
		Duration:  stats.Elapsed,
		Stages:    stats.Timings,
		Embedder: ui.EmbedderInfo{
			Provider:   cfg.Embeddings.Provider,
			Model:      embedder.ModelName(),
			Dimensions: embedder.Dimensions(),
		},
	})

	return nil
}

// clearIndexArtifacts removes the known artifact paths, leaving any
// unrelated files in the directory alone.
func clearIndexArtifacts(dir string) error {
	paths := index.ArtifactPaths(dir)
	for _, p := range []string{paths.Lexical, paths.Vector, paths.Vector + ".meta", paths.Catalog} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}
