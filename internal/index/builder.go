// Package index builds and loads the persisted retrieval artifacts:
// the lexical BM25 index, the vector index with its side table, and
// the JSONL chunk catalog.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medlit/medsearch/internal/chunk"
	"github.com/medlit/medsearch/internal/embed"
	mederrors "github.com/medlit/medsearch/internal/errors"
	"github.com/medlit/medsearch/internal/store"
	"github.com/medlit/medsearch/internal/ui"
)

// Artifact file names inside the index directory.
const (
	LexicalDirName  = "lexical.bleve"
	VectorFileName  = "vectors.hnsw"
	CatalogFileName = "chunks.jsonl"
)

// Paths locates the artifacts inside an index directory.
type Paths struct {
	Lexical string
	Vector  string
	Catalog string
}

// ArtifactPaths returns the artifact locations for an index directory.
func ArtifactPaths(dir string) Paths {
	return Paths{
		Lexical: filepath.Join(dir, LexicalDirName),
		Vector:  filepath.Join(dir, VectorFileName),
		Catalog: filepath.Join(dir, CatalogFileName),
	}
}

// Config configures an index build.
type Config struct {
	// Dir is the index artifact directory.
	Dir string

	// ChunkOptions controls the sliding window.
	ChunkOptions chunk.Options

	// EmbedBatchSize is the number of chunk texts per embedding call.
	EmbedBatchSize int

	// Parallelism bounds concurrent document chunking.
	// Defaults to the CPU count.
	Parallelism int

	// Progress receives build progress events. Nil means no display.
	Progress ui.Renderer
}

// Stats summarizes a completed build.
type Stats struct {
	Documents int
	Chunks    int
	Elapsed   time.Duration
	Timings   ui.StageTimings
}

// Builder runs the offline single-pass index build.
type Builder struct {
	embedder embed.Embedder
	config   Config
	logger   *slog.Logger
}

// NewBuilder creates a builder.
func NewBuilder(embedder embed.Embedder, config Config, logger *slog.Logger) *Builder {
	if config.EmbedBatchSize <= 0 {
		config.EmbedBatchSize = embed.DefaultBatchSize
	}
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.NumCPU()
	}
	if config.Progress == nil {
		config.Progress = ui.NopRenderer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{embedder: embedder, config: config, logger: logger}
}

// Build chunks the documents, embeds every chunk, and writes all three
// artifacts. Chunking is parallelized across documents; chunk IDs are
// purely a function of document ID and token offset, so the output is
// deterministic regardless of scheduling.
func (b *Builder) Build(ctx context.Context, docs []chunk.Document) (*Stats, error) {
	start := time.Now()

	lock := NewBuildLock(b.config.Dir)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			b.logger.Warn("build_lock_release_failed", slog.String("error", err.Error()))
		}
	}()

	var timings ui.StageTimings

	chunkStart := time.Now()
	chunks, err := b.chunkDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}
	timings.Chunk = time.Since(chunkStart)
	b.logger.Info("chunking_complete",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)))

	embedStart := time.Now()
	vectors, err := b.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	timings.Embed = time.Since(embedStart)

	indexStart := time.Now()
	if err := b.writeArtifacts(ctx, chunks, vectors); err != nil {
		return nil, err
	}
	timings.Index = time.Since(indexStart)

	stats := &Stats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Elapsed:   time.Since(start),
		Timings:   timings,
	}
	b.logger.Info("build_complete",
		slog.Int("documents", stats.Documents),
		slog.Int("chunks", stats.Chunks),
		slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// chunkDocuments windows every document, in parallel, preserving
// document order in the flattened output.
func (b *Builder) chunkDocuments(ctx context.Context, docs []chunk.Document) ([]*chunk.Chunk, error) {
	chunker := chunk.New(b.config.ChunkOptions)
	perDoc := make([][]*chunk.Chunk, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Parallelism)

	var done atomic.Int64
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perDoc[i] = chunker.Chunk(&docs[i])
			perDoc[i] = append(perDoc[i], b.recordChunks(chunker, &docs[i])...)
			b.config.Progress.UpdateProgress(ui.ProgressEvent{
				Stage:      ui.StageChunking,
				Current:    int(done.Add(1)),
				Total:      len(docs),
				CurrentDoc: docs[i].ID,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("chunking failed: %w", err)
	}

	var chunks []*chunk.Chunk
	for _, dc := range perDoc {
		chunks = append(chunks, dc...)
	}
	return chunks, nil
}

// recordChunks emits one atomic chunk per tabulated adverse-event row,
// with ids "{document_id}#ae{idx}". These bypass the sliding window so
// an incidence figure never lands on a chunk boundary.
func (b *Builder) recordChunks(chunker *chunk.Chunker, doc *chunk.Document) []*chunk.Chunk {
	if len(doc.AdverseEvents) == 0 {
		return nil
	}

	aeDoc := *doc
	aeDoc.SectionPath = []string{"adverse_events"}
	aeDoc.Pages = nil

	chunks := make([]*chunk.Chunk, 0, len(doc.AdverseEvents))
	for idx, event := range doc.AdverseEvents {
		ck, err := chunker.Record(&aeDoc, "ae"+strconv.Itoa(idx), event.Sentence())
		if err != nil {
			b.logger.Warn("adverse_event_chunk_skipped",
				slog.String("document_id", doc.ID),
				slog.Int("row", idx),
				slog.String("error", err.Error()))
			continue
		}
		chunks = append(chunks, ck)
	}
	return chunks
}

// embedChunks obtains embeddings for every chunk in batches.
// Embedding failure aborts the build; a vector index missing half its
// corpus is worse than no index.
func (b *Builder) embedChunks(ctx context.Context, chunks []*chunk.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors := make([][]float32, 0, len(chunks))
	for batchStart := 0; batchStart < len(texts); batchStart += b.config.EmbedBatchSize {
		batchEnd := batchStart + b.config.EmbedBatchSize
		if batchEnd > len(texts) {
			batchEnd = len(texts)
		}

		batch, err := b.embedder.EmbedBatch(ctx, texts[batchStart:batchEnd])
		if err != nil {
			return nil, mederrors.BackendUnavailable(mederrors.ErrCodeEmbedUnavailable,
				fmt.Sprintf("embedding failed at chunk %d of %d", batchStart, len(texts)), err)
		}
		vectors = append(vectors, batch...)
		b.config.Progress.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageEmbedding,
			Current: batchEnd,
			Total:   len(texts),
		})
	}
	return vectors, nil
}

// writeArtifacts populates both indexes and persists everything.
func (b *Builder) writeArtifacts(ctx context.Context, chunks []*chunk.Chunk, vectors [][]float32) error {
	paths := ArtifactPaths(b.config.Dir)
	b.config.Progress.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageIndexing,
		Message: "writing index artifacts",
	})

	lexical, err := store.NewBleveBM25Index(paths.Lexical, store.DefaultBM25Config())
	if err != nil {
		return mederrors.New(mederrors.ErrCodeIndexWrite, "failed to create lexical index", err)
	}
	defer func() { _ = lexical.Close() }()

	vector, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(b.embedder.Dimensions()))
	if err != nil {
		return mederrors.New(mederrors.ErrCodeIndexWrite, "failed to create vector store", err)
	}
	defer func() { _ = vector.Close() }()

	docs := make([]*store.Document, len(chunks))
	refs := make([]store.ChunkRef, len(chunks))
	for i, c := range chunks {
		docs[i] = &store.Document{ID: c.ID, DocumentID: c.DocumentID, Content: c.Text}
		refs[i] = store.ChunkRef{ChunkID: c.ID, DocumentID: c.DocumentID}
	}

	if err := lexical.Index(ctx, docs); err != nil {
		return mederrors.New(mederrors.ErrCodeIndexWrite, "failed to populate lexical index", err)
	}
	if err := vector.Add(ctx, refs, vectors); err != nil {
		return mederrors.New(mederrors.ErrCodeIndexWrite, "failed to populate vector store", err)
	}

	if err := vector.Save(paths.Vector); err != nil {
		return mederrors.New(mederrors.ErrCodeIndexWrite, "failed to save vector store", err)
	}
	if err := store.WriteCatalog(paths.Catalog, chunks); err != nil {
		return mederrors.New(mederrors.ErrCodeIndexWrite, "failed to write chunk catalog", err)
	}

	return nil
}

// Open loads the persisted artifacts for querying. Any artifact that
// fails to load is fatal at startup; a partial index cannot serve
// correct results and requires a rebuild.
func Open(dir string, dimensions int) (store.BM25Index, store.VectorStore, *store.Catalog, error) {
	paths := ArtifactPaths(dir)

	lexical, err := store.NewBleveBM25Index(paths.Lexical, store.DefaultBM25Config())
	if err != nil {
		return nil, nil, nil, err
	}

	vector, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dimensions))
	if err != nil {
		_ = lexical.Close()
		return nil, nil, nil, err
	}
	if err := vector.Load(paths.Vector); err != nil {
		_ = lexical.Close()
		_ = vector.Close()
		return nil, nil, nil, err
	}

	catalog, err := store.LoadCatalog(paths.Catalog)
	if err != nil {
		_ = lexical.Close()
		_ = vector.Close()
		return nil, nil, nil, mederrors.IndexCorrupt(
			fmt.Sprintf("chunk catalog at %s cannot be read", paths.Catalog), err)
	}

	return lexical, vector, catalog, nil
}
