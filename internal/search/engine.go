package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/medlit/medsearch/internal/embed"
	mederrors "github.com/medlit/medsearch/internal/errors"
	"github.com/medlit/medsearch/internal/store"
	"github.com/medlit/medsearch/internal/structured"
)

// StructuredStore is the structured lookup capability consumed by the
// engine. Lookup failures degrade to empty result lists inside the
// adapter, so Search carries no error.
type StructuredStore interface {
	Search(ctx context.Context, query string, k int) []*structured.Result
}

// Hydrator attaches stored chunk text to results.
type Hydrator interface {
	Text(chunkID string) string
}

// Engine orchestrates the three retrieval backends and fuses their
// outputs. It is stateless across queries; the indexes it reads are
// read-only after build and safe for concurrent queries.
type Engine struct {
	lexical    store.BM25Index
	vector     store.VectorStore
	embedder   embed.Embedder
	structured StructuredStore
	catalog    Hydrator

	fusion *Fusion
	config EngineConfig
	cache  *lru.Cache[string, []*Result]
	logger *slog.Logger
}

// NewEngine creates a fusion engine over the given backends.
// Nil backends are allowed; enabling a nil backend at query time is
// treated as that backend being unavailable.
func NewEngine(
	lexical store.BM25Index,
	vector store.VectorStore,
	embedder embed.Embedder,
	structuredStore StructuredStore,
	catalog Hydrator,
	config EngineConfig,
	logger *slog.Logger,
) (*Engine, error) {
	if config.BackendTimeout <= 0 {
		config.BackendTimeout = DefaultBackendTimeout
	}
	if config.StructuredConfidence <= 0 || config.StructuredConfidence > 1 {
		config.StructuredConfidence = DefaultStructuredConfidence
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		lexical:    lexical,
		vector:     vector,
		embedder:   embedder,
		structured: structuredStore,
		catalog:    catalog,
		fusion:     NewFusion(config.StructuredConfidence),
		config:     config,
		logger:     logger,
	}

	if config.CacheSize > 0 {
		cache, err := lru.New[string, []*Result](config.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		e.cache = cache
	}

	return e, nil
}

// Search runs the query against all enabled backends concurrently,
// waits for every backend to complete or fail, then fuses and
// hydrates the results.
//
// A failed backend contributes an empty result list; only when the
// sole enabled backend fails is its error surfaced.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	if opts.K <= 0 {
		return nil, mederrors.New(mederrors.ErrCodeInvalidK,
			fmt.Sprintf("k must be positive, got %d", opts.K), nil)
	}
	if !opts.UseVector && !opts.UseLexical && !opts.UseStructured {
		return nil, mederrors.New(mederrors.ErrCodeNoBackends,
			"at least one backend must be enabled", nil)
	}

	if strings.TrimSpace(query) == "" {
		return []*Result{}, nil
	}

	weights := DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	cacheKey := e.cacheKey(query, opts, weights)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			return copyResults(cached), nil
		}
	}

	start := time.Now()

	var (
		vectorResults     []*Result
		lexicalResults    []*Result
		structuredResults []*Result
		vectorErr         error
		lexicalErr        error
		structuredErr     error
	)

	// Fan out one task per enabled backend and wait for all of them.
	// Errors are captured per backend, never returned through the
	// group, so one failure cannot cancel the sibling calls.
	g, gctx := errgroup.WithContext(ctx)

	if opts.UseVector {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.config.BackendTimeout)
			defer cancel()
			vectorResults, vectorErr = e.searchVector(callCtx, query, opts.K)
			return nil
		})
	}
	if opts.UseLexical {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.config.BackendTimeout)
			defer cancel()
			lexicalResults, lexicalErr = e.searchLexical(callCtx, query, opts.K)
			return nil
		})
	}
	if opts.UseStructured {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.config.BackendTimeout)
			defer cancel()
			structuredResults, structuredErr = e.searchStructured(callCtx, query, opts.K)
			return nil
		})
	}

	_ = g.Wait()

	backendResults := make([]BackendResults, 0, 3)
	enabledCount := 0
	var soleErr error

	collect := func(backend Backend, results []*Result, err error) {
		enabledCount++
		if err != nil {
			soleErr = err
			e.logger.Warn("backend_degraded",
				slog.String("backend", string(backend)),
				slog.String("error", err.Error()))
			results = nil
		}
		backendResults = append(backendResults, BackendResults{Backend: backend, Results: results})
	}

	if opts.UseVector {
		collect(BackendVector, vectorResults, vectorErr)
	}
	if opts.UseLexical {
		collect(BackendLexical, lexicalResults, lexicalErr)
	}
	if opts.UseStructured {
		collect(BackendStructured, structuredResults, structuredErr)
	}

	if enabledCount == 1 && soleErr != nil {
		return nil, soleErr
	}

	results := e.fusion.Fuse(backendResults, weights, opts.K)
	e.hydrate(results)

	e.logger.Debug("search_complete",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))

	if e.cache != nil {
		e.cache.Add(cacheKey, copyResults(results))
	}
	return results, nil
}

// copyResults clones the result structs so callers and the cache never
// share mutable state; a caller rewriting a returned result must not
// poison later cache hits.
func copyResults(results []*Result) []*Result {
	out := make([]*Result, len(results))
	for i, r := range results {
		c := *r
		out[i] = &c
	}
	return out
}

// searchVector embeds the query and retrieves nearest neighbors.
// Raw scores are cosine similarities in [-1, 1].
func (e *Engine) searchVector(ctx context.Context, query string, k int) ([]*Result, error) {
	if e.vector == nil || e.embedder == nil {
		return nil, mederrors.BackendUnavailable(mederrors.ErrCodeEmbedUnavailable,
			"vector backend not configured", nil)
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, mederrors.BackendUnavailable(mederrors.ErrCodeEmbedUnavailable,
			"query embedding failed", err)
	}

	hits, err := e.vector.Search(ctx, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]*Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, &Result{
			ChunkID:       h.ChunkID,
			DocumentID:    h.DocumentID,
			RawScore:      1 - float64(h.Distance),
			SourceBackend: BackendVector,
		})
	}
	return results, nil
}

// searchLexical runs the BM25 query. Chunks with no term overlap score
// zero in BM25 and are excluded as carrying no signal.
func (e *Engine) searchLexical(ctx context.Context, query string, k int) ([]*Result, error) {
	if e.lexical == nil {
		return nil, mederrors.BackendUnavailable(mederrors.ErrCodeBackendUnavailable,
			"lexical backend not configured", nil)
	}

	hits, err := e.lexical.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	results := make([]*Result, 0, len(hits))
	for _, h := range hits {
		if h.Score <= 0 {
			continue
		}
		results = append(results, &Result{
			ChunkID:       h.ChunkID,
			DocumentID:    h.DocumentID,
			RawScore:      h.Score,
			SourceBackend: BackendLexical,
			MatchedTerms:  h.MatchedTerms,
		})
	}
	return results, nil
}

// searchStructured wraps structured rows as synthetic results.
func (e *Engine) searchStructured(ctx context.Context, query string, k int) ([]*Result, error) {
	if e.structured == nil {
		return nil, mederrors.BackendUnavailable(mederrors.ErrCodeStructuredUnavailable,
			"structured backend not configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, mederrors.BackendUnavailable(mederrors.ErrCodeBackendTimeout,
			"structured lookup timed out", err)
	}

	hits := e.structured.Search(ctx, query, k)
	results := make([]*Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, &Result{
			ChunkID:       h.ChunkID,
			DocumentID:    h.StudyID,
			RawScore:      h.RawScore,
			SourceBackend: BackendStructured,
			Metadata:      h.Metadata,
		})
	}
	return results, nil
}

// hydrate attaches stored chunk text. Missing text is tolerated,
// structured hits have no catalog entry at all.
func (e *Engine) hydrate(results []*Result) {
	if e.catalog == nil {
		return
	}
	for _, r := range results {
		if r.Text == "" {
			r.Text = e.catalog.Text(r.ChunkID)
		}
	}
}

// cacheKey builds a deterministic key over everything that affects the
// result list.
func (e *Engine) cacheKey(query string, opts Options, w Weights) string {
	return fmt.Sprintf("%s|%d|%t|%t|%t|%.3f|%.3f|%.3f",
		query, opts.K, opts.UseVector, opts.UseLexical, opts.UseStructured,
		w.Vector, w.Lexical, w.Structured)
}
