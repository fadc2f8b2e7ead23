// Package store provides the persistence layer for indexed literature:
// a Bleve BM25 index for lexical retrieval, an HNSW graph for vector
// retrieval, and a JSONL chunk catalog for text hydration.
package store

import (
	"context"
	"fmt"
)

// Document represents a chunk to be indexed for lexical search.
type Document struct {
	ID         string // Chunk ID
	DocumentID string // Parent document ID
	Content    string // Text content
}

// BM25Result represents a single lexical search result.
type BM25Result struct {
	ChunkID      string
	DocumentID   string
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about the BM25 index.
type IndexStats struct {
	DocumentCount int
}

// BM25Index provides keyword search using BM25 scoring.
type BM25Index interface {
	// Index adds documents to the index
	Index(ctx context.Context, docs []*Document) error

	// Search returns documents matching query, scored by BM25
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// Delete removes documents from index
	Delete(ctx context.Context, chunkIDs []string) error

	// Stats returns index statistics
	Stats() *IndexStats

	Close() error
}

// BM25Config configures the BM25 index.
type BM25Config struct {
	// StopWords is a list of words to filter out during analysis
	StopWords []string
}

// DefaultBM25Config returns default BM25 configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		StopWords: DefaultMedicalStopWords,
	}
}

// DefaultMedicalStopWords contains English function words plus boilerplate
// terms that appear in nearly every trial record and carry no signal.
var DefaultMedicalStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "been", "by",
	"for", "from", "has", "have", "in", "is", "it", "of", "on",
	"or", "that", "the", "this", "to", "was", "were", "will",
	"study", "studies", "patient", "patients", "group", "groups",
}

// ClinicalKeepTerms always survive analysis, whatever the stop list
// says. Negations and comparators change the clinical meaning of a
// sentence ("no pneumothorax", "fewer events than control"), and the
// short abbreviations fall under the usual minimum token length.
var ClinicalKeepTerms = []string{
	"no", "not", "with", "without", "after", "before", "during",
	"between", "versus", "vs", "compared", "than", "more", "less",
	"greater", "fewer", "increase", "decrease", "improve", "worsen",
	"significant", "significantly",
	"mi", "hr", "bp", "ci", "rr", "iv", "im", "ae", "gi",
}

// VectorResult represents a single vector search result.
type VectorResult struct {
	ChunkID    string
	DocumentID string
	Distance   float32 // Lower is more similar (0-2 for cosine)
	Score      float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension (768 for Ollama models, 256 for static)
	Dimensions int

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean)
	Metric string

	// M is HNSW max connections per layer
	M int

	// EfSearch is HNSW query-time search width
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          32,
		EfSearch:   64,
	}
}

// VectorStore provides semantic search over chunk embeddings.
type VectorStore interface {
	// Add inserts vectors with their chunk and document IDs.
	// If a chunk ID exists, it is replaced.
	Add(ctx context.Context, refs []ChunkRef, vectors [][]float32) error

	// Search finds k nearest neighbors to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by chunk ID.
	Delete(ctx context.Context, chunkIDs []string) error

	// Contains checks if a chunk ID exists.
	Contains(chunkID string) bool

	// Count returns number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// ChunkRef ties an index entry back to its chunk and source document.
type ChunkRef struct {
	ChunkID    string
	DocumentID string
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (rebuild the index)", e.Expected, e.Got)
}
