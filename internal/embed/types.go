// Package embed defines the embedding capability consumed by the
// vector index. The engine never computes embeddings itself: an
// Embedder is supplied from outside, and any failure to embed surfaces
// as an explicit error so an infrastructure outage stays
// distinguishable from a legitimate empty search result.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout is the default timeout for embedding requests.
	DefaultTimeout = 60 * time.Second

	// StaticDimensions is the dimension of the hash-based embedder.
	StaticDimensions = 256
)

// Embedder generates fixed-length, L2-normalizable vector embeddings.
// Implementations must be deterministic for a given model version.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// NormalizeVector normalizes a vector to unit length. A zero vector is
// returned unchanged.
func NormalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	inv := float32(1.0 / magnitude)
	for i, val := range v {
		normalized[i] = val * inv
	}
	return normalized
}
