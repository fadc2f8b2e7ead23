// Package search provides hybrid retrieval combining vector, lexical,
// and structured lookups, fused with per-backend score normalization
// and weighted aggregation.
package search

import "time"

// Backend identifies the retrieval signal that produced a result.
type Backend string

const (
	BackendVector     Backend = "vector"
	BackendLexical    Backend = "lexical"
	BackendStructured Backend = "structured"
)

// Result is a single retrieval result. Raw scores are backend-native;
// normalized and fused scores are produced during fusion.
type Result struct {
	ChunkID         string         `json:"chunk_id"`
	DocumentID      string         `json:"document_id"`
	RawScore        float64        `json:"raw_score"`
	NormalizedScore float64        `json:"normalized_score"`
	SourceBackend   Backend        `json:"source_backend"`
	FusedScore      float64        `json:"fused_score"`
	Text            string         `json:"text,omitempty"`
	MatchedTerms    []string       `json:"matched_terms,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Weights controls each backend's contribution to the fused score.
type Weights struct {
	Vector     float64
	Lexical    float64
	Structured float64
}

// DefaultWeights returns the standard backend weighting.
func DefaultWeights() Weights {
	return Weights{
		Vector:     0.5,
		Lexical:    0.3,
		Structured: 0.2,
	}
}

// Options configures a single search call.
type Options struct {
	// K is the desired result count, applied per backend and to the
	// final output.
	K int

	UseVector     bool
	UseLexical    bool
	UseStructured bool

	// Weights overrides DefaultWeights when non-nil.
	Weights *Weights
}

// DefaultOptions enables all backends with k=10.
func DefaultOptions() Options {
	return Options{
		K:             10,
		UseVector:     true,
		UseLexical:    true,
		UseStructured: true,
	}
}

// Engine tuning defaults.
const (
	// DefaultBackendTimeout bounds each backend call so a stalled
	// connection cannot block the whole query.
	DefaultBackendTimeout = 3 * time.Second

	// DefaultStructuredConfidence is the fixed normalized score given
	// to structured hits. A tunable default, not a validated
	// probability.
	DefaultStructuredConfidence = 0.7

	// DefaultCacheSize is the query result cache capacity.
	DefaultCacheSize = 128
)

// EngineConfig configures the fusion engine.
type EngineConfig struct {
	BackendTimeout       time.Duration
	StructuredConfidence float64

	// CacheSize is the LRU query cache capacity. Zero disables caching.
	CacheSize int
}

// DefaultEngineConfig returns production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BackendTimeout:       DefaultBackendTimeout,
		StructuredConfidence: DefaultStructuredConfidence,
		CacheSize:            DefaultCacheSize,
	}
}
