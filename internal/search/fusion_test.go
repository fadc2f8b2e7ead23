package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexResult(chunkID string, raw float64) *Result {
	return &Result{ChunkID: chunkID, RawScore: raw, SourceBackend: BackendLexical}
}

func vecResult(chunkID string, raw float64) *Result {
	return &Result{ChunkID: chunkID, RawScore: raw, SourceBackend: BackendVector}
}

func sqlResult(chunkID string) *Result {
	return &Result{ChunkID: chunkID, RawScore: 1.0, SourceBackend: BackendStructured}
}

func TestFusion_NormalizationRange(t *testing.T) {
	f := NewFusion(DefaultStructuredConfidence)
	br := BackendResults{
		Backend: BackendLexical,
		Results: []*Result{
			lexResult("a", 12.5),
			lexResult("b", 7.1),
			lexResult("c", 0.3),
		},
	}

	f.normalize(br)

	for _, r := range br.Results {
		assert.GreaterOrEqual(t, r.NormalizedScore, 0.0)
		assert.LessOrEqual(t, r.NormalizedScore, 1.0)
	}
	assert.Equal(t, 1.0, br.Results[0].NormalizedScore, "max raw score normalizes to 1")
	assert.Equal(t, 0.0, br.Results[2].NormalizedScore, "min raw score normalizes to 0")
}

func TestFusion_DegenerateSingleResult(t *testing.T) {
	f := NewFusion(DefaultStructuredConfidence)

	br := BackendResults{Backend: BackendVector, Results: []*Result{vecResult("a", 0.93)}}
	f.normalize(br)
	assert.Equal(t, degenerateScore, br.Results[0].NormalizedScore)

	empty := BackendResults{Backend: BackendVector}
	f.normalize(empty)
}

func TestFusion_DegenerateFlatScores(t *testing.T) {
	f := NewFusion(DefaultStructuredConfidence)
	br := BackendResults{
		Backend: BackendLexical,
		Results: []*Result{lexResult("a", 4.0), lexResult("b", 4.0)},
	}

	f.normalize(br)

	for _, r := range br.Results {
		assert.Equal(t, degenerateScore, r.NormalizedScore)
	}
}

func TestFusion_StructuredFixedConfidence(t *testing.T) {
	f := NewFusion(0.7)
	br := BackendResults{
		Backend: BackendStructured,
		Results: []*Result{sqlResult("NCT001#sql"), sqlResult("NCT002#sql")},
	}

	f.normalize(br)

	for _, r := range br.Results {
		assert.Equal(t, 0.7, r.NormalizedScore, "structured hits skip min-max entirely")
	}
}

func TestFusion_Additivity(t *testing.T) {
	// Chunk "a" appears in both backends with normalized score 0.8,
	// chunk "b" only in vector with the same normalized score.
	// Anchors at raw 0 and 1 pin the min-max range so 0.8 raw
	// normalizes to exactly 0.8.
	f := NewFusion(DefaultStructuredConfidence)

	fused := f.Fuse([]BackendResults{
		{Backend: BackendVector, Results: []*Result{
			vecResult("hi", 1.0),
			vecResult("a", 0.8),
			vecResult("b", 0.8),
			vecResult("lo", 0.0),
		}},
		{Backend: BackendLexical, Results: []*Result{
			lexResult("hi", 1.0),
			lexResult("a", 0.8),
			lexResult("lo", 0.0),
		}},
	}, DefaultWeights(), 10)

	scores := make(map[string]float64, len(fused))
	for _, r := range fused {
		scores[r.ChunkID] = r.FusedScore
	}

	assert.InDelta(t, 0.64, scores["a"], 1e-9, "0.8x0.5 + 0.8x0.3")
	assert.InDelta(t, 0.40, scores["b"], 1e-9, "0.8x0.5 only")
	assert.Greater(t, scores["a"], scores["b"],
		"a chunk confirmed by two backends outranks a single-backend hit of equal score")
}

func TestFusion_FirstSeenWinsForMetadata(t *testing.T) {
	f := NewFusion(DefaultStructuredConfidence)

	v := vecResult("a", 0.9)
	l := lexResult("a", 5.0)
	l.MatchedTerms = []string{"pneumothorax"}

	fused := f.Fuse([]BackendResults{
		{Backend: BackendVector, Results: []*Result{v, vecResult("x", 0.1)}},
		{Backend: BackendLexical, Results: []*Result{l, lexResult("x", 1.0)}},
	}, DefaultWeights(), 10)

	require.NotEmpty(t, fused)
	var a *Result
	for _, r := range fused {
		if r.ChunkID == "a" {
			a = r
		}
	}
	require.NotNil(t, a)
	assert.Equal(t, BackendVector, a.SourceBackend, "first backend to produce the chunk is the representative")
}

func TestFusion_StableTieBreakByInsertionOrder(t *testing.T) {
	f := NewFusion(DefaultStructuredConfidence)

	// Both chunks normalize to the degenerate score and get identical
	// fused scores; insertion order must hold.
	fused := f.Fuse([]BackendResults{
		{Backend: BackendLexical, Results: []*Result{
			lexResult("first", 3.0),
			lexResult("second", 3.0),
		}},
	}, DefaultWeights(), 10)

	require.Len(t, fused, 2)
	assert.Equal(t, "first", fused[0].ChunkID)
	assert.Equal(t, "second", fused[1].ChunkID)
}

func TestFusion_TruncatesToK(t *testing.T) {
	f := NewFusion(DefaultStructuredConfidence)

	fused := f.Fuse([]BackendResults{
		{Backend: BackendLexical, Results: []*Result{
			lexResult("a", 9.0),
			lexResult("b", 5.0),
			lexResult("c", 1.0),
		}},
	}, DefaultWeights(), 2)

	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].ChunkID)
}

func TestFusion_EmptyInput(t *testing.T) {
	f := NewFusion(DefaultStructuredConfidence)

	fused := f.Fuse(nil, DefaultWeights(), 10)
	assert.Empty(t, fused)
}

func TestFusion_CustomWeights(t *testing.T) {
	f := NewFusion(DefaultStructuredConfidence)

	weights := Weights{Vector: 0.0, Lexical: 1.0, Structured: 0.0}
	fused := f.Fuse([]BackendResults{
		{Backend: BackendVector, Results: []*Result{
			vecResult("vecOnly", 1.0),
			vecResult("tail", 0.0),
		}},
		{Backend: BackendLexical, Results: []*Result{
			lexResult("lexOnly", 8.0),
			lexResult("tail", 1.0),
		}},
	}, weights, 10)

	require.NotEmpty(t, fused)
	assert.Equal(t, "lexOnly", fused[0].ChunkID, "zero vector weight mutes the vector signal")
}

func TestNewFusion_InvalidConfidenceFallsBack(t *testing.T) {
	assert.Equal(t, DefaultStructuredConfidence, NewFusion(0).StructuredConfidence)
	assert.Equal(t, DefaultStructuredConfidence, NewFusion(1.5).StructuredConfidence)
	assert.Equal(t, 0.9, NewFusion(0.9).StructuredConfidence)
}
