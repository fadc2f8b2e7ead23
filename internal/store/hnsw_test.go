package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHNSW(t *testing.T, dims int) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(DefaultVectorStoreConfig(dims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHNSW_AddAndSearch(t *testing.T) {
	s := newTestHNSW(t, 4)
	ctx := context.Background()

	refs := []ChunkRef{
		{ChunkID: "NCT001#0", DocumentID: "NCT001"},
		{ChunkID: "NCT002#0", DocumentID: "NCT002"},
		{ChunkID: "NCT002#730", DocumentID: "NCT002"},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0.9, 0.1, 0},
	}
	require.NoError(t, s.Add(ctx, refs, vectors))
	assert.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, []float32{0, 1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "NCT002#0", results[0].ChunkID)
	assert.Equal(t, "NCT002", results[0].DocumentID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestHNSW_DimensionMismatch(t *testing.T) {
	s := newTestHNSW(t, 4)
	ctx := context.Background()

	err := s.Add(ctx, []ChunkRef{{ChunkID: "NCT001#0", DocumentID: "NCT001"}}, [][]float32{{1, 0}})
	require.Error(t, err)
	var mismatch ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Got)

	_, err = s.Search(ctx, []float32{1, 0}, 5)
	assert.Error(t, err)
}

func TestHNSW_ReplaceExistingID(t *testing.T) {
	s := newTestHNSW(t, 4)
	ctx := context.Background()

	ref := []ChunkRef{{ChunkID: "NCT001#0", DocumentID: "NCT001"}}
	require.NoError(t, s.Add(ctx, ref, [][]float32{{1, 0, 0, 0}}))
	require.NoError(t, s.Add(ctx, ref, [][]float32{{0, 1, 0, 0}}))

	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "NCT001#0", results[0].ChunkID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestHNSW_DeleteExcludesFromResults(t *testing.T) {
	s := newTestHNSW(t, 4)
	ctx := context.Background()

	refs := []ChunkRef{
		{ChunkID: "NCT001#0", DocumentID: "NCT001"},
		{ChunkID: "NCT002#0", DocumentID: "NCT002"},
	}
	require.NoError(t, s.Add(ctx, refs, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, s.Delete(ctx, []string{"NCT001#0"}))

	assert.False(t, s.Contains("NCT001#0"))
	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "NCT001#0", r.ChunkID)
	}
}

func TestHNSW_EmptyStoreSearch(t *testing.T) {
	s := newTestHNSW(t, 4)

	results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSW_SaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	ctx := context.Background()

	s := newTestHNSW(t, 4)
	refs := []ChunkRef{
		{ChunkID: "NCT001#0", DocumentID: "NCT001"},
		{ChunkID: "NCT002#0", DocumentID: "NCT002"},
	}
	require.NoError(t, s.Add(ctx, refs, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, s.Save(path))

	dims, err := ReadHNSWStoreDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 4, dims)

	loaded, err := NewHNSWStore(DefaultVectorStoreConfig(4))
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	results, err := loaded.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "NCT001#0", results[0].ChunkID)
	assert.Equal(t, "NCT001", results[0].DocumentID)
}

func TestHNSW_LoadMissingFileIsCorruption(t *testing.T) {
	s := newTestHNSW(t, 4)

	err := s.Load(filepath.Join(t.TempDir(), "does-not-exist.hnsw"))
	require.Error(t, err)
}

func TestHNSW_ReadDimensionsFreshStart(t *testing.T) {
	dims, err := ReadHNSWStoreDimensions(filepath.Join(t.TempDir(), "vectors.hnsw"))
	require.NoError(t, err)
	assert.Zero(t, dims)
}
