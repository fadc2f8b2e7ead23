package index

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlit/medsearch/internal/chunk"
	"github.com/medlit/medsearch/internal/embed"
	mederrors "github.com/medlit/medsearch/internal/errors"
)

func testDocs() []chunk.Document {
	return []chunk.Document{
		{
			ID:     "NCT001",
			Text:   "Pneumothorax occurred in 34/128 (26.6%) patients after endobronchial valve placement in the treatment arm.",
			Source: chunk.SourceTrial,
		},
		{
			ID:     "CHAP-12",
			Text:   "Management of pleural effusion begins with diagnostic thoracentesis and assessment of fluid chemistry.",
			Source: chunk.SourceChapter,
		},
	}
}

func TestBuilder_BuildAndOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	builder := NewBuilder(embedder, Config{Dir: dir}, nil)
	stats, err := builder.Build(ctx, testDocs())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2, stats.Chunks, "short documents produce one chunk each")

	lexical, vector, catalog, err := Open(dir, embedder.Dimensions())
	require.NoError(t, err)
	defer func() {
		_ = lexical.Close()
		_ = vector.Close()
	}()

	assert.Equal(t, 2, catalog.Len())
	assert.Equal(t, 2, vector.Count())

	hits, err := lexical.Search(ctx, "pneumothorax valve", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "NCT001#0", hits[0].ChunkID)
	assert.Equal(t, "NCT001", hits[0].DocumentID)

	qvec, err := embedder.Embed(ctx, "pleural effusion drainage")
	require.NoError(t, err)
	vecHits, err := vector.Search(ctx, qvec, 1)
	require.NoError(t, err)
	require.Len(t, vecHits, 1)
	assert.Equal(t, "CHAP-12#0", vecHits[0].ChunkID)
}

func TestBuilder_AdverseEventRowsBecomeAtomicChunks(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	n34, n2 := 34, 2
	pct := 26.6
	serious := true
	docs := []chunk.Document{{
		ID:     "NCT001",
		Text:   "Endobronchial valve placement was evaluated against standard of care.",
		Source: chunk.SourceTrial,
		AdverseEvents: []chunk.AdverseEvent{
			{Event: "pneumothorax", InterventionN: &n34, InterventionPercent: &pct, Serious: &serious},
			{Event: "valve migration", InterventionN: &n2},
		},
	}}

	builder := NewBuilder(embedder, Config{Dir: dir}, nil)
	stats, err := builder.Build(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Chunks, "one windowed chunk plus one per adverse-event row")

	lexical, vector, catalog, err := Open(dir, embedder.Dimensions())
	require.NoError(t, err)
	defer func() {
		_ = lexical.Close()
		_ = vector.Close()
	}()

	ae0, ok := catalog.Get("NCT001#ae0")
	require.True(t, ok)
	assert.Equal(t, "NCT001", ae0.DocumentID)
	assert.Equal(t, "Adverse Event: pneumothorax. Intervention: 34 patients (26.6%). Serious.", ae0.Text)
	assert.Equal(t, []string{"adverse_events"}, ae0.SectionPath)

	ae1, ok := catalog.Get("NCT001#ae1")
	require.True(t, ok)
	assert.Equal(t, "Adverse Event: valve migration. Intervention: 2 patients.", ae1.Text)

	hits, err := lexical.Search(ctx, "pneumothorax", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "NCT001#ae0", hits[0].ChunkID)
}

func TestBuilder_Deterministic(t *testing.T) {
	ctx := context.Background()
	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	buildCatalog := func(dir string) []byte {
		builder := NewBuilder(embedder, Config{Dir: dir}, nil)
		_, err := builder.Build(ctx, testDocs())
		require.NoError(t, err)

		data, err := os.ReadFile(ArtifactPaths(dir).Catalog)
		require.NoError(t, err)
		return data
	}

	first := buildCatalog(t.TempDir())
	second := buildCatalog(t.TempDir())
	assert.Equal(t, first, second, "same corpus and options produce byte-identical catalogs")
	assert.NotEmpty(t, first)
}

func TestBuilder_LockContention(t *testing.T) {
	dir := t.TempDir()
	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	held := NewBuildLock(dir)
	require.NoError(t, held.Acquire())
	defer func() { _ = held.Release() }()

	builder := NewBuilder(embedder, Config{Dir: dir}, nil)
	_, err := builder.Build(context.Background(), testDocs())
	require.Error(t, err)
	assert.Equal(t, mederrors.ErrCodeIndexLocked, mederrors.CodeOf(err))
}

func TestOpen_MissingArtifactsIsFatal(t *testing.T) {
	_, _, _, err := Open(t.TempDir(), embed.StaticDimensions)
	require.Error(t, err)
}

func TestBuilder_EmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	builder := NewBuilder(embedder, Config{Dir: dir}, nil)
	stats, err := builder.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Chunks)
}
