package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOllamaTestServer serves /api/tags and /api/embed with a fixed
// 4-dimensional embedding per input.
func newOllamaTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "nomic-embed-text:latest"}},
			})
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			count := 1
			if inputs, ok := req.Input.([]any); ok {
				count = len(inputs)
			}
			embeddings := make([][]float64, count)
			for i := range embeddings {
				embeddings[i] = []float64{1, 0, 0, 0}
			}
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := newOllamaTestServer(t)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	v, err := e.Embed(context.Background(), "pleural effusion drainage outcomes")
	require.NoError(t, err)
	assert.Len(t, v, 4)
	assert.InDelta(t, 1.0, float64(v[0]), 1e-6)
	assert.Equal(t, 4, e.Dimensions(), "dimension learned from first response")
}

func TestOllamaEmbedder_EmbedBatchPreservesOrder(t *testing.T) {
	srv := newOllamaTestServer(t)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.NotZero(t, vectors[0][0])
	for _, x := range vectors[1] {
		assert.Zero(t, x)
	}
}

func TestOllamaEmbedder_UnreachableHost(t *testing.T) {
	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: "http://127.0.0.1:1",
	})
	assert.Error(t, err)
}

func TestOllamaEmbedder_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		SkipHealthCheck: true,
		MaxRetries:      1,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Embed(context.Background(), "text")
	assert.Error(t, err, "backend failure must be an explicit error, not a silent fallback")
}
