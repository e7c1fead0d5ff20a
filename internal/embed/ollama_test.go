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

func fakeOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			var texts []string
			switch v := req.Input.(type) {
			case string:
				texts = []string{v}
			case []any:
				for range v {
					texts = append(texts, "x")
				}
			}

			embeddings := make([][]float64, len(texts))
			for i := range embeddings {
				vec := make([]float64, dims)
				vec[0] = 1
				embeddings[i] = vec
			}
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestOllamaEmbedder_Available(t *testing.T) {
	srv := fakeOllamaServer(t, Dimensions)
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "test-model")
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_AvailableFalseWhenUnreachable(t *testing.T) {
	e := NewOllamaEmbedder("http://127.0.0.1:1", "test-model")
	assert.False(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_EmbedQueryReturnsNormalizedVector(t *testing.T) {
	srv := fakeOllamaServer(t, Dimensions)
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "test-model")
	v, err := e.EmbedQuery(context.Background(), "find the parser")
	require.NoError(t, err)
	assert.Len(t, v, Dimensions)

	var mag float64
	for _, f := range v {
		mag += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, mag, 1e-4)
}

func TestOllamaEmbedder_EmbedBatchSplitsAcrossBatchSize(t *testing.T) {
	srv := fakeOllamaServer(t, Dimensions)
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "test-model")
	texts := make([]string, DefaultBatchSize+5)
	for i := range texts {
		texts[i] = "chunk body"
	}

	out, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, out, len(texts))
}

func TestOllamaEmbedder_EmbedBatchEmptyInput(t *testing.T) {
	srv := fakeOllamaServer(t, Dimensions)
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "test-model")
	out, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestOllamaEmbedder_Dimensions(t *testing.T) {
	e := NewOllamaEmbedder("http://localhost:11434", "")
	assert.Equal(t, Dimensions, e.Dimensions())
}
