package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker *resilience.Breaker) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGeminiClient(config.EmbeddingConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "embedding-001",
		Timeout: 2 * time.Second,
	}, breaker, nil)
}

func TestEmbedQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/embedding-001:embedContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "models/embedding-001", req.Model)
		assert.Equal(t, TaskRetrievalQuery, req.TaskType)
		assert.Equal(t, "egg, tomato", req.Content.Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}, nil)

	vec, err := client.EmbedQuery(context.Background(), "egg, tomato")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "models/embedding-001", client.Model())
}

func TestEmbedQueryAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}, nil)

	_, err := client.EmbedQuery(context.Background(), "egg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestEmbedQueryEmptyEmbedding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":{"values":[]}}`))
	}, nil)

	_, err := client.EmbedQuery(context.Background(), "egg")
	assert.Error(t, err)
}

func TestEmbedDocuments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/embedding-001:batchEmbedContents", r.URL.Path)

		var body struct {
			Requests []embedRequest `json:"requests"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Requests, 2)
		assert.Equal(t, TaskRetrievalDocument, body.Requests[1].TaskType)

		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`))
	}, nil)

	vecs, err := client.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestEmbedDocumentsCountMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1,0]}]}`))
	}, nil)

	_, err := client.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEmbedDocumentsBatchLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("should not be called")
	}, nil)

	_, err := client.EmbedDocuments(context.Background(), make([]string, MaxBatchSize+1))
	assert.Error(t, err)
}

func TestEmbedQueryBreakerOpens(t *testing.T) {
	calls := 0
	breaker := resilience.NewBreaker("gemini", resilience.BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute}, nil)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}, breaker)

	for i := 0; i < 2; i++ {
		_, err := client.EmbedQuery(context.Background(), "egg")
		assert.Error(t, err)
	}
	_, err := client.EmbedQuery(context.Background(), "egg")
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.Equal(t, 2, calls)
}

func TestEmbedQueryClientErrorsDoNotOpenBreaker(t *testing.T) {
	calls := 0
	breaker := resilience.NewBreaker("gemini", resilience.BreakerSettings{FailureThreshold: 1, OpenTimeout: time.Minute}, nil)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad input"}}`))
	}, breaker)

	for i := 0; i < 3; i++ {
		_, err := client.EmbedQuery(context.Background(), "egg")
		require.Error(t, err)
		assert.NotErrorIs(t, err, resilience.ErrOpen)
		assert.Contains(t, err.Error(), "bad input")
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, "closed", breaker.State())
}

func TestEmbedQueryTransportErrorHidesKey(t *testing.T) {
	client := NewGeminiClient(config.EmbeddingConfig{
		BaseURL: "http://127.0.0.1:1",
		APIKey:  "SUPERSECRETKEY123456",
		Model:   "m",
		Timeout: time.Second,
	}, nil, nil)

	_, err := client.EmbedQuery(context.Background(), "tomato, onion")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY123456")
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
