package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/podoring/wine-search/internal/core/domain"
)

func newTestClient(serverURL string) *Client {
	return New(Config{
		APIKey:         "test-key",
		BaseURL:        serverURL,
		EmbedModel:     "text-embedding-3-small",
		EmbedDims:      4,
		RecommendModel: "gpt-4o-mini",
	})
}

func TestEmbedRestoresInputOrder(t *testing.T) {
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"data": [
				{"index": 1, "embedding": [0.3, 0.4]},
				{"index": 0, "embedding": [0.1, 0.2]}
			],
			"model": "text-embedding-3-small"
		}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(newTestClient(server.URL))
	vectors, err := embedder.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("order not restored: %v", vectors)
	}
	if gotReq["model"] != "text-embedding-3-small" {
		t.Fatalf("unexpected model: %v", gotReq["model"])
	}
	if gotReq["dimensions"] != float64(4) {
		t.Fatalf("expected dimensions 4, got %v", gotReq["dimensions"])
	}
}

func TestEmbedQueryWrapsFailureAsEmbeddingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	embedder := NewEmbedder(newTestClient(server.URL))
	_, err := embedder.EmbedQuery(context.Background(), "query")
	if !domain.IsKind(err, domain.ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}
}

func TestEmbedEmptyInputSkipsAPI(t *testing.T) {
	embedder := NewEmbedder(newTestClient("http://unused"))
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil/nil, got %v/%v", vectors, err)
	}
}

func TestRecommendWinesParsesJSONPicks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "{\"recommendations\":[{\"id\":7,\"reason\":\"balanced and food friendly\"}]}"}}]
		}`))
	}))
	defer server.Close()

	recommender := NewRecommender(newTestClient(server.URL))
	picks, err := recommender.RecommendWines(context.Background(), "dinner wine", []domain.WineRecord{{ID: 7, Title: "Pick Me"}}, 3)
	if err != nil {
		t.Fatalf("RecommendWines() error = %v", err)
	}
	if len(picks) != 1 || picks[0].ID != 7 || picks[0].Reason != "balanced and food friendly" {
		t.Fatalf("unexpected picks: %+v", picks)
	}
}

func TestRecommendWinesToleratesWrappedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Here you go:\n{\"recommendations\":[{\"id\":2,\"reason\":\"crisp\"}]}"}}]
		}`))
	}))
	defer server.Close()

	recommender := NewRecommender(newTestClient(server.URL))
	picks, err := recommender.RecommendWines(context.Background(), "white wine", []domain.WineRecord{{ID: 2}}, 1)
	if err != nil {
		t.Fatalf("RecommendWines() error = %v", err)
	}
	if len(picks) != 1 || picks[0].ID != 2 {
		t.Fatalf("unexpected picks: %+v", picks)
	}
}

func TestRecommendWinesRetryableFailureIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	recommender := NewRecommender(newTestClient(server.URL))
	_, err := recommender.RecommendWines(context.Background(), "q", []domain.WineRecord{{ID: 1}}, 1)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}
