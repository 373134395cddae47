package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/podoring/wine-search/internal/core/domain"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }

func TestIndexWinesEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/wines":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/wines/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "wines")
	wines := []domain.WineRecord{
		{ID: 1, Title: "First"},
		{ID: 2, Title: "Second"},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.IndexWines(context.Background(), wines, vectors); err != nil {
		t.Fatalf("first IndexWines() error = %v", err)
	}
	if err := client.IndexWines(context.Background(), wines, vectors); err != nil {
		t.Fatalf("second IndexWines() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestIndexWinesRejectsMismatchedVectors(t *testing.T) {
	client := New("http://unused", "wines")
	err := client.IndexWines(context.Background(), []domain.WineRecord{{ID: 1}}, [][]float32{{0.1}, {0.2}})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestSearchSimilarSendsThresholdAndDecodesPayload(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/wines/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"id":7,"score":0.91,"payload":{"title":"Chateau Test","type":"Red wine","variety":"Merlot","price":42000,"vintage":2019}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "wines")
	wines, err := client.SearchSimilar(context.Background(), []float32{0.1, 0.2}, 50, 0.3)
	if err != nil {
		t.Fatalf("SearchSimilar() error = %v", err)
	}
	if gotBody["score_threshold"] != 0.3 {
		t.Fatalf("expected score_threshold 0.3, got %v", gotBody["score_threshold"])
	}
	if gotBody["limit"] != float64(50) {
		t.Fatalf("expected limit 50, got %v", gotBody["limit"])
	}
	if len(wines) != 1 {
		t.Fatalf("expected 1 wine, got %d", len(wines))
	}
	wine := wines[0]
	if wine.ID != 7 || wine.Title != "Chateau Test" || wine.Type != domain.TypeRed {
		t.Fatalf("unexpected wine: %+v", wine)
	}
	if wine.Variety == nil || *wine.Variety != "Merlot" {
		t.Fatalf("expected variety Merlot, got %v", wine.Variety)
	}
	if wine.Price == nil || *wine.Price != 42000 {
		t.Fatalf("expected price 42000, got %v", wine.Price)
	}
	if wine.Vintage == nil || *wine.Vintage != 2019 {
		t.Fatalf("expected vintage 2019, got %v", wine.Vintage)
	}
}

func TestSearchSimilarWrapsStoreError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "wines")
	_, err := client.SearchSimilar(context.Background(), []float32{0.1}, 10, 0)
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/wines" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "wines")
	err := client.IndexWines(context.Background(), []domain.WineRecord{{ID: 1}}, [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestWinePayloadRoundTrip(t *testing.T) {
	wine := domain.WineRecord{
		ID:      3,
		Title:   "Round Trip",
		Type:    domain.TypeWhite,
		Variety: strPtr("Chardonnay"),
		Price:   f64Ptr(35000),
		Rating:  f64Ptr(4.4),
		Stock:   6,
	}
	got := wineFromPayload(wine.ID, winePayload(wine))
	if got.Title != wine.Title || got.Type != wine.Type || got.Stock != wine.Stock {
		t.Fatalf("scalar mismatch: %+v", got)
	}
	if got.Variety == nil || *got.Variety != "Chardonnay" {
		t.Fatalf("variety mismatch: %v", got.Variety)
	}
	if got.Rating == nil || *got.Rating != 4.4 {
		t.Fatalf("rating mismatch: %v", got.Rating)
	}
	if got.Description != nil {
		t.Fatalf("unset field should stay nil")
	}
}
