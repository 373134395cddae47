package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/podoring/wine-search/internal/core/domain"
)

type rerankerFake struct {
	indices   []int
	err       error
	query     string
	documents []string
	topN      int
}

func (f *rerankerFake) Rerank(_ context.Context, query string, documents []string, topN int) ([]int, error) {
	f.query = query
	f.documents = documents
	f.topN = topN
	if f.err != nil {
		return nil, f.err
	}
	return f.indices, nil
}

func wineFixture(id int64, title string) domain.WineRecord {
	return domain.WineRecord{ID: id, Title: title}
}

func TestRerankCandidatesReorders(t *testing.T) {
	candidates := []domain.WineRecord{
		wineFixture(1, "first"),
		wineFixture(2, "second"),
		wineFixture(3, "third"),
	}
	reranker := &rerankerFake{indices: []int{2, 0}}

	out, fallback := rerankCandidates(context.Background(), reranker, "q", candidates, 2)
	if fallback {
		t.Fatalf("unexpected fallback")
	}
	if len(out) != 2 || out[0].ID != 3 || out[1].ID != 1 {
		t.Fatalf("unexpected order: %+v", out)
	}
	if len(reranker.documents) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(reranker.documents))
	}
	if reranker.topN != 2 {
		t.Fatalf("expected topN=2, got %d", reranker.topN)
	}
}

func TestRerankCandidatesFallbackOnError(t *testing.T) {
	candidates := []domain.WineRecord{wineFixture(1, "a"), wineFixture(2, "b")}
	reranker := &rerankerFake{err: errors.New("rerank down")}

	out, fallback := rerankCandidates(context.Background(), reranker, "q", candidates, 1)
	if !fallback {
		t.Fatalf("expected fallback")
	}
	if len(out) != 1 || out[0].ID != 1 {
		t.Fatalf("expected original head, got %+v", out)
	}
}

func TestRerankCandidatesFallbackOnBadIndex(t *testing.T) {
	candidates := []domain.WineRecord{wineFixture(1, "a"), wineFixture(2, "b")}
	reranker := &rerankerFake{indices: []int{5}}

	out, fallback := rerankCandidates(context.Background(), reranker, "q", candidates, 2)
	if !fallback {
		t.Fatalf("expected fallback on out-of-range index")
	}
	if len(out) != 2 {
		t.Fatalf("expected truncated originals, got %d", len(out))
	}
}

func TestRerankCandidatesEmptyInput(t *testing.T) {
	out, fallback := rerankCandidates(context.Background(), &rerankerFake{}, "q", nil, 5)
	if len(out) != 0 || fallback {
		t.Fatalf("expected empty passthrough, got %d fallback=%v", len(out), fallback)
	}
}

func TestProfileDocumentSkipsNullFields(t *testing.T) {
	variety := "Merlot"
	wine := domain.WineRecord{
		Title:   "Chateau Test",
		Type:    domain.TypeRed,
		Variety: &variety,
	}
	got := ProfileDocument(wine)
	want := "Chateau Test Red wine Merlot"
	if got != want {
		t.Fatalf("ProfileDocument() = %q, want %q", got, want)
	}
}
