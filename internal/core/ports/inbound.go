package ports

import (
	"context"

	"github.com/podoring/wine-search/internal/core/domain"
)

// WineSearcher runs one hybrid search request end to end.
type WineSearcher interface {
	Search(ctx context.Context, query string, limit int) (*domain.SearchResult, error)
}

// WineRecommender runs the LLM recommendation path.
type WineRecommender interface {
	Recommend(ctx context.Context, query string, limit int) (*domain.RecommendResult, error)
}
