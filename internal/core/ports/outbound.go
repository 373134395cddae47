package ports

import (
	"context"

	"github.com/podoring/wine-search/internal/core/domain"
)

// CatalogStore is the relational wine catalog.
type CatalogStore interface {
	// FilterWines translates every set condition field into an AND-ed
	// predicate. Result order follows the condition's sort key, defaulting
	// to rating descending, and is hard-capped by the store.
	FilterWines(ctx context.Context, cond domain.ParsedConditions) ([]domain.WineRecord, error)
	ListWines(ctx context.Context, filter domain.CatalogFilter) ([]domain.WineRecord, error)
	GetWineByID(ctx context.Context, id int64) (*domain.WineRecord, error)
	MaxPrice(ctx context.Context) (float64, error)
	ListStockLocations(ctx context.Context, wineID int64) ([]domain.StockLocation, error)
}

// VectorSearcher performs nearest-neighbor lookup over wine profile vectors.
type VectorSearcher interface {
	// SearchSimilar returns up to limit records whose similarity clears
	// threshold, ordered by similarity. An empty result is not an error.
	SearchSimilar(ctx context.Context, vector []float32, limit int, threshold float32) ([]domain.WineRecord, error)
}

// VectorIndexer stores profile vectors for catalog records.
type VectorIndexer interface {
	IndexWines(ctx context.Context, wines []domain.WineRecord, vectors [][]float32) error
}

// Embedder builds dense vectors for query and profile text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores candidate documents against the raw query and returns a
// relevance-ordered index permutation of length <= topN.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]int, error)
}

// Recommender asks an LLM to pick wines for the query with a per-wine
// rationale.
type Recommender interface {
	RecommendWines(ctx context.Context, query string, wines []domain.WineRecord, limit int) ([]domain.WinePick, error)
}

// RecommendationPublisher fans winning wine ids out to live listeners.
// Delivery is best-effort: failures never reach the search caller.
type RecommendationPublisher interface {
	Publish(wineIDs []int64)
}
