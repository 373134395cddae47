package usecase

import (
	"context"
	"fmt"

	"github.com/podoring/wine-search/internal/core/domain"
	"github.com/podoring/wine-search/internal/core/ports"
)

// CandidateConfig carries the retrieval tuning parameters. The caps bound
// reranking and LLM-selection cost; the threshold is the minimum cosine
// similarity for semantic hits.
type CandidateConfig struct {
	SemanticLimit  int
	ScoreThreshold float32
}

// CandidateGenerator produces the candidate set for one query using exactly
// one of the two strategies: a structured catalog filter when the parsed
// conditions constrain anything, a semantic nearest-neighbor search
// otherwise. The two paths are mutually exclusive by construction.
type CandidateGenerator struct {
	catalog  ports.CatalogStore
	embedder ports.Embedder
	vector   ports.VectorSearcher
	cfg      CandidateConfig
}

func NewCandidateGenerator(
	catalog ports.CatalogStore,
	embedder ports.Embedder,
	vector ports.VectorSearcher,
	cfg CandidateConfig,
) *CandidateGenerator {
	if cfg.SemanticLimit <= 0 {
		cfg.SemanticLimit = 50
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 0.3
	}
	return &CandidateGenerator{
		catalog:  catalog,
		embedder: embedder,
		vector:   vector,
		cfg:      cfg,
	}
}

// Generate returns the candidates and the strategy tag that produced them.
func (g *CandidateGenerator) Generate(
	ctx context.Context,
	query string,
	cond domain.ParsedConditions,
) ([]domain.WineRecord, string, error) {
	if cond.HasConditions() {
		wines, err := g.catalog.FilterWines(ctx, cond)
		if err != nil {
			return nil, domain.StrategyStructured, fmt.Errorf("filter candidates: %w", err)
		}
		return wines, domain.StrategyStructured, nil
	}

	vector, err := g.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.StrategySemantic, fmt.Errorf("embed query: %w", err)
	}

	wines, err := g.vector.SearchSimilar(ctx, vector, g.cfg.SemanticLimit, g.cfg.ScoreThreshold)
	if err != nil {
		return nil, domain.StrategySemantic, fmt.Errorf("semantic candidates: %w", err)
	}
	return wines, domain.StrategySemantic, nil
}
