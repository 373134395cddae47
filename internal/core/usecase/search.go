package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/podoring/wine-search/internal/core/domain"
	"github.com/podoring/wine-search/internal/core/ports"
)

// SearchUseCase is the hybrid search orchestrator: parse, generate
// candidates on one of two paths, optionally rerank, then select and
// broadcast.
type SearchUseCase struct {
	candidates *CandidateGenerator
	reranker   ports.Reranker
	publisher  ports.RecommendationPublisher
}

func NewSearchUseCase(
	candidates *CandidateGenerator,
	reranker ports.Reranker,
	publisher ports.RecommendationPublisher,
) *SearchUseCase {
	return &SearchUseCase{
		candidates: candidates,
		reranker:   reranker,
		publisher:  publisher,
	}
}

// Search runs one request end to end. Parsing never fails; store and
// embedding failures propagate to the caller untouched; reranker failures
// degrade to the candidate order. The result is always bounded by limit.
func (uc *SearchUseCase) Search(ctx context.Context, query string, limit int) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("empty query"))
	}
	if limit < 0 {
		limit = 0
	}

	cond := ParseConditions(query)

	wines, strategy, err := uc.candidates.Generate(ctx, query, cond)
	if err != nil {
		return nil, err
	}

	result := &domain.SearchResult{
		Success:        true,
		Strategy:       strategy,
		CandidateCount: len(wines),
	}

	// Empty candidates short-circuit selection: never call the reranker
	// for nothing.
	if len(wines) > 0 {
		switch {
		case cond.SortBy != "":
			// The user asked for an explicit order; statistical
			// relevance must not undo it.
			wines = truncate(wines, limit)
		default:
			wines, result.RerankFallback = rerankCandidates(ctx, uc.reranker, query, wines, limit)
			result.Reranked = !result.RerankFallback
		}
	} else {
		wines = nil
	}

	result.Wines = summarize(wines)
	result.Count = len(result.Wines)

	uc.publisher.Publish(wineIDs(wines))
	return result, nil
}

func truncate(wines []domain.WineRecord, limit int) []domain.WineRecord {
	if limit < len(wines) {
		return wines[:limit]
	}
	return wines
}

func summarize(wines []domain.WineRecord) []domain.WineSummary {
	summaries := make([]domain.WineSummary, 0, len(wines))
	for _, wine := range wines {
		summaries = append(summaries, wine.Summarize())
	}
	return summaries
}

func wineIDs(wines []domain.WineRecord) []int64 {
	ids := make([]int64, 0, len(wines))
	for _, wine := range wines {
		ids = append(ids, wine.ID)
	}
	return ids
}
