package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/podoring/wine-search/internal/core/domain"
	"github.com/podoring/wine-search/internal/core/ports"
)

// RecommendUseCase drives the LLM recommendation path: the same candidate
// generation as search, then an LLM picks wines and writes a per-wine
// rationale instead of a cross-encoder reordering them.
type RecommendUseCase struct {
	candidates  *CandidateGenerator
	recommender ports.Recommender
	publisher   ports.RecommendationPublisher
}

func NewRecommendUseCase(
	candidates *CandidateGenerator,
	recommender ports.Recommender,
	publisher ports.RecommendationPublisher,
) *RecommendUseCase {
	return &RecommendUseCase{
		candidates:  candidates,
		recommender: recommender,
		publisher:   publisher,
	}
}

// Recommend returns up to limit picked wines with rationales. Picks whose id
// is not in the candidate set are dropped, so the LLM can never introduce a
// wine retrieval did not produce.
func (uc *RecommendUseCase) Recommend(ctx context.Context, query string, limit int) (*domain.RecommendResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recommend", errors.New("empty query"))
	}
	if limit < 0 {
		limit = 0
	}

	cond := ParseConditions(query)

	wines, strategy, err := uc.candidates.Generate(ctx, query, cond)
	if err != nil {
		return nil, err
	}

	result := &domain.RecommendResult{
		Success:         true,
		Recommendations: []domain.Recommendation{},
		Strategy:        strategy,
	}
	if len(wines) == 0 || limit == 0 {
		uc.publisher.Publish(nil)
		return result, nil
	}

	picks, err := uc.recommender.RecommendWines(ctx, query, wines, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "recommend wines", err)
	}

	byID := make(map[int64]domain.WineRecord, len(wines))
	for _, wine := range wines {
		byID[wine.ID] = wine
	}

	ids := make([]int64, 0, limit)
	for _, pick := range picks {
		if len(result.Recommendations) == limit {
			break
		}
		wine, ok := byID[pick.ID]
		if !ok {
			slog.Warn("recommendation_unknown_id", "wine_id", pick.ID)
			continue
		}
		result.Recommendations = append(result.Recommendations, domain.Recommendation{
			Wine:   wine.Summarize(),
			Reason: pick.Reason,
		})
		ids = append(ids, wine.ID)
	}
	result.Count = len(result.Recommendations)

	uc.publisher.Publish(ids)
	return result, nil
}
