package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/podoring/wine-search/internal/core/domain"
	"github.com/podoring/wine-search/internal/core/ports"
)

// ProfileDocument flattens a wine's descriptive fields into one text
// document for cross-encoding and embedding. Field order is fixed; null
// fields are skipped.
func ProfileDocument(w domain.WineRecord) string {
	parts := make([]string, 0, 7)
	if w.Title != "" {
		parts = append(parts, w.Title)
	}
	if w.Type != "" {
		parts = append(parts, string(w.Type))
	}
	for _, field := range []*string{w.Variety, w.Country, w.Winery, w.Description, w.Taste} {
		if field != nil && *field != "" {
			parts = append(parts, *field)
		}
	}
	return strings.Join(parts, " ")
}

// rerankCandidates reorders candidates by cross-encoder relevance and
// truncates to topN. Reranking is a quality enhancement, never a hard
// dependency: on any reranker failure, or a malformed permutation, the
// original order is returned truncated instead. The returned bool reports
// whether the fallback was taken.
func rerankCandidates(
	ctx context.Context,
	reranker ports.Reranker,
	query string,
	candidates []domain.WineRecord,
	topN int,
) ([]domain.WineRecord, bool) {
	if len(candidates) == 0 {
		return candidates, false
	}
	if topN <= 0 {
		return nil, false
	}
	if topN > len(candidates) {
		topN = len(candidates)
	}

	documents := make([]string, len(candidates))
	for i, wine := range candidates {
		documents[i] = ProfileDocument(wine)
	}

	indices, err := reranker.Rerank(ctx, query, documents, topN)
	if err != nil {
		slog.Warn("rerank_fallback", "error", err, "candidates", len(candidates))
		return candidates[:topN], true
	}

	if len(indices) > topN {
		indices = indices[:topN]
	}
	reordered := make([]domain.WineRecord, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(candidates) {
			slog.Warn("rerank_fallback", "error", "index out of range", "index", idx)
			return candidates[:topN], true
		}
		reordered = append(reordered, candidates[idx])
	}
	return reordered, false
}
