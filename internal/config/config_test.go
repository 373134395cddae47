package config

import "testing"

func TestLoadRetrievalDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SearchDefaultLimit != 3 {
		t.Fatalf("expected default search limit 3, got %d", cfg.SearchDefaultLimit)
	}
	if cfg.FilterCandidateCap != 100 {
		t.Fatalf("expected filter candidate cap 100, got %d", cfg.FilterCandidateCap)
	}
	if cfg.SemanticCandidateCap != 50 {
		t.Fatalf("expected semantic candidate cap 50, got %d", cfg.SemanticCandidateCap)
	}
	if cfg.SemanticScoreThreshold != 0.3 {
		t.Fatalf("expected score threshold 0.3, got %g", cfg.SemanticScoreThreshold)
	}
	if cfg.OpenAIEmbedModel != "text-embedding-3-small" || cfg.OpenAIEmbedDims != 1536 {
		t.Fatalf("unexpected embed defaults: %s/%d", cfg.OpenAIEmbedModel, cfg.OpenAIEmbedDims)
	}
	if cfg.CohereRerankModel != "rerank-english-v3.0" {
		t.Fatalf("unexpected rerank model: %q", cfg.CohereRerankModel)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_LIMIT", "5")
	t.Setenv("SEMANTIC_CANDIDATE_CAP", "80")
	t.Setenv("SEMANTIC_SCORE_THRESHOLD", "0.45")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SearchDefaultLimit != 5 {
		t.Fatalf("expected search limit 5, got %d", cfg.SearchDefaultLimit)
	}
	if cfg.SemanticCandidateCap != 80 {
		t.Fatalf("expected semantic cap 80, got %d", cfg.SemanticCandidateCap)
	}
	if cfg.SemanticScoreThreshold != 0.45 {
		t.Fatalf("expected score threshold 0.45, got %g", cfg.SemanticScoreThreshold)
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Fatalf("expected nats url override, got %q", cfg.NATSURL)
	}
}
