package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	mcpadapter "github.com/podoring/wine-search/internal/adapters/mcp"
	"github.com/podoring/wine-search/internal/config"
	"github.com/podoring/wine-search/internal/core/ports"
	"github.com/podoring/wine-search/internal/core/usecase"
	"github.com/podoring/wine-search/internal/infrastructure/broadcast"
	openaillm "github.com/podoring/wine-search/internal/infrastructure/llm/openai"
	"github.com/podoring/wine-search/internal/infrastructure/queue/nats"
	"github.com/podoring/wine-search/internal/infrastructure/repository/postgres"
	"github.com/podoring/wine-search/internal/infrastructure/rerank/cohere"
	"github.com/podoring/wine-search/internal/infrastructure/resilience"
	"github.com/podoring/wine-search/internal/infrastructure/vector/qdrant"
	"github.com/podoring/wine-search/internal/observability/metrics"
)

const Version = "1.2.0"

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	Catalog  *postgres.WineRepository
	Embedder ports.Embedder
	Indexer  ports.VectorIndexer
	Live     *broadcast.Registry

	SearchUC    ports.WineSearcher
	RecommendUC ports.WineRecommender
	MCP         *mcpadapter.Server

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	catalog := postgres.NewWineRepository(db, cfg.FilterCandidateCap)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	openaiClient := openaillm.New(openaillm.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbedModel:     cfg.OpenAIEmbedModel,
		EmbedDims:      cfg.OpenAIEmbedDims,
		RecommendModel: cfg.OpenAIRecommendModel,
	}, openaillm.WithExecutor(executor))
	embedder := openaillm.NewEmbedder(openaiClient)
	recommender := openaillm.NewRecommender(openaiClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	// Reranking degrades to candidate order on failure, so it fails fast
	// instead of retrying.
	rerankExecutor := resilience.NewExecutor(resilience.FailFastConfig())
	reranker := cohere.New(cfg.CohereBaseURL, cfg.CohereAPIKey, cfg.CohereRerankModel, cohere.WithExecutor(rerankExecutor))

	live := broadcast.NewRegistry(broadcast.WithHooks(
		serverMetrics.RecordLivePublish,
		func(delta int) {
			if delta > 0 {
				serverMetrics.SubscriberConnected()
			} else {
				serverMetrics.SubscriberDisconnected()
			}
		},
	))

	var publisher ports.RecommendationPublisher = live
	closeFn := func() { _ = db.Close() }

	// The broker is optional: without it the SSE channel still serves
	// in-process listeners.
	if cfg.NATSURL != "" {
		broker, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			slog.Warn("nats_disabled", "error", err)
		} else {
			publisher = broadcast.NewFanout(live, broker)
			closeFn = func() {
				broker.Close()
				_ = db.Close()
			}
		}
	}

	candidates := usecase.NewCandidateGenerator(catalog, embedder, vectorDB, usecase.CandidateConfig{
		SemanticLimit:  cfg.SemanticCandidateCap,
		ScoreThreshold: cfg.SemanticScoreThreshold,
	})
	searchUC := usecase.NewSearchUseCase(candidates, reranker, publisher)
	recommendUC := usecase.NewRecommendUseCase(candidates, recommender, publisher)

	return &App{
		Config:  cfg,
		Metrics: serverMetrics,

		Catalog:  catalog,
		Embedder: embedder,
		Indexer:  vectorDB,
		Live:     live,

		SearchUC:    searchUC,
		RecommendUC: recommendUC,
		MCP:         mcpadapter.NewServer(Version, searchUC, cfg.SearchDefaultLimit),

		closeFn: closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
