package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/podoring/wine-search/internal/core/domain"
	"github.com/podoring/wine-search/internal/infrastructure/resilience"
)

// Client wraps the OpenAI API for the two concerns the kiosk needs:
// profile/query embeddings and JSON wine recommendations.
type Client struct {
	api            *openai.Client
	embedModel     string
	embedDims      int
	recommendModel string
	executor       *resilience.Executor
}

type Config struct {
	APIKey         string
	BaseURL        string
	EmbedModel     string
	EmbedDims      int
	RecommendModel string
}

type Option func(*Client)

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

func New(cfg Config, opts ...Option) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	client := &Client{
		api:            openai.NewClientWithConfig(clientConfig),
		embedModel:     cfg.EmbedModel,
		embedDims:      cfg.EmbedDims,
		recommendModel: cfg.RecommendModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyOpenAIError)
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp openai.EmbeddingResponse
	err := e.client.execute(ctx, "openai.embed", func(ctx context.Context) error {
		var callErr error
		resp, callErr = e.client.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model:      openai.EmbeddingModel(e.client.embedModel),
			Input:      texts,
			Dimensions: e.client.embedDims,
		})
		return callErr
	})
	if err != nil {
		return nil, wrapEmbeddingError("openai embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, wrapEmbeddingError("openai embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	// The API may reorder batch results; Index restores input order.
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, wrapEmbeddingError("openai embed", fmt.Errorf("embedding index %d out of range", item.Index))
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, wrapEmbeddingError("openai embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

type Recommender struct {
	client *Client
}

func NewRecommender(client *Client) *Recommender {
	return &Recommender{client: client}
}

func (r *Recommender) RecommendWines(ctx context.Context, query string, wines []domain.WineRecord, limit int) ([]domain.WinePick, error) {
	var resp openai.ChatCompletionResponse
	err := r.client.execute(ctx, "openai.recommend", func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.client.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: r.client.recommendModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: recommendSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: buildRecommendPrompt(query, wines, limit)},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		return callErr
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded("openai recommend", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai recommend: no choices in response")
	}

	var parsed struct {
		Recommendations []domain.WinePick `json:"recommendations"`
	}
	content := extractJSONObject(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse recommendation json: %w", err)
	}
	return parsed.Recommendations, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
