package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/podoring/wine-search/internal/core/domain"
)

// Client talks to qdrant's HTTP API. One point per wine, point id equal to
// the catalog id, descriptive fields carried in the payload so search does
// not need a catalog round-trip.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) IndexWines(ctx context.Context, wines []domain.WineRecord, vectors [][]float32) error {
	if len(wines) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(wines) != len(vectors) {
		return fmt.Errorf("wines/vectors mismatch")
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      int64          `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(wines))
	for i, wine := range wines {
		points = append(points, point{
			ID:      wine.ID,
			Vector:  vectors[i],
			Payload: winePayload(wine),
		})
	}

	reqBody := map[string]any{"points": points}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return nil
}

func (c *Client) SearchSimilar(ctx context.Context, vector []float32, limit int, threshold float32) ([]domain.WineRecord, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if threshold > 0 {
		reqBody["score_threshold"] = threshold
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "qdrant search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "qdrant search", fmt.Errorf("status %s", resp.Status))
	}

	var searchResp struct {
		Result []struct {
			ID      int64          `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	wines := make([]domain.WineRecord, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		wines = append(wines, wineFromPayload(r.ID, r.Payload))
	}
	return wines, nil
}

func winePayload(wine domain.WineRecord) map[string]any {
	payload := map[string]any{
		"title": wine.Title,
		"stock": wine.Stock,
	}
	if wine.Type != "" {
		payload["type"] = string(wine.Type)
	}
	putString := func(key string, v *string) {
		if v != nil {
			payload[key] = *v
		}
	}
	putFloat := func(key string, v *float64) {
		if v != nil {
			payload[key] = *v
		}
	}
	putString("variety", wine.Variety)
	putString("country", wine.Country)
	putString("winery", wine.Winery)
	putString("description", wine.Description)
	putString("taste", wine.Taste)
	putFloat("price", wine.Price)
	putFloat("abv", wine.ABV)
	putFloat("rating", wine.Rating)
	if wine.Vintage != nil {
		payload["vintage"] = *wine.Vintage
	}
	return payload
}

func wineFromPayload(id int64, payload map[string]any) domain.WineRecord {
	wine := domain.WineRecord{
		ID:    id,
		Title: getString(payload, "title"),
		Type:  domain.WineType(getString(payload, "type")),
		Stock: int(getFloat(payload, "stock")),
	}
	getStringPtr := func(key string) *string {
		if s := getString(payload, key); s != "" {
			return &s
		}
		return nil
	}
	getFloatPtr := func(key string) *float64 {
		if _, ok := payload[key]; ok {
			v := getFloat(payload, key)
			return &v
		}
		return nil
	}
	wine.Variety = getStringPtr("variety")
	wine.Country = getStringPtr("country")
	wine.Winery = getStringPtr("winery")
	wine.Description = getStringPtr("description")
	wine.Taste = getStringPtr("taste")
	wine.Price = getFloatPtr("price")
	wine.ABV = getFloatPtr("abv")
	wine.Rating = getFloatPtr("rating")
	if _, ok := payload["vintage"]; ok {
		vintage := int(getFloat(payload, "vintage"))
		wine.Vintage = &vintage
	}
	return wine
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func getString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getFloat(payload map[string]any, key string) float64 {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
