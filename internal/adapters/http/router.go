package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/podoring/wine-search/internal/core/domain"
	"github.com/podoring/wine-search/internal/core/ports"
	"github.com/podoring/wine-search/internal/infrastructure/broadcast"
	"github.com/podoring/wine-search/internal/observability/metrics"
)

const serviceName = "api"

type Config struct {
	DefaultLimit   int
	MaxLimit       int
	SSEKeepalive   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	OverloadWait   time.Duration
}

func (c Config) normalize() Config {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 3
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 20
	}
	if c.SSEKeepalive <= 0 {
		c.SSEKeepalive = 25 * time.Second
	}
	if c.OverloadWait <= 0 {
		c.OverloadWait = 100 * time.Millisecond
	}
	return c
}

type Router struct {
	searchUC    ports.WineSearcher
	recommendUC ports.WineRecommender
	catalog     ports.CatalogStore
	live        *broadcast.Registry
	metrics     *metrics.HTTPServerMetrics
	mcpHandler  http.Handler
	cfg         Config
}

func NewRouter(
	searchUC ports.WineSearcher,
	recommendUC ports.WineRecommender,
	catalog ports.CatalogStore,
	live *broadcast.Registry,
	serverMetrics *metrics.HTTPServerMetrics,
	mcpHandler http.Handler,
	cfg Config,
) *Router {
	return &Router{
		searchUC:    searchUC,
		recommendUC: recommendUC,
		catalog:     catalog,
		live:        live,
		metrics:     serverMetrics,
		mcpHandler:  mcpHandler,
		cfg:         cfg.normalize(),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/search", rt.search)
	mux.HandleFunc("/api/recommend", rt.recommend)
	mux.HandleFunc("/api/wines", rt.listWines)
	mux.HandleFunc("/api/wines/", rt.wineSubroutes)
	mux.HandleFunc("/api/inventory/", rt.inventory)
	mux.HandleFunc("/api/live", rt.liveEvents)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	if rt.mcpHandler != nil {
		mux.Handle("/mcp", rt.mcpHandler)
	}

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		gated := backpressureMiddleware(mux, rt.cfg.MaxInFlight, rt.cfg.OverloadWait)
		// Long-lived SSE connections must not pin overload slots.
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/live" || r.URL.Path == "/metrics" {
				mux.ServeHTTP(w, r)
				return
			}
			gated.ServeHTTP(w, r)
		})
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit"`
}

func (rt *Router) resolveLimit(req queryRequest) int {
	limit := rt.cfg.DefaultLimit
	if req.Limit != nil && *req.Limit > 0 {
		limit = *req.Limit
	}
	if limit > rt.cfg.MaxLimit {
		limit = rt.cfg.MaxLimit
	}
	return limit
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}

	start := time.Now()
	result, err := rt.searchUC.Search(r.Context(), req.Query, rt.resolveLimit(req))
	if err != nil {
		writeError(w, err)
		return
	}

	annotateLog(r.Context(), "strategy", result.Strategy)
	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, result.Strategy, result.CandidateCount, time.Since(start))
		if result.RerankFallback {
			rt.metrics.RecordRerankFallback(serviceName)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) recommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}

	result, err := rt.recommendUC.Recommend(r.Context(), req.Query, rt.resolveLimit(req))
	if err != nil {
		writeError(w, err)
		return
	}
	annotateLog(r.Context(), "strategy", result.Strategy)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listWines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	query := r.URL.Query()
	filter := domain.CatalogFilter{
		Type:    query.Get("type"),
		Country: query.Get("country"),
		Variety: query.Get("variety"),
		Search:  query.Get("search"),
	}
	var parseErr error
	filter.MinPrice, parseErr = parseOptionalFloat(query.Get("min_price"))
	if parseErr != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("min_price must be a number"))
		return
	}
	filter.MaxPrice, parseErr = parseOptionalFloat(query.Get("max_price"))
	if parseErr != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("max_price must be a number"))
		return
	}

	wines, err := rt.catalog.ListWines(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if wines == nil {
		wines = []domain.WineRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"wines": wines, "count": len(wines)})
}

func (rt *Router) wineSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/wines/")
	if rest == "max-price" {
		rt.maxPrice(w, r)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("wine id must be an integer"))
		return
	}

	wine, err := rt.catalog.GetWineByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	locations, err := rt.catalog.ListStockLocations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	wine.Locations = locations
	writeJSON(w, http.StatusOK, wine)
}

func (rt *Router) maxPrice(w http.ResponseWriter, r *http.Request) {
	max, err := rt.catalog.MaxPrice(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"max_price": max})
}

func (rt *Router) inventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/inventory/")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("wine id must be an integer"))
		return
	}

	locations, err := rt.catalog.ListStockLocations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if locations == nil {
		locations = []domain.StockLocation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"wine_id": id, "locations": locations})
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err.Error()))
}

// errorBody is the uniform failure envelope: success is always explicit so a
// kiosk client can branch without inspecting status codes.
func errorBody(message string) map[string]any {
	return map[string]any{"success": false, "error": message}
}
