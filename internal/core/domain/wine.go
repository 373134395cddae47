package domain

// WineType is the catalog's fixed type enumeration. The zero value means the
// type is unknown or was never classified.
type WineType string

const (
	TypeRed       WineType = "Red wine"
	TypeWhite     WineType = "White wine"
	TypeRose      WineType = "Rosé wine"
	TypeSparkling WineType = "Sparkling wine"
	TypeDessert   WineType = "Dessert wine"
)

// WineRecord is one catalog entry. Nullable catalog columns are pointers so
// that missing data can be skipped when building rerank documents.
type WineRecord struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Rating   *float64 `json:"rating"`
	Vintage  *int     `json:"vintage"`
	Type     WineType `json:"type,omitempty"`
	Variety  *string  `json:"variety"`
	Region2  *string  `json:"region_2"`
	Region1  *string  `json:"region_1"`
	Province *string  `json:"province"`
	Country  *string  `json:"country"`
	Winery   *string  `json:"winery"`
	Price    *float64 `json:"price"`
	ABV      *float64 `json:"abv"`

	Description *string `json:"description"`
	Taste       *string `json:"taste"`

	// Taste-profile scalars on a 1-5 scale.
	Acidity           *float64 `json:"acidity"`
	Sweetness         *float64 `json:"sweetness"`
	Tannin            *float64 `json:"tannin"`
	Body              *float64 `json:"body"`
	CostEffectiveness *float64 `json:"cost_effectiveness"`

	Image *string `json:"image"`
	Stock int     `json:"stock"`

	Locations []StockLocation `json:"locations,omitempty"`
}

// StockLocation is one shelf slot holding the wine.
type StockLocation struct {
	Shelf string `json:"shelf"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
}

// WineSummary is the reduced projection returned by search. Taste-profile
// scalars and stock locations are reserved for the detail/browse surface.
type WineSummary struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Vintage     *int     `json:"vintage"`
	Type        WineType `json:"type,omitempty"`
	Variety     *string  `json:"variety"`
	Country     *string  `json:"country"`
	Winery      *string  `json:"winery"`
	Price       *float64 `json:"price"`
	ABV         *float64 `json:"abv"`
	Rating      *float64 `json:"rating"`
	Description *string  `json:"description"`
}

// Summarize projects a catalog record onto the search result shape.
func (w WineRecord) Summarize() WineSummary {
	return WineSummary{
		ID:          w.ID,
		Title:       w.Title,
		Vintage:     w.Vintage,
		Type:        w.Type,
		Variety:     w.Variety,
		Country:     w.Country,
		Winery:      w.Winery,
		Price:       w.Price,
		ABV:         w.ABV,
		Rating:      w.Rating,
		Description: w.Description,
	}
}

// Search strategy tags carried on SearchResult for observability.
const (
	StrategyStructured = "structured"
	StrategySemantic   = "semantic"
)

// SearchResult is the final ordered result of one hybrid search.
type SearchResult struct {
	Success bool          `json:"success"`
	Wines   []WineSummary `json:"wines"`
	Count   int           `json:"count"`

	// Diagnostics, not part of the wire contract.
	Strategy       string `json:"-"`
	CandidateCount int    `json:"-"`
	Reranked       bool   `json:"-"`
	RerankFallback bool   `json:"-"`
}

// WinePick is one LLM recommendation: a catalog id plus a free-text rationale.
type WinePick struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// Recommendation pairs a picked wine with its rationale.
type Recommendation struct {
	Wine   WineSummary `json:"wine"`
	Reason string      `json:"reason"`
}

// RecommendResult is the ordered output of the LLM recommendation path.
type RecommendResult struct {
	Success         bool             `json:"success"`
	Recommendations []Recommendation `json:"recommendations"`
	Count           int              `json:"count"`

	Strategy string `json:"-"`
}

// CatalogFilter narrows the browse listing. Zero values mean unfiltered.
type CatalogFilter struct {
	Type     string
	Country  string
	Variety  string
	MinPrice *float64
	MaxPrice *float64
	Search   string
}
