package domain

import (
	"fmt"
	"strings"
)

// Sort keys recognized by the condition parser and the catalog store.
const (
	SortByPrice     = "price"
	SortByRating    = "rating"
	SortByABV       = "abv"
	SortByTannin    = "tannin"
	SortBySweetness = "sweetness"
	SortByAcidity   = "acidity"
	SortByBody      = "body"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ParsedConditions is the parser's output: a sparse set of range/equality
// constraints extracted from a natural-language query. A nil/empty field
// means "unconstrained". The struct is pure data and carries no reference to
// the query it was parsed from.
type ParsedConditions struct {
	PriceMin *float64
	PriceMax *float64

	Type WineType

	RatingMin *float64

	TanninMin    *float64
	TanninMax    *float64
	AcidityMin   *float64
	AcidityMax   *float64
	SweetnessMin *float64
	SweetnessMax *float64
	BodyMin      *float64
	BodyMax      *float64

	ABVMin *float64
	ABVMax *float64

	// Country and Variety are canonical names matched as case-insensitive
	// substrings against the catalog.
	Country string
	Variety string

	SortBy    string
	SortOrder string
}

// HasConditions reports whether at least one constraint is set.
func (c ParsedConditions) HasConditions() bool {
	return c.PriceMin != nil || c.PriceMax != nil ||
		c.Type != "" ||
		c.RatingMin != nil ||
		c.TanninMin != nil || c.TanninMax != nil ||
		c.AcidityMin != nil || c.AcidityMax != nil ||
		c.SweetnessMin != nil || c.SweetnessMax != nil ||
		c.BodyMin != nil || c.BodyMax != nil ||
		c.ABVMin != nil || c.ABVMax != nil ||
		c.Country != "" || c.Variety != "" ||
		c.SortBy != ""
}

// Format renders the set fields in a fixed order for diagnostics. It is not
// part of the retrieval contract.
func (c ParsedConditions) Format() string {
	parts := make([]string, 0, 8)
	appendRange := func(name string, min, max *float64) {
		if min != nil {
			parts = append(parts, fmt.Sprintf("%s>=%g", name, *min))
		}
		if max != nil {
			parts = append(parts, fmt.Sprintf("%s<=%g", name, *max))
		}
	}

	appendRange("price", c.PriceMin, c.PriceMax)
	if c.Type != "" {
		parts = append(parts, "type="+string(c.Type))
	}
	appendRange("rating", c.RatingMin, nil)
	appendRange("tannin", c.TanninMin, c.TanninMax)
	appendRange("sweetness", c.SweetnessMin, c.SweetnessMax)
	appendRange("body", c.BodyMin, c.BodyMax)
	appendRange("acidity", c.AcidityMin, c.AcidityMax)
	appendRange("abv", c.ABVMin, c.ABVMax)
	if c.Country != "" {
		parts = append(parts, "country="+c.Country)
	}
	if c.Variety != "" {
		parts = append(parts, "variety="+c.Variety)
	}
	if c.SortBy != "" {
		parts = append(parts, fmt.Sprintf("sort=%s %s", c.SortBy, c.SortOrder))
	}

	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
