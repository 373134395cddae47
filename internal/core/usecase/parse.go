package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/podoring/wine-search/internal/core/domain"
)

// Price and rating patterns. Korean price idiom counts in units of
// 10,000 won ("N만원"); bare "N원" amounts are taken as-is.
var (
	priceMaxManwonRe = regexp.MustCompile(`(\d+)만원\s*(이하|미만|까지)`)
	priceMaxWonRe    = regexp.MustCompile(`(\d+)원\s*(이하|미만|까지)`)
	priceMinManwonRe = regexp.MustCompile(`(\d+)만원\s*(이상|부터|넘는)`)
	priceMinWonRe    = regexp.MustCompile(`(\d+)원\s*(이상|부터|넘는)`)
	priceRangeRe     = regexp.MustCompile(`(\d+)만원\s*(에서|~|-)\s*(\d+)만원`)
	ratingPointsRe   = regexp.MustCompile(`평점\s*(\d+)점\s*이상`)
)

// conditionRule pairs a keyword predicate with its effect. Rules within one
// attribute cascade are evaluated in order and the first match wins, which
// makes the tie-break for overlapping vocabulary explicit.
type conditionRule struct {
	keywords []string
	apply    func(c *domain.ParsedConditions)
}

func runCascade(q string, c *domain.ParsedConditions, rules []conditionRule) {
	for _, rule := range rules {
		if containsAny(q, rule.keywords) {
			rule.apply(c)
			return
		}
	}
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// ParseConditions extracts structured constraints from a natural-language
// query. It is pure and total: attribute categories are independent, the
// input is matched on a lower-cased copy, and unrecognized text simply
// leaves fields unset.
func ParseConditions(query string) domain.ParsedConditions {
	var c domain.ParsedConditions
	q := strings.ToLower(query)

	parsePrice(q, &c)
	parseType(q, &c)
	parseTannin(q, &c)
	parseSweetness(q, &c)
	parseBody(q, &c)
	parseAcidity(q, &c)
	parseABV(q, &c)
	parseRating(q, &c)
	parseCountry(q, &c)
	parseVariety(q, &c)
	parseSort(q, &c)

	return c
}

func parsePrice(q string, c *domain.ParsedConditions) {
	if m := priceMaxManwonRe.FindStringSubmatch(q); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			c.PriceMax = floatPtr(v * 10000)
		}
	} else if m := priceMaxWonRe.FindStringSubmatch(q); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			c.PriceMax = floatPtr(v)
		}
	}

	if m := priceMinManwonRe.FindStringSubmatch(q); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			c.PriceMin = floatPtr(v * 10000)
		}
	} else if m := priceMinWonRe.FindStringSubmatch(q); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			c.PriceMin = floatPtr(v)
		}
	}

	// The combined range pattern is applied last so it overrides any
	// single-sided match on the same tokens.
	if m := priceRangeRe.FindStringSubmatch(q); m != nil {
		lo, okLo := parseAmount(m[1])
		hi, okHi := parseAmount(m[3])
		if okLo && okHi {
			c.PriceMin = floatPtr(lo * 10000)
			c.PriceMax = floatPtr(hi * 10000)
		}
	}
}

func parseType(q string, c *domain.ParsedConditions) {
	runCascade(q, c, []conditionRule{
		{[]string{"레드", "red", "빨간", "적포도주"}, setType(domain.TypeRed)},
		{[]string{"화이트", "white", "흰", "백포도주"}, setType(domain.TypeWhite)},
		{[]string{"스파클링", "샴페인", "sparkling", "스파클"}, setType(domain.TypeSparkling)},
		{[]string{"로제", "rosé", "rose"}, setType(domain.TypeRose)},
	})
}

func parseTannin(q string, c *domain.ParsedConditions) {
	if !containsAny(q, []string{"탄닌", "타닌", "tannin"}) {
		return
	}
	runCascade(q, c, []conditionRule{
		{[]string{"낮은", "약한", "적은", "부드러운", "low", "soft"}, func(c *domain.ParsedConditions) {
			c.TanninMax = floatPtr(2)
		}},
		{[]string{"높은", "강한", "많은", "진한", "high", "strong"}, func(c *domain.ParsedConditions) {
			c.TanninMin = floatPtr(4)
		}},
		{[]string{"중간", "보통", "medium"}, func(c *domain.ParsedConditions) {
			c.TanninMin = floatPtr(3)
			c.TanninMax = floatPtr(3)
		}},
	})
}

func parseSweetness(q string, c *domain.ParsedConditions) {
	runCascade(q, c, []conditionRule{
		// Semi-dry must precede dry: "세미 드라이" contains "드라이".
		{[]string{"세미 드라이", "오프 드라이", "semi-dry", "off-dry"}, func(c *domain.ParsedConditions) {
			c.SweetnessMin = floatPtr(2)
			c.SweetnessMax = floatPtr(3)
		}},
		{[]string{"달콤", "단", "sweet"}, func(c *domain.ParsedConditions) {
			c.SweetnessMin = floatPtr(4)
		}},
		{[]string{"드라이", "안단", "dry"}, func(c *domain.ParsedConditions) {
			c.SweetnessMax = floatPtr(2)
		}},
	})
}

func parseBody(q string, c *domain.ParsedConditions) {
	runCascade(q, c, []conditionRule{
		{[]string{"풀바디", "full body", "full-bodied", "진한"}, func(c *domain.ParsedConditions) {
			c.BodyMin = floatPtr(4)
		}},
		{[]string{"라이트 바디", "light body", "light-bodied", "가벼운"}, func(c *domain.ParsedConditions) {
			c.BodyMax = floatPtr(2)
		}},
		{[]string{"미디엄 바디", "medium body", "medium-bodied"}, func(c *domain.ParsedConditions) {
			c.BodyMin = floatPtr(3)
			c.BodyMax = floatPtr(3)
		}},
	})
}

func parseAcidity(q string, c *domain.ParsedConditions) {
	if !containsAny(q, []string{"산도", "산미", "acidity"}) {
		return
	}
	runCascade(q, c, []conditionRule{
		{[]string{"높은", "강한", "상큼", "high", "crisp"}, func(c *domain.ParsedConditions) {
			c.AcidityMin = floatPtr(4)
		}},
		{[]string{"낮은", "부드러운", "low"}, func(c *domain.ParsedConditions) {
			c.AcidityMax = floatPtr(2)
		}},
	})
}

func parseABV(q string, c *domain.ParsedConditions) {
	if !containsAny(q, []string{"알코올", "도수", "abv", "alcohol"}) {
		return
	}
	runCascade(q, c, []conditionRule{
		{[]string{"높은", "강한", "high", "strong"}, func(c *domain.ParsedConditions) {
			c.ABVMin = floatPtr(14)
		}},
		{[]string{"낮은", "약한", "low", "light"}, func(c *domain.ParsedConditions) {
			c.ABVMax = floatPtr(12)
		}},
	})
}

func parseRating(q string, c *domain.ParsedConditions) {
	if m := ratingPointsRe.FindStringSubmatch(q); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			c.RatingMin = floatPtr(v)
		}
		return
	}
	if containsAny(q, []string{"평점 높은", "고평점", "highly rated"}) {
		c.RatingMin = floatPtr(4)
	}
}

// Country and variety lookups are ordered pairs, not maps, so the
// first-key-found tie-break is deterministic.
var countryLookup = []struct {
	keyword string
	country string
}{
	{"프랑스", "France"},
	{"france", "France"},
	{"이탈리아", "Italy"},
	{"italy", "Italy"},
	{"스페인", "Spain"},
	{"spain", "Spain"},
	{"칠레", "Chile"},
	{"chile", "Chile"},
	{"미국", "United States"},
	{"united states", "United States"},
	{"아르헨티나", "Argentina"},
	{"argentina", "Argentina"},
	{"호주", "Australia"},
	{"australia", "Australia"},
	{"뉴질랜드", "New Zealand"},
	{"new zealand", "New Zealand"},
	{"독일", "Germany"},
	{"germany", "Germany"},
	{"포르투갈", "Portugal"},
	{"portugal", "Portugal"},
}

var varietyLookup = []struct {
	keyword string
	variety string
}{
	{"카베르네", "Cabernet"},
	{"cabernet", "Cabernet"},
	{"메를로", "Merlot"},
	{"merlot", "Merlot"},
	{"피노", "Pinot"},
	{"pinot", "Pinot"},
	{"샤르도네", "Chardonnay"},
	{"chardonnay", "Chardonnay"},
	{"소비뇽", "Sauvignon"},
	{"sauvignon", "Sauvignon"},
	{"쉬라즈", "Shiraz"},
	{"shiraz", "Shiraz"},
	{"시라", "Syrah"},
	{"syrah", "Syrah"},
}

func parseCountry(q string, c *domain.ParsedConditions) {
	for _, entry := range countryLookup {
		if strings.Contains(q, entry.keyword) {
			c.Country = entry.country
			return
		}
	}
}

func parseVariety(q string, c *domain.ParsedConditions) {
	for _, entry := range varietyLookup {
		if strings.Contains(q, entry.keyword) {
			c.Variety = entry.variety
			return
		}
	}
}

func parseSort(q string, c *domain.ParsedConditions) {
	runCascade(q, c, []conditionRule{
		{[]string{"가장 비싼", "최고가", "고가", "most expensive"}, setSort(domain.SortByPrice, domain.SortDesc)},
		{[]string{"가장 싼", "저렴한", "최저가", "싼", "cheapest"}, setSort(domain.SortByPrice, domain.SortAsc)},
		{[]string{"평점 높은", "최고 평점", "고평점", "highest rated"}, setSort(domain.SortByRating, domain.SortDesc)},
		{[]string{"도수 높은", "알코올 높은"}, setSort(domain.SortByABV, domain.SortDesc)},
		{[]string{"도수 낮은", "알코올 낮은"}, setSort(domain.SortByABV, domain.SortAsc)},
	})
}

func setType(t domain.WineType) func(*domain.ParsedConditions) {
	return func(c *domain.ParsedConditions) { c.Type = t }
}

func setSort(key, order string) func(*domain.ParsedConditions) {
	return func(c *domain.ParsedConditions) {
		c.SortBy = key
		c.SortOrder = order
	}
}

// parseAmount reports ok=false when the digits do not fit an int (overflow
// on absurd amounts), so callers leave the field unset instead of zeroing it.
func parseAmount(digits string) (float64, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

func floatPtr(v float64) *float64 {
	return &v
}
