// internal/models/query.go
package models

// SearchQuery is the raw user request that starts a research session.
// Immutable once created.
type SearchQuery struct {
	RawQuery    string `json:"raw_query"`
	CountryCode string `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
}

// ProductMetadata holds the structured facts extracted from a raw query by
// the metadata-extraction stage. Associated 1:1 with a research session and
// immutable once created.
type ProductMetadata struct {
	ID                    string   `json:"id,omitempty"`
	SessionID             string   `json:"session_id,omitempty"`
	ProductName           string   `json:"product_name"`
	ProductCategory       string   `json:"product_category"`
	HSCode                string   `json:"hs_code"` // 6-digit tariff code, "000000" when unknown
	RegulatoryFlags       []string `json:"regulatory_flags"`
	ImportRegulations     []string `json:"import_regulations"`
	ImpositiveRegulations []string `json:"impositive_regulations"`
	MarketSearchTerms     []string `json:"market_search_terms"`
	TrendKeywords         []string `json:"trend_keywords"` // 1-5 entries, most specific first
	NormalizedQuery       string   `json:"normalized_query"`
	ExtractionConfidence  float64  `json:"extraction_confidence"` // [0,1]
}

// UnknownHSCode is the sentinel used when no tariff classification could be
// determined.
const UnknownHSCode = "000000"
