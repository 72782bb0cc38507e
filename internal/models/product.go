// internal/models/product.go
package models

// PlatformProduct is a provider-agnostic product listing produced by a
// provider adapter. Downstream stages treat it as read-only.
//
// PriceRaw is nil when the provider's price could not be parsed; in that
// case PriceFormatted still carries the raw provider string or "N/A".
type PlatformProduct struct {
	ID             string    `json:"id,omitempty"`
	Platform       Platform  `json:"platform"`
	ExternalID     string    `json:"external_id,omitempty"`
	Title          string    `json:"title"`
	PriceRaw       *float64  `json:"price_raw"`
	PriceFormatted string    `json:"price_formatted"`
	Currency       string    `json:"currency"`
	PriceType      PriceType `json:"price_type,omitempty"`
	MOQ            *int      `json:"moq,omitempty"`
	Unit           string    `json:"unit,omitempty"`
	Rating         *float64  `json:"rating,omitempty"`
	ReviewCount    *int      `json:"review_count,omitempty"`
	SellerName     string    `json:"seller_name,omitempty"`
	IsVerified     *bool     `json:"is_verified,omitempty"`
	ProductURL     string    `json:"product_url,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	Condition      string    `json:"condition,omitempty"`
}

// PlatformResults maps every known platform to its ordered result list.
// The key set always equals AllPlatforms(); a failed or empty provider
// search contributes an empty slice, never a missing entry.
type PlatformResults map[Platform][]PlatformProduct

// NewPlatformResults returns a result set with an empty entry for every
// known platform.
func NewPlatformResults() PlatformResults {
	out := make(PlatformResults, len(AllPlatforms()))
	for _, p := range AllPlatforms() {
		out[p] = []PlatformProduct{}
	}
	return out
}

// TotalCount returns the number of products across all platforms.
func (r PlatformResults) TotalCount() int {
	n := 0
	for _, products := range r {
		n += len(products)
	}
	return n
}

// Empty reports whether every platform returned zero results.
func (r PlatformResults) Empty() bool {
	return r.TotalCount() == 0
}
