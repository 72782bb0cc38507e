// internal/models/platform.go
package models

// Platform identifies a commerce data provider.
type Platform string

const (
	PlatformAlibaba        Platform = "alibaba"
	PlatformAmazon         Platform = "amazon"
	PlatformEbay           Platform = "ebay"
	PlatformWalmart        Platform = "walmart"
	PlatformGoogleShopping Platform = "google_shopping"
)

// AllPlatforms returns every known platform in a fixed order. The fan-out
// aggregator relies on this to produce a deterministic result-map key set.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformAlibaba,
		PlatformAmazon,
		PlatformEbay,
		PlatformWalmart,
		PlatformGoogleShopping,
	}
}

// IsValid reports whether p is one of the known platforms.
func (p Platform) IsValid() bool {
	for _, known := range AllPlatforms() {
		if p == known {
			return true
		}
	}
	return false
}

// PriceType tags how a listed price should be interpreted.
type PriceType string

const (
	PriceTypeWholesale PriceType = "wholesale"
	PriceTypeRetail    PriceType = "retail"
	PriceTypeVariable  PriceType = "variable"
)
