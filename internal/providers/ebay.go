// internal/providers/ebay.go
package providers

import "opportunity-research/internal/models"

// mapEbayResults maps the auction marketplace payload. Prices are tagged
// variable since listings mix auctions, lots and buy-it-now offers.
func mapEbayResults(data map[string]interface{}, limit int) []models.PlatformProduct {
	raw := rawResults(data, "organic_results")
	products := make([]models.PlatformProduct, 0, capLen(raw, limit))

	for i := 0; i < capLen(raw, limit); i++ {
		item, ok := asObject(raw[i])
		if !ok {
			continue
		}

		price, formatted := parsePrice(item["price"])

		currency := "USD"
		if obj, ok := asObject(item["price"]); ok {
			if c := stringField(obj, "currency"); c != "" {
				currency = c
			}
		}

		products = append(products, models.PlatformProduct{
			Platform:       models.PlatformEbay,
			ExternalID:     stringField(item, "epid", "position"),
			Title:          titleField(item),
			PriceRaw:       price,
			PriceFormatted: formatted,
			Currency:       currency,
			PriceType:      models.PriceTypeVariable,
			SellerName:     nestedString(item, "seller_info", "name"),
			ProductURL:     stringField(item, "link"),
			ImageURL:       stringField(item, "thumbnail"),
			Condition:      stringField(item, "condition"),
		})
	}
	return products
}
