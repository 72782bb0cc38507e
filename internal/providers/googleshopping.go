// internal/providers/googleshopping.go
package providers

import "opportunity-research/internal/models"

// mapGoogleShoppingResults maps the shopping aggregator payload. Results
// live under shopping_results, with organic_results as the fallback key.
func mapGoogleShoppingResults(data map[string]interface{}, limit int) []models.PlatformProduct {
	raw := rawResults(data, "shopping_results", "organic_results")
	products := make([]models.PlatformProduct, 0, capLen(raw, limit))

	for i := 0; i < capLen(raw, limit); i++ {
		item, ok := asObject(raw[i])
		if !ok {
			continue
		}

		var rawPrice interface{} = item["price"]
		if extracted, ok := item["extracted_price"]; ok && extracted != nil {
			rawPrice = extracted
		}
		price, formatted := parsePrice(rawPrice)

		products = append(products, models.PlatformProduct{
			Platform:       models.PlatformGoogleShopping,
			ExternalID:     stringField(item, "product_id", "position"),
			Title:          titleField(item),
			PriceRaw:       price,
			PriceFormatted: formatted,
			Currency:       "USD",
			PriceType:      models.PriceTypeRetail,
			Rating:         floatField(item, "rating"),
			ReviewCount:    digitsField(item, "reviews"),
			SellerName:     stringField(item, "source"),
			ProductURL:     stringField(item, "link"),
			ImageURL:       stringField(item, "thumbnail"),
		})
	}
	return products
}
