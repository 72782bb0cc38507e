// internal/providers/amazon.go
package providers

import "opportunity-research/internal/models"

// mapAmazonResults maps the retail marketplace payload. The price arrives
// as an object with raw/value sub-fields.
func mapAmazonResults(data map[string]interface{}, limit int) []models.PlatformProduct {
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
			Platform:       models.PlatformAmazon,
			ExternalID:     stringField(item, "asin", "position"),
			Title:          titleField(item),
			PriceRaw:       price,
			PriceFormatted: formatted,
			Currency:       currency,
			PriceType:      models.PriceTypeRetail,
			Rating:         floatField(item, "rating"),
			ReviewCount:    digitsField(item, "reviews"),
			SellerName:     nestedString(item, "seller", "name"),
			IsVerified:     boolField(item, "is_prime"),
			ProductURL:     stringField(item, "link"),
			ImageURL:       stringField(item, "thumbnail"),
		})
	}
	return products
}
