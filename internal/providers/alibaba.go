// internal/providers/alibaba.go
package providers

import "opportunity-research/internal/models"

// mapAlibabaResults maps the wholesale marketplace payload. All prices are
// treated as wholesale unit prices.
func mapAlibabaResults(data map[string]interface{}, limit int) []models.PlatformProduct {
	raw := rawResults(data, "organic_results")
	products := make([]models.PlatformProduct, 0, capLen(raw, limit))

	for i := 0; i < capLen(raw, limit); i++ {
		item, ok := asObject(raw[i])
		if !ok {
			continue
		}

		price, formatted := parsePrice(item["price"])
		products = append(products, models.PlatformProduct{
			Platform:       models.PlatformAlibaba,
			ExternalID:     stringField(item, "position"),
			Title:          titleField(item),
			PriceRaw:       price,
			PriceFormatted: formatted,
			Currency:       "USD",
			PriceType:      models.PriceTypeWholesale,
			MOQ:            digitsField(item, "moq"),
			Unit:           stringField(item, "unit"),
			Rating:         floatField(item, "rating"),
			ReviewCount:    digitsField(item, "reviews"),
			SellerName:     stringField(item, "supplier_name", "seller"),
			IsVerified:     boolField(item, "is_verified", "trade_assurance"),
			ProductURL:     stringField(item, "link"),
			ImageURL:       stringField(item, "thumbnail"),
		})
	}
	return products
}
