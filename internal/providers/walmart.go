// internal/providers/walmart.go
package providers

import "opportunity-research/internal/models"

// mapWalmartResults maps the retail payload. The usable price lives under
// primary_offer.offer_price, with a top-level price fallback.
func mapWalmartResults(data map[string]interface{}, limit int) []models.PlatformProduct {
	raw := rawResults(data, "organic_results")
	products := make([]models.PlatformProduct, 0, capLen(raw, limit))

	for i := 0; i < capLen(raw, limit); i++ {
		item, ok := asObject(raw[i])
		if !ok {
			continue
		}

		var rawPrice interface{} = item["price"]
		if offer, ok := asObject(item["primary_offer"]); ok {
			if offerPrice, ok := offer["offer_price"]; ok && offerPrice != nil {
				rawPrice = offerPrice
			}
		}
		price, formatted := parsePrice(rawPrice)

		products = append(products, models.PlatformProduct{
			Platform:       models.PlatformWalmart,
			ExternalID:     stringField(item, "us_item_id", "product_id", "position"),
			Title:          titleField(item),
			PriceRaw:       price,
			PriceFormatted: formatted,
			Currency:       "USD",
			PriceType:      models.PriceTypeRetail,
			Rating:         floatField(item, "rating"),
			ReviewCount:    digitsField(item, "reviews"),
			SellerName:     stringField(item, "seller_name"),
			ProductURL:     stringField(item, "product_page_url", "link"),
			ImageURL:       stringField(item, "thumbnail"),
		})
	}
	return products
}
