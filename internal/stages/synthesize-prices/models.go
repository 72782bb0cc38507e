// internal/stages/synthesize-prices/models.go
package synthesizeprices

import "opportunity-research/internal/models"

// NoResultsSummary is the summary carried by the canned analysis when
// every platform returned an empty list.
const NoResultsSummary = "No product results found on any platform for this query."

// noResultsAnalysis builds the canned record returned without any
// completion call when the result set is entirely empty.
func noResultsAnalysis() *models.PriceAnalysis {
	return &models.PriceAnalysis{
		WholesaleFloor:     nil,
		RetailCeiling:      nil,
		Currency:           "USD",
		GrossMarginPctMin:  nil,
		GrossMarginPctMax:  nil,
		BestSourcePlatform: nil,
		ArbitrageSignal:    nil,
		Summary:            NoResultsSummary,
	}
}

// priceAnalysisSchema is the output contract enforced on the completion
// provider's parsed object before it is decoded into PriceAnalysis.
var priceAnalysisSchema = map[string]interface{}{
	"type": "object",
	"required": []string{
		"wholesale_floor",
		"retail_ceiling",
		"currency",
		"gross_margin_pct_min",
		"gross_margin_pct_max",
		"best_source_platform",
		"arbitrage_signal",
		"summary",
	},
	"properties": map[string]interface{}{
		"wholesale_floor": map[string]interface{}{
			"type": []string{"number", "null"},
		},
		"retail_ceiling": map[string]interface{}{
			"type": []string{"number", "null"},
		},
		"currency": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"gross_margin_pct_min": map[string]interface{}{
			"type": []string{"number", "null"},
		},
		"gross_margin_pct_max": map[string]interface{}{
			"type": []string{"number", "null"},
		},
		"best_source_platform": map[string]interface{}{
			"enum": []interface{}{"alibaba", "amazon", "ebay", "walmart", "google_shopping", nil},
		},
		"arbitrage_signal": map[string]interface{}{
			"type": []string{"string", "null"},
		},
		"summary": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
	},
}
