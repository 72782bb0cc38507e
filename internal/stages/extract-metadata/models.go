// internal/stages/extract-metadata/models.go
package extractmetadata

// metadataSchema is the output contract enforced on the completion
// provider's parsed object before it is decoded into ProductMetadata.
var metadataSchema = map[string]interface{}{
	"type": "object",
	"required": []string{
		"product_name",
		"product_category",
		"hs_code",
		"regulatory_flags",
		"import_regulations",
		"impositive_regulations",
		"market_search_terms",
		"trend_keywords",
		"normalized_query",
		"extraction_confidence",
	},
	"properties": map[string]interface{}{
		"product_name": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"product_category": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"hs_code": map[string]interface{}{
			"type":    "string",
			"pattern": `^\d{6}$`,
		},
		"regulatory_flags": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"import_regulations": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"impositive_regulations": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"market_search_terms": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"trend_keywords": map[string]interface{}{
			"type":     "array",
			"items":    map[string]interface{}{"type": "string"},
			"minItems": 1,
			"maxItems": 5,
		},
		"normalized_query": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"extraction_confidence": map[string]interface{}{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
	},
}
