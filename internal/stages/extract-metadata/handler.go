// internal/stages/extract-metadata/handler.go
package extractmetadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/common/metrics"
	"opportunity-research/internal/models"
)

const StageName = "extract_metadata"

const systemPrompt = `You are a wholesale product research assistant. Given a raw search query and optionally a destination country, extract structured product metadata for downstream sourcing, trends, regulation, and market research.

You MUST respond with a single JSON object (no markdown, no explanation) matching this exact schema:
{
  "product_name": "human-readable product name",
  "product_category": "broad product category",
  "hs_code": "best-guess 6-digit HS tariff code",
  "regulatory_flags": ["relevant certifications/standards like FCC, CE, RoHS, FDA, etc."],
  "import_regulations": ["import-specific rules: customs requirements, permits, licenses, restrictions, prohibited items, origin rules"],
  "impositive_regulations": ["tax/duty-related: tariff rates, duty classifications, VAT/GST applicability, excise duties, preferential trade agreements"],
  "market_search_terms": ["terms for market/competitor research"],
  "trend_keywords": ["1-5 trend keywords, most specific first"],
  "normalized_query": "clean, optimized search string for product sourcing APIs",
  "extraction_confidence": 0.0-1.0
}

Guidelines:
- hs_code should be the most likely 6-digit HS code. Use "000000" if truly unknown.
- regulatory_flags: product certifications and standards (FCC, CE, RoHS, FDA, etc.).
- import_regulations: rules for bringing goods into a country — customs procedures, import permits, licensing, prohibited/restricted items, country-of-origin requirements.
- impositive_regulations: tax and duty rules — HS tariff rates, duty classifications, VAT/GST, excise duties, preferential agreements (e.g. USMCA, EU GSP).
- trend_keywords should be 1-5 terms ordered from most specific to broadest. Include the product name and relevant variations.
- normalized_query should be a clean, lowercase search string optimized for product search APIs (no special characters, no country references).
- extraction_confidence reflects how certain you are about the extraction (0.5 for vague queries, 0.9+ for specific products).`

// Completer is the slice of the completion client this stage needs.
type Completer interface {
	StructuredComplete(ctx context.Context, system, user string, schema map[string]interface{}, maxTokens int) (map[string]interface{}, error)
}

// Handler turns a raw search query into structured product metadata. It
// is a required gate: there is no fallback, a failed extraction fails
// the whole research request.
type Handler struct {
	config    *Config
	completer Completer
	logger    logger.Logger
}

func NewHandler(config *Config, completer Completer, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		completer: completer,
		logger: log.With(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

func (h *Handler) Execute(ctx context.Context, rawQuery, countryCode string) (*models.ProductMetadata, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues(StageName).Observe(time.Since(start).Seconds())
	}()

	raw, err := h.completer.StructuredComplete(ctx, systemPrompt, buildUserPrompt(rawQuery, countryCode), metadataSchema, h.config.MaxTokens)
	if err != nil {
		return nil, err
	}

	metadata, err := decodeMetadata(raw)
	if err != nil {
		return nil, err
	}

	h.logger.Info("product metadata extracted", map[string]interface{}{
		"productName": metadata.ProductName,
		"hsCode":      metadata.HSCode,
		"confidence":  metadata.ExtractionConfidence,
	})
	return metadata, nil
}

func buildUserPrompt(rawQuery, countryCode string) string {
	countryContext := ""
	if countryCode != "" {
		countryContext = fmt.Sprintf("The user is located in %s. Consider local regulations and market context for this country.", countryCode)
	}
	return fmt.Sprintf("Raw search query: %q\n%s\n\nExtract the structured product metadata as JSON.", rawQuery, countryContext)
}

// decodeMetadata converts the schema-validated object into the typed
// model through a JSON round-trip, matching the wire field names.
func decodeMetadata(raw map[string]interface{}) (*models.ProductMetadata, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, apperrors.NewMetadataExtractionFailedError(err.Error())
	}

	var metadata models.ProductMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, apperrors.NewMetadataExtractionFailedError(err.Error())
	}
	return &metadata, nil
}
