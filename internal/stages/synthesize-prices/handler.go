// internal/stages/synthesize-prices/handler.go
package synthesizeprices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/common/metrics"
	"opportunity-research/internal/models"
)

const StageName = "synthesize_prices"

const systemPrompt = `You are a wholesale sourcing analyst. You will receive product listings from up to 5 different platforms (Alibaba, Amazon, eBay, Walmart, Google Shopping). Your job is to synthesize these into a cross-platform price analysis.

You MUST respond with a single JSON object (no markdown, no explanation) matching this exact schema:
{
  "wholesale_floor": <number or null — lowest wholesale/bulk price from Alibaba or similar>,
  "retail_ceiling": <number or null — highest retail price from Amazon/Walmart>,
  "currency": "USD",
  "gross_margin_pct_min": <number or null — minimum estimated margin % between wholesale and retail>,
  "gross_margin_pct_max": <number or null — maximum estimated margin % between wholesale and retail>,
  "best_source_platform": <"alibaba"|"amazon"|"ebay"|"walmart"|"google_shopping"|null — best platform to source from>,
  "arbitrage_signal": <string or null — brief note on any arbitrage opportunity>,
  "summary": "<2-4 sentence synthesis of pricing landscape across all platforms>"
}

Guidelines:
- wholesale_floor: Use the lowest Alibaba unit price when available. If Alibaba has no results, use the lowest price from any platform.
- retail_ceiling: Use the highest price seen on Amazon or Walmart. If neither has results, use the highest price from any platform.
- gross_margin_pct: Calculate as ((retail - wholesale) / retail) * 100. Provide a range if prices vary.
- best_source_platform: The platform offering the best value for bulk sourcing (considering price, MOQ, and seller reliability).
- arbitrage_signal: Note any interesting price gaps between platforms (e.g., eBay lots significantly below retail).
- If a platform returned no results, mention that in the summary.
- All prices should be interpreted as USD unless stated otherwise.`

type Completer interface {
	StructuredComplete(ctx context.Context, system, user string, schema map[string]interface{}, maxTokens int) (map[string]interface{}, error)
}

// Handler synthesizes the fan-out search results into a cross-platform
// price analysis. When every platform came back empty it returns the
// canned no-results record without calling the completion provider.
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

func (h *Handler) Execute(ctx context.Context, results models.PlatformResults) (*models.PriceAnalysis, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues(StageName).Observe(time.Since(start).Seconds())
	}()

	if results.Empty() {
		h.logger.Info("all platforms empty, returning canned analysis", nil)
		return noResultsAnalysis(), nil
	}

	raw, err := h.completer.StructuredComplete(ctx, systemPrompt, buildUserPrompt(results), priceAnalysisSchema, h.config.MaxTokens)
	if err != nil {
		return nil, err
	}

	analysis, err := decodeAnalysis(raw)
	if err != nil {
		return nil, err
	}

	h.logger.Info("price analysis synthesized", map[string]interface{}{
		"totalResults": results.TotalCount(),
	})
	return analysis, nil
}

// buildUserPrompt renders one section per platform in canonical platform
// order so identical inputs always produce the identical prompt.
func buildUserPrompt(results models.PlatformResults) string {
	sections := make([]string, 0, len(models.AllPlatforms()))
	for _, platform := range models.AllPlatforms() {
		sections = append(sections, platformSection(platform, results[platform]))
	}
	return "Analyze these product listings across platforms:\n\n" + strings.Join(sections, "\n\n---\n\n")
}

func platformSection(platform models.Platform, products []models.PlatformProduct) string {
	name := strings.ToUpper(string(platform))
	if len(products) == 0 {
		return fmt.Sprintf("## %s\nNo results found.", name)
	}

	lines := make([]string, 0, len(products))
	for i, p := range products {
		entry := []string{
			fmt.Sprintf("%d. %q", i+1, p.Title),
			fmt.Sprintf("   Price: %s (raw: %s)", p.PriceFormatted, formatRaw(p.PriceRaw)),
		}
		if p.MOQ != nil {
			unit := p.Unit
			if unit == "" {
				unit = "units"
			}
			entry = append(entry, fmt.Sprintf("   MOQ: %d %s", *p.MOQ, unit))
		}
		if p.Rating != nil {
			reviews := 0
			if p.ReviewCount != nil {
				reviews = *p.ReviewCount
			}
			entry = append(entry, fmt.Sprintf("   Rating: %g/5 (%d reviews)", *p.Rating, reviews))
		}
		if p.SellerName != "" {
			seller := fmt.Sprintf("   Seller: %s", p.SellerName)
			if p.IsVerified != nil && *p.IsVerified {
				seller += " ✓ verified"
			}
			entry = append(entry, seller)
		}
		if p.Condition != "" {
			entry = append(entry, fmt.Sprintf("   Condition: %s", p.Condition))
		}
		lines = append(lines, strings.Join(entry, "\n"))
	}
	return fmt.Sprintf("## %s (%d results)\n%s", name, len(products), strings.Join(lines, "\n\n"))
}

func formatRaw(raw *float64) string {
	if raw == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *raw)
}

func decodeAnalysis(raw map[string]interface{}) (*models.PriceAnalysis, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, apperrors.NewPriceSynthesisFailedError(err.Error())
	}

	var analysis models.PriceAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, apperrors.NewPriceSynthesisFailedError(err.Error())
	}
	return &analysis, nil
}
