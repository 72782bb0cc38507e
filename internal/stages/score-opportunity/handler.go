// internal/stages/score-opportunity/handler.go
package scoreopportunity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/common/metrics"
	"opportunity-research/internal/models"
)

const StageName = "score_opportunity"

const systemPrompt = `You are a wholesale import opportunity analyst. You will receive five research reports about a product:

1. **Price Analysis** — wholesale floor, retail ceiling, margins, best source platform
2. **Trend Report** — search-interest data: direction, score, seasonality, rising queries, regional hotspots
3. **Regulation Report** — import compliance: duty rates, certifications, prohibited variants, labeling
4. **Impositive Report** — taxes, duties, landed cost breakdown, net margin after taxes
5. **Market Report** — competition level, top competitors, channels, positioning advice

Your task: synthesize ALL reports into a single opportunity assessment.

Scoring Guidelines (opportunity_score 0-100):
- 80-100: Strong opportunity. High margins, growing trend, manageable regulations, low-medium competition.
- 60-79: Good opportunity with caveats. Decent margins but some risk factors (declining trend, high competition, or complex regulations).
- 40-59: Marginal opportunity. Thin margins, flat/declining trend, or significant regulatory barriers.
- 20-39: Weak opportunity. Multiple red flags — low margins, tough competition, regulatory hurdles.
- 0-19: Avoid. Negative margins, severe regulatory blockers, or crashing demand.

Fields:
- **opportunity_score**: Overall score 0-100 using the above rubric.
- **estimated_margin_pct**: Net estimated margin percentage after landed cost. Use the impositive report's net margin if available, otherwise estimate from price analysis margins minus estimated tax burden.
- **best_source_platform**: Best platform to source from (from price analysis).
- **best_launch_month**: When to launch based on trend seasonality. Null if not seasonal.
- **keyword_gaps**: 3-5 search keywords or product variants that show rising demand but low competition (from trend rising queries + market gaps).
- **variant_suggestions**: 2-4 specific product variants, bundles, or configurations to consider.
- **risk_flags**: All identified risks — margin squeeze, declining trend, certification blockers, high competition, etc. Be thorough.
- **overall_verdict**: 3-5 sentence executive summary. State the opportunity clearly: should they import this product? Why or why not? What's the recommended strategy?

You MUST respond with a single JSON object (no markdown, no explanation) carrying exactly those fields.

Be direct and honest. Don't inflate scores. A mediocre opportunity should score mediocre.`

type Completer interface {
	StructuredComplete(ctx context.Context, system, user string, schema map[string]interface{}, maxTokens int) (map[string]interface{}, error)
}

// Handler produces the terminal opportunity assessment. It never fails:
// when the synthesis call cannot produce a valid report the handler
// returns a degraded mid-score report flagged for manual review.
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

func (h *Handler) Execute(ctx context.Context, inputs *Inputs) *models.OpportunityReport {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues(StageName).Observe(time.Since(start).Seconds())
	}()

	raw, err := h.completer.StructuredComplete(ctx, systemPrompt, buildUserPrompt(inputs), opportunityReportSchema, h.config.MaxTokens)
	if err != nil {
		h.logger.Error("opportunity scoring failed, returning fallback report", map[string]interface{}{
			"error": err.Error(),
		})
		return fallbackReport(inputs)
	}

	report, err := decodeReport(raw)
	if err != nil {
		h.logger.Error("opportunity report decode failed, returning fallback report", map[string]interface{}{
			"error": err.Error(),
		})
		return fallbackReport(inputs)
	}

	h.logger.Info("opportunity assessed", map[string]interface{}{
		"score":     report.OpportunityScore,
		"riskFlags": len(report.RiskFlags),
	})
	return report
}

// fallbackReport carries forward whatever the upstream reports already
// established so the caller still gets an actionable artifact.
func fallbackReport(inputs *Inputs) *models.OpportunityReport {
	report := &models.OpportunityReport{
		OpportunityScore:   50,
		KeywordGaps:        []string{},
		VariantSuggestions: []string{},
		RiskFlags:          []string{FallbackRiskFlag},
		OverallVerdict:     fallbackVerdict,
	}
	if inputs.PriceAnalysis != nil {
		report.EstimatedMarginPct = inputs.PriceAnalysis.GrossMarginPctMin
		report.BestSourcePlatform = inputs.PriceAnalysis.BestSourcePlatform
	}
	if inputs.Trend != nil {
		report.BestLaunchMonth = inputs.Trend.PeakMonth
	}
	return report
}

func buildUserPrompt(inputs *Inputs) string {
	var b strings.Builder
	b.WriteString("Synthesize these research reports into an opportunity assessment:\n\n")

	price := inputs.PriceAnalysis
	fmt.Fprintf(&b, "## 1. PRICE ANALYSIS\n")
	fmt.Fprintf(&b, "- Wholesale floor: $%s\n", floatOr(price.WholesaleFloor, "N/A"))
	fmt.Fprintf(&b, "- Retail ceiling: $%s\n", floatOr(price.RetailCeiling, "N/A"))
	fmt.Fprintf(&b, "- Gross margin range: %s%% – %s%%\n", floatOr(price.GrossMarginPctMin, "?"), floatOr(price.GrossMarginPctMax, "?"))
	fmt.Fprintf(&b, "- Best source platform: %s\n", platformOr(price.BestSourcePlatform, "unknown"))
	fmt.Fprintf(&b, "- Arbitrage signal: %s\n", stringOr(price.ArbitrageSignal, "none"))
	fmt.Fprintf(&b, "- Summary: %s\n\n", price.Summary)

	trend := inputs.Trend
	fmt.Fprintf(&b, "## 2. TREND REPORT\n")
	fmt.Fprintf(&b, "- Keyword: %q\n", trend.Keyword)
	fmt.Fprintf(&b, "- Trend direction: %s\n", trend.TrendDirection)
	fmt.Fprintf(&b, "- Trend score: %d/100\n", trend.TrendScore)
	fmt.Fprintf(&b, "- Seasonal: %s\n", seasonalLine(trend))
	fmt.Fprintf(&b, "- Rising queries: %s\n", risingQueries(trend.RisingQueries))
	fmt.Fprintf(&b, "- Top regions: %s\n\n", topRegions(trend.Regions))

	reg := inputs.Regulation
	fmt.Fprintf(&b, "## 3. REGULATION REPORT\n")
	if reg.DutyRatePercent != nil {
		fmt.Fprintf(&b, "- Duty rate: %g%%\n", *reg.DutyRatePercent)
	} else {
		fmt.Fprintf(&b, "- Duty rate: unknown\n")
	}
	fmt.Fprintf(&b, "- Required certifications: %s\n", joinOr(reg.RequiredCertifications, "none identified"))
	fmt.Fprintf(&b, "- Prohibited variants: %s\n", joinOr(reg.ProhibitedVariants, "none identified"))
	fmt.Fprintf(&b, "- Labeling requirements: %d items\n", len(reg.LabelingRequirements))
	fmt.Fprintf(&b, "- Licensing: %s\n", stringOr(reg.LicensingInfo, "none required"))
	fmt.Fprintf(&b, "- Summary: %s\n\n", reg.Summary)

	fmt.Fprintf(&b, "## 4. IMPOSITIVE REPORT (Taxes & Landed Cost)\n")
	if imp := inputs.Impositive; imp != nil {
		fmt.Fprintf(&b, "- Import duty: %s%%\n", floatOr(imp.ImportDutyPct, "?"))
		fmt.Fprintf(&b, "- VAT: %s%%\n", floatOr(imp.VATRatePct, "?"))
		fmt.Fprintf(&b, "- Total tax burden: %s%%\n", floatOr(imp.TotalTaxBurdenPct, "?"))
		fmt.Fprintf(&b, "- Landed cost per unit: $%s\n", floatOr(imp.LandedCost.TotalLandedCostUSD, "N/A"))
		fmt.Fprintf(&b, "- Net margin after taxes: %s%%\n", floatOr(imp.LandedCost.NetMarginPct, "?"))
		fmt.Fprintf(&b, "- Tax summary: %s\n\n", imp.TaxSummary)
	} else {
		fmt.Fprintf(&b, "Not yet available — pricing data was insufficient.\n\n")
	}

	market := inputs.Market
	fmt.Fprintf(&b, "## 5. MARKET REPORT\n")
	fmt.Fprintf(&b, "- Competition level: %s\n", market.CompetitionLevel)
	fmt.Fprintf(&b, "- Top competitors: %s\n", joinOr(market.TopCompetitors, "none identified"))
	fmt.Fprintf(&b, "- Best channels: %s\n", joinOr(market.TopChannels, "none identified"))
	fmt.Fprintf(&b, "- Positioning: %s\n", market.PositioningTip)
	fmt.Fprintf(&b, "- Summary: %s\n\n", market.Summary)

	b.WriteString("Produce a comprehensive opportunity assessment with score, risks, and actionable recommendations.")
	return b.String()
}

func seasonalLine(trend *models.TrendReport) string {
	if trend.IsSeasonal {
		return fmt.Sprintf("Yes — peak in %s", stringOr(trend.PeakMonth, "unknown"))
	}
	return "No"
}

func risingQueries(queries []models.TrendQuery) string {
	if len(queries) > 5 {
		queries = queries[:5]
	}
	parts := make([]string, 0, len(queries))
	for _, q := range queries {
		parts = append(parts, fmt.Sprintf("%q (%s)", q.QueryText, q.Value))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func topRegions(regions []models.TrendRegion) string {
	if len(regions) > 5 {
		regions = regions[:5]
	}
	parts := make([]string, 0, len(regions))
	for _, r := range regions {
		parts = append(parts, fmt.Sprintf("%s (%d)", r.RegionName, r.InterestValue))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func floatOr(v *float64, fallback string) string {
	if v == nil {
		return fallback
	}
	return fmt.Sprintf("%g", *v)
}

func stringOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func platformOr(v *models.Platform, fallback string) string {
	if v == nil {
		return fallback
	}
	return string(*v)
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func decodeReport(raw map[string]interface{}) (*models.OpportunityReport, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var report models.OpportunityReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
