// internal/stages/score-opportunity/models.go
package scoreopportunity

import "opportunity-research/internal/models"

// Inputs bundles the five upstream reports the assessment is built
// from. Impositive may be nil when pricing data was insufficient for
// the tax collaborator to run.
type Inputs struct {
	PriceAnalysis *models.PriceAnalysis
	Trend         *models.TrendReport
	Regulation    *models.RegulationReport
	Impositive    *models.ImpositiveReport
	Market        *models.MarketReport
}

// FallbackRiskFlag marks a degraded report produced when the synthesis
// call failed.
const FallbackRiskFlag = "Opportunity analysis could not be fully synthesized — review sub-reports manually"

const fallbackVerdict = "The opportunity scoring engine encountered an error. Please review the individual price, trend, regulation, and market reports to form your own assessment."

// opportunityReportSchema is the output contract enforced on the
// completion provider's parsed object before it is decoded into an
// OpportunityReport.
var opportunityReportSchema = map[string]interface{}{
	"type": "object",
	"required": []string{
		"opportunity_score",
		"estimated_margin_pct",
		"best_source_platform",
		"best_launch_month",
		"keyword_gaps",
		"variant_suggestions",
		"risk_flags",
		"overall_verdict",
	},
	"properties": map[string]interface{}{
		"opportunity_score": map[string]interface{}{
			"type":    "number",
			"minimum": 0,
			"maximum": 100,
		},
		"estimated_margin_pct": map[string]interface{}{
			"type": []string{"number", "null"},
		},
		"best_source_platform": map[string]interface{}{
			"enum": []interface{}{"alibaba", "amazon", "ebay", "walmart", "google_shopping", nil},
		},
		"best_launch_month": map[string]interface{}{
			"type": []string{"string", "null"},
		},
		"keyword_gaps": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"variant_suggestions": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"risk_flags": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"overall_verdict": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
	},
}
