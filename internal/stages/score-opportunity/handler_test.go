// internal/stages/score-opportunity/handler_test.go
package scoreopportunity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/models"
)

type fakeCompleter struct {
	calls    int
	lastUser string
	result   map[string]interface{}
	err      error
}

func (f *fakeCompleter) StructuredComplete(ctx context.Context, system, user string, schema map[string]interface{}, maxTokens int) (map[string]interface{}, error) {
	f.calls++
	f.lastUser = user
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func sampleInputs() *Inputs {
	floor, ceiling := 3.20, 24.99
	marginMin, marginMax := 80.0, 87.0
	platform := models.PlatformAlibaba
	peak := "November"
	duty := 4.5
	netMargin := 61.0
	landed := 9.80

	return &Inputs{
		PriceAnalysis: &models.PriceAnalysis{
			WholesaleFloor:     &floor,
			RetailCeiling:      &ceiling,
			Currency:           "USD",
			GrossMarginPctMin:  &marginMin,
			GrossMarginPctMax:  &marginMax,
			BestSourcePlatform: &platform,
			Summary:            "Wide spread between wholesale and retail.",
		},
		Trend: &models.TrendReport{
			Keyword:        "wireless earbuds",
			Geo:            "US",
			TrendScore:     72,
			TrendDirection: models.TrendUpRight,
			PeakMonth:      &peak,
			IsSeasonal:     true,
			RisingQueries: []models.TrendQuery{
				{QueryText: "wireless earbuds noise cancelling", Type: "rising", Value: "+250%"},
			},
			Regions: []models.TrendRegion{
				{RegionName: "California", InterestValue: 100},
			},
		},
		Regulation: &models.RegulationReport{
			CountryCode:            "US",
			HSCode:                 "851830",
			DutyRatePercent:        &duty,
			RequiredCertifications: []string{"FCC"},
			ProhibitedVariants:     []string{},
			LabelingRequirements:   []string{"FCC ID marking"},
			Summary:                "Standard electronics compliance.",
		},
		Impositive: &models.ImpositiveReport{
			ImportDutyPct: &duty,
			LandedCost: models.LandedCost{
				TotalLandedCostUSD: &landed,
				NetMarginPct:       &netMargin,
			},
			TaxSummary: "Moderate tax burden.",
		},
		Market: &models.MarketReport{
			CountryCode:      "US",
			CompetitionLevel: "high",
			TopCompetitors:   []string{"Anker", "JLab"},
			TopChannels:      []string{"Amazon"},
			PositioningTip:   "Compete on battery life.",
			Summary:          "Crowded but growing market.",
		},
	}
}

func TestExecute_SynthesizesAssessment(t *testing.T) {
	margin := 61.0
	completer := &fakeCompleter{result: map[string]interface{}{
		"opportunity_score":    74.0,
		"estimated_margin_pct": margin,
		"best_source_platform": "alibaba",
		"best_launch_month":    "November",
		"keyword_gaps":         []interface{}{"wireless earbuds noise cancelling"},
		"variant_suggestions":  []interface{}{"sport fit variant"},
		"risk_flags":           []interface{}{"high competition"},
		"overall_verdict":      "Good opportunity with caveats. Source from Alibaba and launch ahead of the November peak.",
	}}
	handler := NewHandler(&Config{MaxTokens: 3072}, completer, logger.NewTestLogger(t))

	report := handler.Execute(context.Background(), sampleInputs())
	require.NotNil(t, report)

	assert.Equal(t, 1, completer.calls)
	assert.InDelta(t, 74.0, report.OpportunityScore, 0.001)
	require.NotNil(t, report.EstimatedMarginPct)
	assert.InDelta(t, 61.0, *report.EstimatedMarginPct, 0.001)
	require.NotNil(t, report.BestSourcePlatform)
	assert.Equal(t, models.PlatformAlibaba, *report.BestSourcePlatform)
	assert.Equal(t, []string{"high competition"}, report.RiskFlags)
}

func TestExecute_FailureYieldsDegradedReport(t *testing.T) {
	// Scoring never propagates an error; a failed synthesis produces a
	// mid-score report flagged for manual review.
	completer := &fakeCompleter{err: apperrors.NewCompletionFailedError("status 400")}
	handler := NewHandler(&Config{MaxTokens: 3072}, completer, logger.NewTestLogger(t))

	inputs := sampleInputs()
	report := handler.Execute(context.Background(), inputs)
	require.NotNil(t, report)

	assert.InDelta(t, 50.0, report.OpportunityScore, 0.001)
	assert.Equal(t, []string{FallbackRiskFlag}, report.RiskFlags)
	assert.Empty(t, report.KeywordGaps)
	assert.Empty(t, report.VariantSuggestions)
	assert.Equal(t, fallbackVerdict, report.OverallVerdict)

	// Carried forward from the upstream reports.
	require.NotNil(t, report.EstimatedMarginPct)
	assert.InDelta(t, 80.0, *report.EstimatedMarginPct, 0.001)
	require.NotNil(t, report.BestSourcePlatform)
	assert.Equal(t, models.PlatformAlibaba, *report.BestSourcePlatform)
	require.NotNil(t, report.BestLaunchMonth)
	assert.Equal(t, "November", *report.BestLaunchMonth)
}

func TestExecute_UndecodableResultYieldsDegradedReport(t *testing.T) {
	completer := &fakeCompleter{result: map[string]interface{}{
		"opportunity_score": "not a number",
	}}
	handler := NewHandler(&Config{MaxTokens: 3072}, completer, logger.NewTestLogger(t))

	report := handler.Execute(context.Background(), sampleInputs())
	require.NotNil(t, report)
	assert.InDelta(t, 50.0, report.OpportunityScore, 0.001)
	assert.Equal(t, []string{FallbackRiskFlag}, report.RiskFlags)
}

func TestBuildUserPrompt_RendersAllFiveReports(t *testing.T) {
	prompt := buildUserPrompt(sampleInputs())

	assert.Contains(t, prompt, "## 1. PRICE ANALYSIS")
	assert.Contains(t, prompt, "Wholesale floor: $3.2")
	assert.Contains(t, prompt, "Gross margin range: 80% – 87%")
	assert.Contains(t, prompt, "Arbitrage signal: none")

	assert.Contains(t, prompt, "## 2. TREND REPORT")
	assert.Contains(t, prompt, `"wireless earbuds noise cancelling" (+250%)`)
	assert.Contains(t, prompt, "Seasonal: Yes — peak in November")

	assert.Contains(t, prompt, "## 3. REGULATION REPORT")
	assert.Contains(t, prompt, "Duty rate: 4.5%")
	assert.Contains(t, prompt, "Prohibited variants: none identified")
	assert.Contains(t, prompt, "Licensing: none required")

	assert.Contains(t, prompt, "## 4. IMPOSITIVE REPORT")
	assert.Contains(t, prompt, "Net margin after taxes: 61%")

	assert.Contains(t, prompt, "## 5. MARKET REPORT")
	assert.Contains(t, prompt, "Competition level: high")
	assert.Contains(t, prompt, "Top competitors: Anker, JLab")
}

func TestBuildUserPrompt_MissingImpositiveReport(t *testing.T) {
	inputs := sampleInputs()
	inputs.Impositive = nil

	prompt := buildUserPrompt(inputs)
	assert.Contains(t, prompt, "Not yet available — pricing data was insufficient.")
	assert.NotContains(t, prompt, "Landed cost per unit")
}
