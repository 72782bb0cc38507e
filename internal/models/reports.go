// internal/models/reports.go
package models

// PriceAnalysis is the cross-platform pricing synthesis produced by the
// synthesize-prices stage. All numeric fields are nullable; Summary is
// always present.
type PriceAnalysis struct {
	ID                 string    `json:"id,omitempty"`
	SessionID          string    `json:"session_id,omitempty"`
	WholesaleFloor     *float64  `json:"wholesale_floor"`
	RetailCeiling      *float64  `json:"retail_ceiling"`
	Currency           string    `json:"currency"`
	GrossMarginPctMin  *float64  `json:"gross_margin_pct_min"`
	GrossMarginPctMax  *float64  `json:"gross_margin_pct_max"`
	BestSourcePlatform *Platform `json:"best_source_platform"`
	ArbitrageSignal    *string   `json:"arbitrage_signal"`
	Summary            string    `json:"summary"`
}

// TrendDirection describes the shape of a keyword's interest curve.
type TrendDirection string

const (
	TrendUp        TrendDirection = "up"
	TrendUpRight   TrendDirection = "up_right"
	TrendFlat      TrendDirection = "flat"
	TrendDownRight TrendDirection = "down_right"
	TrendDown      TrendDirection = "down"
)

// TrendQuery is a related search query surfaced by the trends collaborator.
type TrendQuery struct {
	QueryText string `json:"query_text"`
	Type      string `json:"type"` // "rising" or "top"
	Value     string `json:"value"`
}

// TrendRegion is a regional interest entry.
type TrendRegion struct {
	RegionName    string `json:"region_name"`
	RegionCode    string `json:"region_code,omitempty"`
	InterestValue int    `json:"interest_value"`
}

// TrendReport is produced by the external trends collaborator and read by
// the opportunity-scoring stage.
type TrendReport struct {
	ID             string         `json:"id,omitempty"`
	SessionID      string         `json:"session_id,omitempty"`
	Keyword        string         `json:"keyword"`
	Geo            string         `json:"geo"`
	TrendScore     int            `json:"trend_score"` // [0,100]
	TrendDirection TrendDirection `json:"trend_direction"`
	PeakMonth      *string        `json:"peak_month"`
	IsSeasonal     bool           `json:"is_seasonal"`
	Regions        []TrendRegion  `json:"regions"`
	RisingQueries  []TrendQuery   `json:"rising_queries"`
}

// RegulationReport covers import-compliance findings for a session.
type RegulationReport struct {
	ID                     string   `json:"id,omitempty"`
	SessionID              string   `json:"session_id,omitempty"`
	CountryCode            string   `json:"country_code"`
	HSCode                 string   `json:"hs_code"`
	DutyRatePercent        *float64 `json:"duty_rate_percent"`
	RequiredCertifications []string `json:"required_certifications"`
	ProhibitedVariants     []string `json:"prohibited_variants"`
	LabelingRequirements   []string `json:"labeling_requirements"`
	QuotaInfo              *string  `json:"quota_info"`
	LicensingInfo          *string  `json:"licensing_info"`
	Summary                string   `json:"summary"`
}

// LandedCost breaks down the per-unit cost after duties and taxes.
type LandedCost struct {
	TotalLandedCostUSD *float64 `json:"total_landed_cost_usd"`
	NetMarginPct       *float64 `json:"net_margin_pct"`
}

// ImpositiveReport covers taxes, duties and landed cost. It may be absent
// for a session when pricing data was insufficient.
type ImpositiveReport struct {
	ID                *string    `json:"id,omitempty"`
	SessionID         string     `json:"session_id,omitempty"`
	ImportDutyPct     *float64   `json:"import_duty_pct"`
	VATRatePct        *float64   `json:"vat_rate_pct"`
	TotalTaxBurdenPct *float64   `json:"total_tax_burden_pct"`
	LandedCost        LandedCost `json:"landed_cost"`
	TaxSummary        string     `json:"tax_summary"`
}

// MarketReport covers competition findings from the market collaborator.
type MarketReport struct {
	ID               string   `json:"id,omitempty"`
	SessionID        string   `json:"session_id,omitempty"`
	CountryCode      string   `json:"country_code"`
	CompetitionLevel string   `json:"competition_level"` // low | medium | high | very_high
	TopCompetitors   []string `json:"top_competitors"`
	TopChannels      []string `json:"top_channels"`
	PositioningTip   string   `json:"positioning_tip"`
	Summary          string   `json:"summary"`
}

// OpportunityReport is the terminal artifact of a research session.
type OpportunityReport struct {
	ID                 string    `json:"id,omitempty"`
	SessionID          string    `json:"session_id,omitempty"`
	OpportunityScore   float64   `json:"opportunity_score"` // [0,100]
	EstimatedMarginPct *float64  `json:"estimated_margin_pct"`
	BestSourcePlatform *Platform `json:"best_source_platform"`
	BestLaunchMonth    *string   `json:"best_launch_month"`
	KeywordGaps        []string  `json:"keyword_gaps"`
	VariantSuggestions []string  `json:"variant_suggestions"`
	RiskFlags          []string  `json:"risk_flags"`
	OverallVerdict     string    `json:"overall_verdict"`
}
