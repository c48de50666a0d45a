package models

import "time"

// Market tags assigned to a measured decision outcome. Exactly one applies.
const (
	TagOffensiveWin = "Offensive Win"
	TagDefensiveWin = "Defensive Win"
	TagGap          = "Gap"
	TagMarketDrag   = "Market Drag"
)

// Validation tiers for a measured decision.
const (
	TierExcluded    = "Excluded"
	TierDirectional = "Directional"
	TierValidated   = "Validated"
)

// Confidence levels for aggregated impact.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// WindowMetrics holds the aggregated performance for one comparison window.
type WindowMetrics struct {
	Spend       float64 `json:"spend"`
	Sales       float64 `json:"sales"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// ROAS returns sales/spend for the window, or 0 when there is no spend.
func (w WindowMetrics) ROAS() float64 {
	if w.Spend <= 0 {
		return 0
	}
	return w.Sales / w.Spend
}

// CPC returns spend/clicks for the window, or 0 when there are no clicks.
func (w WindowMetrics) CPC() float64 {
	if w.Clicks <= 0 {
		return 0
	}
	return w.Spend / w.Clicks
}

// ImpactRecord is the measured outcome of one logged decision. It is derived
// from PerformanceRecords plus the Decision and is always recomputable; it is
// never the system of record.
type ImpactRecord struct {
	Decision Decision `json:"decision"`

	Before        WindowMetrics `json:"before"`
	After         WindowMetrics `json:"after"`
	ExpectedAfter WindowMetrics `json:"expected_after"`

	WindowDays          int  `json:"window_days"`
	ActualBeforeDays    int  `json:"actual_before_days"`
	ActualAfterDays     int  `json:"actual_after_days"`
	WindowLowConfidence bool `json:"window_low_confidence,omitempty"`

	ExpectedTrendPct float64 `json:"expected_trend_pct"`
	ActualChangePct  float64 `json:"actual_change_pct"`
	DecisionValuePct float64 `json:"decision_value_pct"`
	DecisionImpact   float64 `json:"decision_impact"`
	SpendAvoided     float64 `json:"spend_avoided"`

	MarketTag        string  `json:"market_tag"`
	MarketDownshift  bool    `json:"market_downshift"`
	ConfidenceWeight float64 `json:"confidence_weight"`
	ValidationTier   string  `json:"validation_tier"`
	IsMature         bool    `json:"is_mature"`
}

// Validated reports whether the record carries a fully validated measurement.
func (r *ImpactRecord) Validated() bool {
	return r.ValidationTier == TierValidated
}

// WeightedImpact is the decision impact scaled by measurement reliability.
func (r *ImpactRecord) WeightedImpact() float64 {
	return r.DecisionImpact * r.ConfidenceWeight
}

// ImpactFilters narrows which ImpactRecords an aggregation considers.
type ImpactFilters struct {
	MatureOnly    bool `json:"mature_only"`
	ValidatedOnly bool `json:"validated_only"`
}

// ImpactSummary is the single source of truth for aggregate impact numbers.
// Every display surface consumes this struct rather than re-deriving totals.
type ImpactSummary struct {
	AttributedImpact   float64 `json:"attributed_impact"`
	DecisionImpact     float64 `json:"decision_impact"`
	DecisionImpactROAS float64 `json:"decision_impact_roas"`

	OffensiveValue float64 `json:"offensive_value"`
	DefensiveValue float64 `json:"defensive_value"`
	GapValue       float64 `json:"gap_value"`

	TotalSpend   float64 `json:"total_spend"`
	SpendAvoided float64 `json:"spend_avoided"`

	TotalDecisions     int `json:"total_decisions"`
	MatureDecisions    int `json:"mature_decisions"`
	OffensiveDecisions int `json:"offensive_decisions"`
	DefensiveDecisions int `json:"defensive_decisions"`
	GapDecisions       int `json:"gap_decisions"`
	DragDecisions      int `json:"drag_decisions"`

	WinRate float64 `json:"win_rate"`

	Confidence        ConfidenceReport `json:"confidence"`
	SavingsConfidence ConfidenceReport `json:"savings_confidence"`

	HorizonDays    int           `json:"horizon_days"`
	FiltersApplied ImpactFilters `json:"filters_applied"`
	ComputedAt     time.Time     `json:"computed_at"`
}

// ConfidenceReport classifies how trustworthy an aggregate number is without
// altering the number itself.
type ConfidenceReport struct {
	Level       string  `json:"level"`
	SignalRatio float64 `json:"signal_ratio"`
	TotalSigma  float64 `json:"total_sigma"`
	Validated   int     `json:"validated"`
}
