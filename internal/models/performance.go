package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceRecord is one week of aggregated search-term performance for a
// single target within an ad group. Rows are keyed by
// (account, week_start, campaign, ad_group, target, match_type); re-uploads
// for the same key sum additively in the store.
type PerformanceRecord struct {
	ID           int             `json:"id"`
	AccountID    string          `json:"account_id"`
	WeekStart    time.Time       `json:"week_start"`
	CampaignName string          `json:"campaign_name"`
	AdGroupName  string          `json:"ad_group_name"`
	TargetText   string          `json:"target_text"`
	SearchTerm   string          `json:"search_term,omitempty"`
	MatchType    string          `json:"match_type"`
	// ReportDate is the last raw report day the row covers. week_start is a
	// bucket label and can trail the data by most of a week; freshness-based
	// gates read this instead.
	ReportDate time.Time `json:"report_date,omitempty"`
	TargetBid    decimal.Decimal `json:"target_bid,omitempty"`
	AdGroupBid   decimal.Decimal `json:"ad_group_bid,omitempty"`
	Spend        decimal.Decimal `json:"spend"`
	Sales        decimal.Decimal `json:"sales"`
	Clicks       int64           `json:"clicks"`
	Impressions  int64           `json:"impressions"`
	Orders       int64           `json:"orders"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ROAS returns sales/spend for the row, or 0 when there is no spend.
func (r *PerformanceRecord) ROAS() float64 {
	spend := r.Spend.InexactFloat64()
	if spend <= 0 {
		return 0
	}
	return r.Sales.InexactFloat64() / spend
}

// CPC returns the observed cost per click, or 0 when there are no clicks.
func (r *PerformanceRecord) CPC() float64 {
	if r.Clicks <= 0 {
		return 0
	}
	return r.Spend.InexactFloat64() / float64(r.Clicks)
}

// AccountHealth is a trailing-30-day account diagnostic snapshot persisted
// after each optimizer run.
type AccountHealth struct {
	AccountID       string          `json:"account_id"`
	HealthScore     float64         `json:"health_score"`
	ROASScore       float64         `json:"roas_score"`
	EfficiencyScore float64         `json:"efficiency_score"`
	CVRScore        float64         `json:"cvr_score"`
	CurrentROAS     float64         `json:"current_roas"`
	WasteRatio      float64         `json:"waste_ratio"`
	WastedSpend     decimal.Decimal `json:"wasted_spend"`
	TotalSpend      decimal.Decimal `json:"total_spend"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ReportIngestedEvent is the Kafka message published by the ingestion service
// once a performance report has been normalized and stored.
type ReportIngestedEvent struct {
	EventType string                  `json:"event_type"`
	Source    string                  `json:"source"`
	Timestamp string                  `json:"timestamp"`
	Data      ReportIngestedEventData `json:"data"`
}

// ReportIngestedEventData identifies the account and date range the upload covered.
type ReportIngestedEventData struct {
	AccountID  string `json:"account_id"`
	ReportType string `json:"report_type,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	RowCount   int    `json:"row_count,omitempty"`
}
