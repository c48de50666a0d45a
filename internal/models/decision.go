package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision types emitted by the optimizer.
const (
	DecisionBidChange = "BID_CHANGE"
	DecisionNegative  = "NEGATIVE"
	DecisionHarvest   = "HARVEST"
	DecisionHold      = "HOLD"
)

// Decision is a single appended row in the decision log. Decisions are
// immutable once logged; a later run supersedes a decision by appending a
// newer one for the same target. The log deduplicates on
// (account, decision_date, target, type, campaign).
type Decision struct {
	ID           int             `json:"id"`
	AccountID    string          `json:"account_id"`
	BatchID      string          `json:"batch_id"`
	EmittedAt    time.Time       `json:"emitted_at"`
	DecisionType string          `json:"decision_type"`
	CampaignName string          `json:"campaign_name"`
	AdGroupName  string          `json:"ad_group_name"`
	TargetText   string          `json:"target_text"`
	MatchType    string          `json:"match_type"`
	OldValue     decimal.Decimal `json:"old_value,omitempty"`
	NewValue     decimal.Decimal `json:"new_value,omitempty"`
	Reason       string          `json:"reason"`
	IsASIN       bool            `json:"is_asin,omitempty"`

	// Harvest provenance, populated only for HARVEST decisions.
	Harvest *HarvestMetadata `json:"harvest,omitempty"`
}

// HarvestMetadata records where a promoted term came from and where it went.
type HarvestMetadata struct {
	WinnerSourceCampaign string `json:"winner_source_campaign"`
	WinnerSourceAdGroup  string `json:"winner_source_ad_group,omitempty"`
	NewCampaignName      string `json:"new_campaign_name"`
	BeforeMatchType      string `json:"before_match_type"`
	AfterMatchType       string `json:"after_match_type"`
}

// DecisionBatchEvent is published after a run's decisions are appended.
type DecisionBatchEvent struct {
	EventType string                 `json:"event_type"`
	Source    string                 `json:"source"`
	Timestamp string                 `json:"timestamp"`
	Data      DecisionBatchEventData `json:"data"`
}

// DecisionBatchEventData summarizes an appended batch.
type DecisionBatchEventData struct {
	AccountID  string         `json:"account_id"`
	BatchID    string         `json:"batch_id"`
	Appended   int            `json:"appended"`
	Duplicates int            `json:"duplicates"`
	ByType     map[string]int `json:"by_type"`
}
