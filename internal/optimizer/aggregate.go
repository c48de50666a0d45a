package optimizer

import (
	"sort"
	"strings"

	"github.com/adverge/ppc-decision-engine/internal/models"
)

// TargetAggregate is one target's performance summed across the run window.
// The bid engine prices aggregates, not weekly rows.
type TargetAggregate struct {
	AccountID    string
	CampaignName string
	AdGroupName  string
	TargetText   string
	MatchType    string
	Bucket       string

	TargetBid  float64
	AdGroupBid float64

	Spend       float64
	Sales       float64
	Clicks      int64
	Impressions int64
	Orders      int64

	// Weeks counts distinct week_start values seen for the target.
	Weeks int
}

// ROAS returns sales/spend for the aggregate, or 0 when there is no spend.
func (t *TargetAggregate) ROAS() float64 {
	if t.Spend <= 0 {
		return 0
	}
	return t.Sales / t.Spend
}

// CPC returns spend/clicks for the aggregate, or 0 when there are no clicks.
func (t *TargetAggregate) CPC() float64 {
	if t.Clicks <= 0 {
		return 0
	}
	return t.Spend / float64(t.Clicks)
}

// DataDays approximates how long the target has been collecting data.
func (t *TargetAggregate) DataDays() int {
	return t.Weeks * 7
}

// AdGroupAggregate is an ad group's rolled-up performance, used as the
// fallback signal when a single target lacks clicks.
type AdGroupAggregate struct {
	CampaignName string
	AdGroupName  string
	Spend        float64
	Sales        float64
	Clicks       int64
}

// ROAS returns sales/spend for the ad group, or 0 when there is no spend.
func (a *AdGroupAggregate) ROAS() float64 {
	if a.Spend <= 0 {
		return 0
	}
	return a.Sales / a.Spend
}

// AggregateTargets sums weekly rows into per-target aggregates. Rows carrying
// a search term are aggregated by target; search-term granularity is handled
// separately by harvest and negative selection.
func AggregateTargets(records []*models.PerformanceRecord) []*TargetAggregate {
	byKey := make(map[string]*TargetAggregate)
	weeksSeen := make(map[string]map[string]bool)

	for _, rec := range records {
		key := strings.Join([]string{
			rec.CampaignName, rec.AdGroupName,
			strings.ToLower(strings.TrimSpace(rec.TargetText)), strings.ToLower(rec.MatchType),
		}, "|")

		agg, ok := byKey[key]
		if !ok {
			agg = &TargetAggregate{
				AccountID:    rec.AccountID,
				CampaignName: rec.CampaignName,
				AdGroupName:  rec.AdGroupName,
				TargetText:   rec.TargetText,
				MatchType:    rec.MatchType,
				Bucket:       Classify(rec),
			}
			byKey[key] = agg
			weeksSeen[key] = make(map[string]bool)
		}

		agg.Spend += rec.Spend.InexactFloat64()
		agg.Sales += rec.Sales.InexactFloat64()
		agg.Clicks += rec.Clicks
		agg.Impressions += rec.Impressions
		agg.Orders += rec.Orders
		weeksSeen[key][rec.WeekStart.Format("2006-01-02")] = true

		// Bids come from report rows; the latest non-zero value wins.
		if bid := rec.TargetBid.InexactFloat64(); bid > 0 {
			agg.TargetBid = bid
		}
		if bid := rec.AdGroupBid.InexactFloat64(); bid > 0 {
			agg.AdGroupBid = bid
		}
	}

	aggregates := make([]*TargetAggregate, 0, len(byKey))
	for key, agg := range byKey {
		agg.Weeks = len(weeksSeen[key])
		aggregates = append(aggregates, agg)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].CampaignName != aggregates[j].CampaignName {
			return aggregates[i].CampaignName < aggregates[j].CampaignName
		}
		if aggregates[i].AdGroupName != aggregates[j].AdGroupName {
			return aggregates[i].AdGroupName < aggregates[j].AdGroupName
		}
		return aggregates[i].TargetText < aggregates[j].TargetText
	})
	return aggregates
}

// SearchTermAggregate is one customer search term's performance summed
// across the run window within a single ad group. Harvest and negative
// selection operate at this granularity.
type SearchTermAggregate struct {
	AccountID    string
	CampaignName string
	AdGroupName  string
	TargetText   string
	SearchTerm   string
	MatchType    string
	Bucket       string

	Spend  float64
	Sales  float64
	Clicks int64
	Orders int64
}

// ROAS returns sales/spend for the term, or 0 when there is no spend.
func (s *SearchTermAggregate) ROAS() float64 {
	if s.Spend <= 0 {
		return 0
	}
	return s.Sales / s.Spend
}

// CPC returns spend/clicks for the term, or 0 when there are no clicks.
func (s *SearchTermAggregate) CPC() float64 {
	if s.Clicks <= 0 {
		return 0
	}
	return s.Spend / float64(s.Clicks)
}

// AggregateSearchTerms sums rows that carry a customer search term, keyed by
// (campaign, ad group, term).
func AggregateSearchTerms(records []*models.PerformanceRecord) []*SearchTermAggregate {
	byKey := make(map[string]*SearchTermAggregate)

	for _, rec := range records {
		term := strings.ToLower(strings.TrimSpace(rec.SearchTerm))
		if term == "" {
			continue
		}
		key := strings.Join([]string{rec.CampaignName, rec.AdGroupName, term}, "|")

		agg, ok := byKey[key]
		if !ok {
			agg = &SearchTermAggregate{
				AccountID:    rec.AccountID,
				CampaignName: rec.CampaignName,
				AdGroupName:  rec.AdGroupName,
				TargetText:   rec.TargetText,
				SearchTerm:   term,
				MatchType:    rec.MatchType,
				Bucket:       Classify(rec),
			}
			byKey[key] = agg
		}
		agg.Spend += rec.Spend.InexactFloat64()
		agg.Sales += rec.Sales.InexactFloat64()
		agg.Clicks += rec.Clicks
		agg.Orders += rec.Orders
	}

	terms := make([]*SearchTermAggregate, 0, len(byKey))
	for _, agg := range byKey {
		terms = append(terms, agg)
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].CampaignName != terms[j].CampaignName {
			return terms[i].CampaignName < terms[j].CampaignName
		}
		if terms[i].AdGroupName != terms[j].AdGroupName {
			return terms[i].AdGroupName < terms[j].AdGroupName
		}
		return terms[i].SearchTerm < terms[j].SearchTerm
	})
	return terms
}

// AggregateAdGroups rolls targets up to ad-group level.
func AggregateAdGroups(aggregates []*TargetAggregate) map[string]*AdGroupAggregate {
	groups := make(map[string]*AdGroupAggregate)
	for _, t := range aggregates {
		key := t.CampaignName + "|" + t.AdGroupName
		g, ok := groups[key]
		if !ok {
			g = &AdGroupAggregate{CampaignName: t.CampaignName, AdGroupName: t.AdGroupName}
			groups[key] = g
		}
		g.Spend += t.Spend
		g.Sales += t.Sales
		g.Clicks += t.Clicks
	}
	return groups
}
