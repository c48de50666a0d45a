package impact

import (
	"time"

	"github.com/adverge/ppc-decision-engine/internal/models"
)

// Summarize reduces impact records into the account's single aggregate view.
// Market Drag records count toward decision totals but never toward
// attributed impact: falling with the market is not something the engine
// takes credit or blame for.
func Summarize(records []*models.ImpactRecord, filters models.ImpactFilters, horizonDays int) *models.ImpactSummary {
	s := &models.ImpactSummary{
		HorizonDays:    horizonDays,
		FiltersApplied: filters,
		ComputedAt:     time.Now().UTC(),
	}

	wins := 0
	tagged := 0

	for _, rec := range records {
		if filters.MatureOnly && !rec.IsMature {
			continue
		}
		if filters.ValidatedOnly && !rec.Validated() {
			continue
		}

		s.TotalDecisions++
		if rec.IsMature {
			s.MatureDecisions++
		}
		if rec.MarketTag != models.TagMarketDrag {
			s.TotalSpend += rec.After.Spend
		}
		s.SpendAvoided += rec.SpendAvoided

		if rec.ValidationTier == models.TierExcluded {
			continue
		}

		impact := rec.WeightedImpact()
		s.DecisionImpact += impact

		switch rec.MarketTag {
		case models.TagOffensiveWin:
			s.OffensiveDecisions++
			s.OffensiveValue += impact
			s.AttributedImpact += impact
			wins++
			tagged++
		case models.TagDefensiveWin:
			s.DefensiveDecisions++
			s.DefensiveValue += impact
			s.AttributedImpact += impact
			wins++
			tagged++
		case models.TagGap:
			s.GapDecisions++
			s.GapValue += impact
			s.AttributedImpact += impact
			tagged++
		case models.TagMarketDrag:
			s.DragDecisions++
			tagged++
		}
	}

	if s.TotalSpend > 0 {
		s.DecisionImpactROAS = s.AttributedImpact / s.TotalSpend
	}
	if tagged > 0 {
		s.WinRate = float64(wins) / float64(tagged)
	}

	s.Confidence = ScoreImpact(records)
	s.SavingsConfidence = ScoreSavings(records)
	return s
}
