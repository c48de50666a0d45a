package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverge/ppc-decision-engine/internal/models"
)

func taggedRecord(impact, weight float64, tag, tier string) *models.ImpactRecord {
	return &models.ImpactRecord{
		DecisionImpact:   impact,
		ConfidenceWeight: weight,
		MarketTag:        tag,
		ValidationTier:   tier,
		IsMature:         true,
	}
}

// ============================================================================
// Summarize Tests
// ============================================================================

func TestSummarize_MarketDragExcludedFromAttribution(t *testing.T) {
	records := []*models.ImpactRecord{
		taggedRecord(100, 1.0, models.TagOffensiveWin, models.TierValidated),
		taggedRecord(50, 1.0, models.TagDefensiveWin, models.TierValidated),
		taggedRecord(-30, 1.0, models.TagGap, models.TierValidated),
		taggedRecord(-200, 1.0, models.TagMarketDrag, models.TierValidated),
	}

	s := Summarize(records, models.ImpactFilters{}, 14)

	// The drag record counts as a decision but its -200 never reaches the
	// attributed total.
	assert.InDelta(t, 120.0, s.AttributedImpact, 1e-9)
	assert.InDelta(t, -80.0, s.DecisionImpact, 1e-9)
	assert.Equal(t, 4, s.TotalDecisions)
	assert.Equal(t, 1, s.DragDecisions)
	assert.InDelta(t, 100.0, s.OffensiveValue, 1e-9)
	assert.InDelta(t, 50.0, s.DefensiveValue, 1e-9)
	assert.InDelta(t, -30.0, s.GapValue, 1e-9)
}

func TestSummarize_WinRateCountsOnlyWins(t *testing.T) {
	records := []*models.ImpactRecord{
		taggedRecord(100, 1.0, models.TagOffensiveWin, models.TierValidated),
		taggedRecord(50, 1.0, models.TagDefensiveWin, models.TierValidated),
		taggedRecord(-30, 1.0, models.TagGap, models.TierValidated),
		taggedRecord(-10, 1.0, models.TagMarketDrag, models.TierValidated),
	}

	s := Summarize(records, models.ImpactFilters{}, 14)

	assert.InDelta(t, 0.5, s.WinRate, 1e-9)
}

func TestSummarize_ConfidenceWeightScalesImpact(t *testing.T) {
	records := []*models.ImpactRecord{
		taggedRecord(90, 1.0/3.0, models.TagOffensiveWin, models.TierDirectional),
	}

	s := Summarize(records, models.ImpactFilters{}, 14)

	assert.InDelta(t, 30.0, s.AttributedImpact, 1e-9)
}

func TestSummarize_ExcludedRecordsCountedButNotSummed(t *testing.T) {
	excluded := &models.ImpactRecord{
		DecisionImpact:   0,
		ConfidenceWeight: 1.0,
		ValidationTier:   models.TierExcluded,
		SpendAvoided:     40,
		After:            models.WindowMetrics{Spend: 25},
	}
	records := []*models.ImpactRecord{
		excluded,
		taggedRecord(60, 1.0, models.TagOffensiveWin, models.TierValidated),
	}

	s := Summarize(records, models.ImpactFilters{}, 14)

	assert.Equal(t, 2, s.TotalDecisions)
	assert.InDelta(t, 60.0, s.AttributedImpact, 1e-9)
	// Spend and savings still accrue from excluded records.
	assert.InDelta(t, 25.0, s.TotalSpend, 1e-9)
	assert.InDelta(t, 40.0, s.SpendAvoided, 1e-9)
}

func TestSummarize_MatureOnlyFilter(t *testing.T) {
	young := taggedRecord(500, 1.0, models.TagOffensiveWin, models.TierValidated)
	young.IsMature = false
	records := []*models.ImpactRecord{
		young,
		taggedRecord(60, 1.0, models.TagOffensiveWin, models.TierValidated),
	}

	s := Summarize(records, models.ImpactFilters{MatureOnly: true}, 14)

	assert.Equal(t, 1, s.TotalDecisions)
	assert.Equal(t, 1, s.MatureDecisions)
	assert.InDelta(t, 60.0, s.AttributedImpact, 1e-9)
	assert.True(t, s.FiltersApplied.MatureOnly)
}

func TestSummarize_ValidatedOnlyFilter(t *testing.T) {
	records := []*models.ImpactRecord{
		taggedRecord(80, 0.5, models.TagOffensiveWin, models.TierDirectional),
		taggedRecord(60, 1.0, models.TagDefensiveWin, models.TierValidated),
	}

	s := Summarize(records, models.ImpactFilters{ValidatedOnly: true}, 14)

	assert.Equal(t, 1, s.TotalDecisions)
	assert.InDelta(t, 60.0, s.AttributedImpact, 1e-9)
	assert.InDelta(t, 1.0, s.WinRate, 1e-9)
}

func TestSummarize_ROASFromAttributedOverSpend(t *testing.T) {
	rec := taggedRecord(150, 1.0, models.TagOffensiveWin, models.TierValidated)
	rec.After = models.WindowMetrics{Spend: 50}

	s := Summarize([]*models.ImpactRecord{rec}, models.ImpactFilters{}, 14)

	assert.InDelta(t, 3.0, s.DecisionImpactROAS, 1e-9)
}

func TestSummarize_AttachesBothConfidenceReports(t *testing.T) {
	var records []*models.ImpactRecord
	for i := 0; i < 30; i++ {
		rec := taggedRecord(40, 0.9, models.TagOffensiveWin, models.TierValidated)
		rec.SpendAvoided = 20
		records = append(records, rec)
	}

	s := Summarize(records, models.ImpactFilters{}, 14)

	assert.Equal(t, models.ConfidenceHigh, s.Confidence.Level)
	assert.Equal(t, models.ConfidenceHigh, s.SavingsConfidence.Level)
	assert.Equal(t, 14, s.HorizonDays)
	assert.False(t, s.ComputedAt.IsZero())
}

func TestSummarize_EmptyInput(t *testing.T) {
	s := Summarize(nil, models.ImpactFilters{}, 14)

	assert.Zero(t, s.TotalDecisions)
	assert.Zero(t, s.AttributedImpact)
	assert.Zero(t, s.WinRate)
	assert.Equal(t, models.ConfidenceLow, s.Confidence.Level)
}
