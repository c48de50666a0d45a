package impact

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverge/ppc-decision-engine/internal/models"
)

func impactRecord(impact, weight float64, tier string) *models.ImpactRecord {
	return &models.ImpactRecord{
		DecisionImpact:   impact,
		ConfidenceWeight: weight,
		ValidationTier:   tier,
	}
}

// ============================================================================
// ScoreImpact Tests
// ============================================================================

func TestScoreImpact_HighWhenValidatedSignalIsStrong(t *testing.T) {
	var records []*models.ImpactRecord
	for i := 0; i < 30; i++ {
		records = append(records, impactRecord(40, 0.9, models.TierValidated))
	}

	report := ScoreImpact(records)

	// Net impact 1200 against a pooled sigma of sqrt(30)*4.
	assert.Equal(t, models.ConfidenceHigh, report.Level)
	assert.Equal(t, 30, report.Validated)
	assert.InDelta(t, math.Sqrt(480), report.TotalSigma, 1e-9)
	assert.Greater(t, report.SignalRatio, 1.5)
}

func TestScoreImpact_MediumWhenTooFewValidated(t *testing.T) {
	var records []*models.ImpactRecord
	for i := 0; i < 5; i++ {
		records = append(records, impactRecord(100, 0.9, models.TierValidated))
	}

	report := ScoreImpact(records)

	// ratio 500/sqrt(500) is well above the high bar, but only 5
	// validated records cannot earn more than Medium.
	assert.Equal(t, models.ConfidenceMedium, report.Level)
	assert.Equal(t, 5, report.Validated)
	assert.Greater(t, report.SignalRatio, 1.5)
}

func TestScoreImpact_OffsettingImpactsCancel(t *testing.T) {
	records := []*models.ImpactRecord{
		impactRecord(100, 0.5, models.TierValidated),
		impactRecord(-100, 0.5, models.TierValidated),
	}

	report := ScoreImpact(records)

	// The signal is the net signed impact, which is zero here; a portfolio
	// of offsetting bets proves nothing, however large each leg was.
	assert.Equal(t, models.ConfidenceLow, report.Level)
	assert.Zero(t, report.SignalRatio)
	assert.InDelta(t, math.Sqrt(5000), report.TotalSigma, 1e-9)
}

func TestScoreImpact_LowWhenNoiseDominates(t *testing.T) {
	records := []*models.ImpactRecord{
		impactRecord(100, 0.5, models.TierValidated),
		impactRecord(-90, 0.5, models.TierValidated),
	}

	report := ScoreImpact(records)

	// Net impact 10 against sigma sqrt(50^2 + 45^2).
	assert.Equal(t, models.ConfidenceLow, report.Level)
	assert.InDelta(t, 10/math.Sqrt(4525), report.SignalRatio, 1e-9)
}

func TestScoreImpact_DownshiftShareForcesDowngrade(t *testing.T) {
	var records []*models.ImpactRecord
	for i := 0; i < 30; i++ {
		rec := impactRecord(40, 0.9, models.TierValidated)
		rec.MarketDownshift = i < 15
		records = append(records, rec)
	}

	report := ScoreImpact(records)

	// Half the impact came from repriced markets, which caps an otherwise
	// High grade at Medium.
	assert.Equal(t, models.ConfidenceMedium, report.Level)
}

func TestScoreImpact_DownshiftInflatesSigma(t *testing.T) {
	plain := ScoreImpact([]*models.ImpactRecord{
		impactRecord(100, 0.5, models.TierValidated),
	})

	shifted := impactRecord(100, 0.5, models.TierValidated)
	shifted.MarketDownshift = true
	noisy := ScoreImpact([]*models.ImpactRecord{shifted})

	assert.InDelta(t, 50.0, plain.TotalSigma, 1e-9)
	assert.InDelta(t, 65.0, noisy.TotalSigma, 1e-9)
	assert.Less(t, noisy.SignalRatio, plain.SignalRatio)
}

func TestScoreImpact_OnlyValidatedRecordsCount(t *testing.T) {
	records := []*models.ImpactRecord{
		impactRecord(500, 0.5, models.TierDirectional),
		impactRecord(0, 1.0, models.TierExcluded),
	}

	report := ScoreImpact(records)

	assert.Equal(t, models.ConfidenceLow, report.Level)
	assert.Zero(t, report.Validated)
	assert.Zero(t, report.SignalRatio)
	assert.Zero(t, report.TotalSigma)
}

// ============================================================================
// ScoreSavings Tests
// ============================================================================

func savingsRecord(avoided float64, tier string) *models.ImpactRecord {
	return &models.ImpactRecord{
		SpendAvoided:   avoided,
		ValidationTier: tier,
	}
}

func TestScoreSavings_HighWithEnoughValidatedSavers(t *testing.T) {
	var records []*models.ImpactRecord
	for i := 0; i < 10; i++ {
		records = append(records, savingsRecord(100, models.TierValidated))
	}

	report := ScoreSavings(records)

	assert.Equal(t, models.ConfidenceHigh, report.Level)
	assert.Equal(t, 10, report.Validated)
	// sigma per record is 15, so the pooled sigma is sqrt(10)*15.
	assert.InDelta(t, math.Sqrt(10)*15, report.TotalSigma, 1e-9)
}

func TestScoreSavings_MediumWhenTooFewValidated(t *testing.T) {
	records := []*models.ImpactRecord{
		savingsRecord(100, models.TierValidated),
		savingsRecord(100, models.TierValidated),
		savingsRecord(100, models.TierValidated),
	}

	report := ScoreSavings(records)

	assert.Equal(t, models.ConfidenceMedium, report.Level)
	assert.Equal(t, 3, report.Validated)
}

func TestScoreSavings_IgnoresRecordsWithoutSavings(t *testing.T) {
	records := []*models.ImpactRecord{
		impactRecord(500, 1.0, models.TierValidated),
		savingsRecord(0, models.TierValidated),
		savingsRecord(100, models.TierDirectional),
	}

	report := ScoreSavings(records)

	assert.Zero(t, report.Validated)
	assert.Zero(t, report.TotalSigma)
	assert.Equal(t, models.ConfidenceLow, report.Level)
}

func TestScoreSavings_DownshiftShareForcesDowngrade(t *testing.T) {
	var records []*models.ImpactRecord
	for i := 0; i < 10; i++ {
		rec := savingsRecord(100, models.TierValidated)
		rec.MarketDownshift = i < 4
		records = append(records, rec)
	}

	report := ScoreSavings(records)

	assert.Equal(t, models.ConfidenceMedium, report.Level)
}
