package impact

import (
	"math"

	"github.com/adverge/ppc-decision-engine/internal/models"
)

// ScoreImpact grades how trustworthy the aggregate sales impact is. Only
// validated records count; the signal is the net signed impact across them,
// so offsetting wins and losses cancel instead of inflating confidence. Each
// record contributes uncertainty proportional to the impact it could not
// validate; records whose market repriced under them get extra noise since
// the counterfactual CPC no longer holds.
func ScoreImpact(records []*models.ImpactRecord) models.ConfidenceReport {
	const (
		downshiftNoise = 1.3
		highRatio      = 1.5
		mediumRatio    = 0.8
		minValidated   = 30
		downshiftShare = 0.40
	)

	var total, totalVar, downshiftAbs float64
	validated := 0

	for _, rec := range records {
		if !rec.Validated() {
			continue
		}
		validated++
		total += rec.DecisionImpact

		sigma := math.Abs(rec.DecisionImpact) * (1 - rec.ConfidenceWeight)
		if rec.MarketDownshift {
			sigma *= downshiftNoise
			downshiftAbs += math.Abs(rec.DecisionImpact)
		}
		totalVar += sigma * sigma
	}

	totalSigma := math.Sqrt(totalVar)
	report := models.ConfidenceReport{
		TotalSigma: totalSigma,
		Validated:  validated,
	}
	if totalSigma > 0 {
		report.SignalRatio = math.Abs(total) / totalSigma
	}

	switch {
	case report.SignalRatio >= highRatio && validated >= minValidated:
		report.Level = models.ConfidenceHigh
	case report.SignalRatio >= mediumRatio:
		report.Level = models.ConfidenceMedium
	default:
		report.Level = models.ConfidenceLow
	}

	if total != 0 && downshiftAbs/math.Abs(total) > downshiftShare {
		report.Level = downgrade(report.Level)
	}
	return report
}

// ScoreSavings grades the spend-avoided aggregate. Savings estimates carry a
// flat relative variance since they project a spend rate, not a conversion
// rate, and the bar for High is lower than for sales impact.
func ScoreSavings(records []*models.ImpactRecord) models.ConfidenceReport {
	const (
		normalVariance    = 0.15
		downshiftVariance = 0.25
		highRatio         = 2.0
		mediumRatio       = 1.0
		minValidated      = 10
		downshiftShare    = 0.30
	)

	var total, totalVar, downshiftAbs float64
	validated := 0

	for _, rec := range records {
		if !rec.Validated() || rec.SpendAvoided <= 0 {
			continue
		}
		validated++
		total += rec.SpendAvoided

		variance := normalVariance
		if rec.MarketDownshift {
			variance = downshiftVariance
			downshiftAbs += rec.SpendAvoided
		}
		sigma := rec.SpendAvoided * variance
		totalVar += sigma * sigma
	}

	totalSigma := math.Sqrt(totalVar)
	report := models.ConfidenceReport{
		TotalSigma: totalSigma,
		Validated:  validated,
	}
	if totalSigma > 0 {
		report.SignalRatio = total / totalSigma
	}

	switch {
	case report.SignalRatio >= highRatio && validated >= minValidated:
		report.Level = models.ConfidenceHigh
	case report.SignalRatio >= mediumRatio:
		report.Level = models.ConfidenceMedium
	default:
		report.Level = models.ConfidenceLow
	}

	if total > 0 && downshiftAbs/total > downshiftShare {
		report.Level = downgrade(report.Level)
	}
	return report
}

func downgrade(level string) string {
	switch level {
	case models.ConfidenceHigh:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
