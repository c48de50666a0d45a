package optimizer

import (
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/shopspring/decimal"
)

func testOptimizerConfig() *config.OptimizerConfig {
	return &config.OptimizerConfig{
		TargetROAS:       2.5,
		UpThrottle:       0.50,
		DownThrottle:     0.50,
		MaxBidChangePct:  0.25,
		MinBidFloor:      0.30,
		MinBidMultiplier: 0.50,
		MaxBidMultiplier: 3.00,

		CVRFloor:   0.01,
		CVRCeiling: 0.20,

		SoftNegativeFloor: 10,
		HardStopFloor:     15,
		HardStopMult:      3.0,

		HarvestClicks:     10,
		HarvestROASMult:   1.2,
		HarvestLaunchMult: 1.1,

		DedupeSimilarity: 0.85,

		BenchmarkWinsorPct:  99,
		BenchmarkSpendFloor: 5.0,

		MinClicksExact:  5,
		MinClicksPT:     5,
		MinClicksBroad:  8,
		MinClicksAuto:   8,
		MinClicksObserv: 10,

		VisibilityMinDays:        14,
		VisibilityMaxImpressions: 100,
		VisibilityBoostPct:       0.30,
	}
}

func testBenchmarks(universal float64) *Benchmarks {
	return &Benchmarks{
		UniversalROAS: universal,
		FromData:      true,
		AccountCVR:    0.10,
		bucketROAS:    map[string]float64{},
		bucketCVR:     map[string]float64{},
	}
}

func perfRow(week time.Time, campaign, adGroup, target, matchType string, spend, sales float64, clicks, impressions, orders int64) *models.PerformanceRecord {
	return &models.PerformanceRecord{
		AccountID:    "acct-1",
		WeekStart:    week,
		CampaignName: campaign,
		AdGroupName:  adGroup,
		TargetText:   target,
		MatchType:    matchType,
		Spend:        decimal.NewFromFloat(spend),
		Sales:        decimal.NewFromFloat(sales),
		Clicks:       clicks,
		Impressions:  impressions,
		Orders:       orders,
	}
}

func termRow(week time.Time, campaign, adGroup, target, term, matchType string, spend, sales float64, clicks, orders int64) *models.PerformanceRecord {
	rec := perfRow(week, campaign, adGroup, target, matchType, spend, sales, clicks, 0, orders)
	rec.SearchTerm = term
	return rec
}

func week(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
