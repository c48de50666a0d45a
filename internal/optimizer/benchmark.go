package optimizer

import (
	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
)

// Benchmarks holds the baselines a run prices against. They are computed
// once per run from the account's own data so a seasonal account is judged
// against itself, not a global constant.
type Benchmarks struct {
	// UniversalROAS is the account-wide baseline. FromData is false when the
	// account had too few priced rows and the configured target was used.
	UniversalROAS float64
	FromData      bool

	// AccountCVR is the blended conversion rate, clipped to sane bounds.
	AccountCVR float64

	bucketROAS map[string]float64
	bucketCVR  map[string]float64
}

const minUniversalRows = 10

// ComputeBenchmarks derives the run baselines from raw performance rows.
func ComputeBenchmarks(cfg *config.OptimizerConfig, records []*models.PerformanceRecord) *Benchmarks {
	b := &Benchmarks{
		bucketROAS: make(map[string]float64),
		bucketCVR:  make(map[string]float64),
	}

	var pricedROAS []float64
	byBucket := make(map[string][]*models.PerformanceRecord)
	var totalClicks, totalOrders int64

	for _, rec := range records {
		bucket := Classify(rec)
		byBucket[bucket] = append(byBucket[bucket], rec)
		totalClicks += rec.Clicks
		totalOrders += rec.Orders
		if rec.Spend.InexactFloat64() >= cfg.BenchmarkSpendFloor {
			pricedROAS = append(pricedROAS, rec.ROAS())
		}
	}

	if len(pricedROAS) >= minUniversalRows {
		b.UniversalROAS = winsorizedMedian(pricedROAS, cfg.BenchmarkWinsorPct)
		b.FromData = true
	} else {
		b.UniversalROAS = cfg.TargetROAS
	}

	b.AccountCVR = clippedCVR(cfg, totalOrders, totalClicks)

	for bucket, rows := range byBucket {
		b.bucketROAS[bucket] = bucketBaseline(cfg, rows, b.UniversalROAS)
		var clicks, orders int64
		for _, rec := range rows {
			clicks += rec.Clicks
			orders += rec.Orders
		}
		b.bucketCVR[bucket] = clippedCVR(cfg, orders, clicks)
	}

	return b
}

// TargetROAS returns the baseline a bucket's bids are priced against.
func (b *Benchmarks) TargetROAS(bucket string) float64 {
	if v, ok := b.bucketROAS[bucket]; ok && v > 0 {
		return v
	}
	return b.UniversalROAS
}

// CVR returns the conversion rate benchmark for a bucket, falling back to
// the account-wide rate for buckets with no rows.
func (b *Benchmarks) CVR(bucket string) float64 {
	if v, ok := b.bucketCVR[bucket]; ok && v > 0 {
		return v
	}
	return b.AccountCVR
}

// bucketBaseline accepts a bucket's own spend-weighted ROAS only when the
// bucket has enough spending rows and the result is not implausibly above the
// universal baseline. Rejected buckets price against the universal baseline.
func bucketBaseline(cfg *config.OptimizerConfig, rows []*models.PerformanceRecord, universal float64) float64 {
	const (
		minSpendRows   = 20
		minBucketSpend = 100.0
		maxUniversalX  = 1.5
	)

	spendRows := 0
	totalSpend := 0.0
	totalSales := 0.0
	for _, rec := range rows {
		spend := rec.Spend.InexactFloat64()
		if spend <= 0 {
			continue
		}
		spendRows++
		totalSpend += spend
		totalSales += rec.Sales.InexactFloat64()
	}

	if spendRows < minSpendRows || totalSpend < minBucketSpend {
		return universal
	}

	baseline := totalSales / totalSpend
	if baseline > universal*maxUniversalX {
		return universal
	}
	floor := cfg.TargetROAS * 0.5
	if baseline < floor {
		return floor
	}
	return baseline
}

func clippedCVR(cfg *config.OptimizerConfig, orders, clicks int64) float64 {
	if clicks <= 0 {
		return cfg.CVRFloor
	}
	return clip(float64(orders)/float64(clicks), cfg.CVRFloor, cfg.CVRCeiling)
}
