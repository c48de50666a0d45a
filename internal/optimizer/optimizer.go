package optimizer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/metrics"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// lookbackDays is how much history a run prices against.
const lookbackDays = 56

// Store is the persistence surface a run needs.
type Store interface {
	GetPerformance(accountID string, from, to time.Time) ([]*models.PerformanceRecord, error)
	LatestDataDate(accountID string) (time.Time, error)
	ExistingExactKeywords(accountID string) ([]string, error)
	AppendDecisionBatch(decisions []*models.Decision) (int, int, error)
	SaveAccountHealth(health *models.AccountHealth) error
}

// EventPublisher publishes batch events after a successful run.
type EventPublisher interface {
	PublishDecisionBatch(ctx context.Context, event *models.DecisionBatchEvent) error
}

// RunSummary reports what one optimizer run produced.
type RunSummary struct {
	AccountID      string         `json:"account_id"`
	BatchID        string         `json:"batch_id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	RecordsScanned int            `json:"records_scanned"`
	Targets        int            `json:"targets"`
	SearchTerms    int            `json:"search_terms"`
	Appended       int            `json:"appended"`
	Duplicates     int            `json:"duplicates"`
	Holds          int            `json:"holds"`
	ByType         map[string]int `json:"by_type"`
	UniversalROAS  float64        `json:"universal_roas"`
	BaselineSource string         `json:"baseline_source"`
}

// Optimizer runs the full decision pipeline for an account: benchmarks,
// bids, duplicates, negatives, harvests, then one atomic append.
type Optimizer struct {
	cfg       *config.OptimizerConfig
	store     Store
	publisher EventPublisher
}

// New creates an optimizer. publisher may be nil when event publishing is
// not wired, e.g. in tests.
func New(cfg *config.OptimizerConfig, store Store, publisher EventPublisher) *Optimizer {
	return &Optimizer{cfg: cfg, store: store, publisher: publisher}
}

// Run executes one optimizer pass over an account's recent history. All
// actionable decisions append in a single batch; on any append error the
// run produces nothing.
func (o *Optimizer) Run(ctx context.Context, accountID string) (*RunSummary, error) {
	started := time.Now()
	timer := func(status string) {
		metrics.OptimizerRuns.WithLabelValues(status).Inc()
		metrics.OptimizerRunDuration.Observe(time.Since(started).Seconds())
	}

	latest, err := o.store.LatestDataDate(accountID)
	if err != nil {
		timer("error")
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	from := latest.AddDate(0, 0, -lookbackDays)

	records, err := o.store.GetPerformance(accountID, from, latest)
	if err != nil {
		timer("error")
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	if len(records) == 0 {
		timer("empty")
		return nil, fmt.Errorf("optimizer: no performance rows for %s in window", accountID)
	}

	existing, err := o.store.ExistingExactKeywords(accountID)
	if err != nil {
		timer("error")
		return nil, fmt.Errorf("optimizer: %w", err)
	}

	bench := ComputeBenchmarks(o.cfg, records)
	aggregates := AggregateTargets(records)
	terms := AggregateSearchTerms(records)

	now := time.Now().UTC()
	batchID := uuid.New().String()

	negatives := NewNegativeSelector(o.cfg, bench)

	var all []*models.Decision
	all = append(all, NewBidEngine(o.cfg).EvaluateAll(aggregates, now)...)
	all = append(all, NewDeduplicator(o.cfg).SelectAll(aggregates, now)...)
	all = append(all, negatives.SelectAll(terms, now)...)
	all = append(all, negatives.SelectExternal(o.cfg.ExternalNegativeASINs, terms, now)...)
	all = append(all, NewHarvestSelector(o.cfg, bench, existing).SelectAll(terms, now)...)

	summary := &RunSummary{
		AccountID:      accountID,
		BatchID:        batchID,
		StartedAt:      started.UTC(),
		RecordsScanned: len(records),
		Targets:        len(aggregates),
		SearchTerms:    len(terms),
		ByType:         make(map[string]int),
		UniversalROAS:  bench.UniversalROAS,
		BaselineSource: baselineSource(bench),
	}

	// Holds explain why a bid did not move; they are reported but never
	// logged, so the decision log stays a log of actions taken.
	actionable := make([]*models.Decision, 0, len(all))
	for _, d := range all {
		summary.ByType[d.DecisionType]++
		if d.DecisionType == models.DecisionHold {
			summary.Holds++
			continue
		}
		d.BatchID = batchID
		actionable = append(actionable, d)
	}

	if len(actionable) > 0 {
		appended, duplicates, err := o.store.AppendDecisionBatch(actionable)
		if err != nil {
			timer("error")
			return nil, fmt.Errorf("optimizer: %w", err)
		}
		summary.Appended = appended
		summary.Duplicates = duplicates

		for _, d := range actionable {
			metrics.DecisionsEmitted.WithLabelValues(d.DecisionType).Inc()
		}
		metrics.DecisionDuplicates.Add(float64(duplicates))
	}

	if err := o.store.SaveAccountHealth(computeHealth(o.cfg, accountID, records, terms)); err != nil {
		log.Printf("Warning: failed to save account health for %s: %v", accountID, err)
	}

	if o.publisher != nil && summary.Appended > 0 {
		event := &models.DecisionBatchEvent{
			EventType: "DECISION_BATCH_APPENDED",
			Source:    "decision-engine",
			Timestamp: now.Format(time.RFC3339),
			Data: models.DecisionBatchEventData{
				AccountID:  accountID,
				BatchID:    batchID,
				Appended:   summary.Appended,
				Duplicates: summary.Duplicates,
				ByType:     summary.ByType,
			},
		}
		if err := o.publisher.PublishDecisionBatch(ctx, event); err != nil {
			log.Printf("Warning: failed to publish decision batch event: %v", err)
		}
	}

	summary.FinishedAt = time.Now().UTC()
	timer("ok")
	log.Printf("Optimizer run %s for %s: %d appended, %d duplicates, %d holds",
		batchID, accountID, summary.Appended, summary.Duplicates, summary.Holds)
	return summary, nil
}

func baselineSource(b *Benchmarks) string {
	if b.FromData {
		return "account_data"
	}
	return "configured_target"
}

// computeHealth builds the trailing health snapshot persisted after a run.
func computeHealth(cfg *config.OptimizerConfig, accountID string, records []*models.PerformanceRecord, terms []*SearchTermAggregate) *models.AccountHealth {
	var spend, sales float64
	var clicks, orders int64
	for _, rec := range records {
		spend += rec.Spend.InexactFloat64()
		sales += rec.Sales.InexactFloat64()
		clicks += rec.Clicks
		orders += rec.Orders
	}

	var wasted float64
	for _, t := range terms {
		if t.Sales == 0 {
			wasted += t.Spend
		}
	}

	var roas, wasteRatio, cvr float64
	if spend > 0 {
		roas = sales / spend
		wasteRatio = wasted / spend
	}
	if clicks > 0 {
		cvr = float64(orders) / float64(clicks)
	}

	roasScore := clip(roas/cfg.TargetROAS, 0, 1) * 100
	efficiencyScore := clip(1-wasteRatio, 0, 1) * 100
	cvrScore := clip(cvr/cfg.CVRCeiling, 0, 1) * 100

	return &models.AccountHealth{
		AccountID:       accountID,
		HealthScore:     round2(0.4*roasScore + 0.35*efficiencyScore + 0.25*cvrScore),
		ROASScore:       round2(roasScore),
		EfficiencyScore: round2(efficiencyScore),
		CVRScore:        round2(cvrScore),
		CurrentROAS:     round2(roas),
		WasteRatio:      round2(wasteRatio),
		WastedSpend:     decimal.NewFromFloat(round2(wasted)),
		TotalSpend:      decimal.NewFromFloat(round2(spend)),
		TotalSales:      decimal.NewFromFloat(round2(sales)),
	}
}
