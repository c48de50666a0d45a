package impact

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
)

const (
	// minBeforeClicks is the evidence floor below which no counterfactual
	// is computed at all; the record is kept but excluded from totals.
	minBeforeClicks = 5

	// validatedClicks separates directional measurements from validated ones.
	validatedClicks = 15

	// downshiftCPCRatio flags records whose market repriced under them.
	downshiftCPCRatio = 0.75
)

// Store is the persistence surface the impact pipeline reads from. It never
// writes; impact records are recomputed from raw data on every request.
type Store interface {
	GetTargetPerformance(accountID, campaignName, targetText string, from, to time.Time) ([]*models.PerformanceRecord, error)
	GetCampaignPerformance(accountID, campaignName string, from, to time.Time) ([]*models.PerformanceRecord, error)
	LatestDataDate(accountID string) (time.Time, error)
	DataCadenceDays(accountID string) ([]time.Time, error)
}

// Evaluator measures logged decisions against a carry-forward counterfactual:
// had the decision not been made, the target would have kept converting
// clicks at its before-window rate for whatever spend it actually got.
type Evaluator struct {
	cfg   *config.ImpactConfig
	store Store
}

// NewEvaluator builds an evaluator.
func NewEvaluator(cfg *config.ImpactConfig, store Store) *Evaluator {
	return &Evaluator{cfg: cfg, store: store}
}

// EvaluateAll measures every decision and returns the records in input order.
// Decisions that cannot be measured (no data at all) are skipped.
func (e *Evaluator) EvaluateAll(accountID string, decisions []*models.Decision) ([]*models.ImpactRecord, error) {
	latest, err := e.store.LatestDataDate(accountID)
	if err != nil {
		return nil, fmt.Errorf("impact: %w", err)
	}
	cadence, err := e.store.DataCadenceDays(accountID)
	if err != nil {
		return nil, fmt.Errorf("impact: %w", err)
	}

	records := make([]*models.ImpactRecord, 0, len(decisions))
	for _, d := range decisions {
		if d.DecisionType == models.DecisionHold {
			continue
		}
		rec, err := e.evaluate(d, latest, cadence)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Evaluator) evaluate(d *models.Decision, latestData time.Time, cadence []time.Time) (*models.ImpactRecord, error) {
	actionDate := d.EmittedAt.Truncate(24 * time.Hour)
	windows := BuildWindows(actionDate, e.cfg.HorizonDays, e.cfg.FallbackWindowDays, cadence)

	before, after, err := e.fetchWindows(d, windows)
	if err != nil {
		return nil, err
	}

	rec := &models.ImpactRecord{
		Decision:            *d,
		WindowDays:          windows.Before.Days,
		WindowLowConfidence: windows.LowConfidence,
		IsMature:            IsMature(actionDate, windows.After.Days, e.cfg.MaturityBufferDays, latestData),
	}
	rec.ActualBeforeDays, rec.Before = coverage(before, windows.Before)
	rec.ActualAfterDays, rec.After = coverage(after, windows.After)
	rawBeforeClicks := rec.Before.Clicks

	// Uneven data coverage would bias the comparison, so the before window
	// is scaled to the after window's observed length.
	if rec.ActualBeforeDays > 0 && rec.ActualAfterDays > 0 && rec.ActualBeforeDays != rec.ActualAfterDays {
		ratio := float64(rec.ActualAfterDays) / float64(rec.ActualBeforeDays)
		rec.Before.Spend *= ratio
		rec.Before.Sales *= ratio
		rec.Before.Clicks *= ratio
		rec.Before.Impressions *= ratio
	}

	e.measure(rec, rawBeforeClicks)
	return rec, nil
}

// fetchWindows loads the before and after rows for a decision. Harvests are
// measured across campaigns: before from the winner's discovery source,
// after from the new exact campaign.
func (e *Evaluator) fetchWindows(d *models.Decision, w Windows) (before, after []*models.PerformanceRecord, err error) {
	if d.DecisionType == models.DecisionHarvest && d.Harvest != nil {
		// Before the promotion the term lived as a search term under the
		// discovery campaign's targets, so the before side scans the whole
		// source campaign and filters on the term itself.
		rows, err := e.store.GetCampaignPerformance(d.AccountID, d.Harvest.WinnerSourceCampaign, w.Before.Start, w.Before.End)
		if err != nil {
			return nil, nil, fmt.Errorf("impact: before window for %s: %w", d.TargetText, err)
		}
		before = filterTermRows(rows, d.TargetText)

		after, err = e.store.GetTargetPerformance(d.AccountID, d.Harvest.NewCampaignName, d.TargetText, w.After.Start, w.After.End)
		if err != nil {
			return nil, nil, fmt.Errorf("impact: after window for %s: %w", d.TargetText, err)
		}
		return before, after, nil
	}

	before, err = e.store.GetTargetPerformance(d.AccountID, d.CampaignName, d.TargetText, w.Before.Start, w.Before.End)
	if err != nil {
		return nil, nil, fmt.Errorf("impact: before window for %s: %w", d.TargetText, err)
	}
	after, err = e.store.GetTargetPerformance(d.AccountID, d.CampaignName, d.TargetText, w.After.Start, w.After.End)
	if err != nil {
		return nil, nil, fmt.Errorf("impact: after window for %s: %w", d.TargetText, err)
	}
	return before, after, nil
}

// filterTermRows keeps rows whose search term (or target text when the row
// carries no search term) matches the given term, case-insensitively.
func filterTermRows(rows []*models.PerformanceRecord, term string) []*models.PerformanceRecord {
	want := strings.ToLower(strings.TrimSpace(term))
	var out []*models.PerformanceRecord
	for _, rec := range rows {
		got := rec.SearchTerm
		if got == "" {
			got = rec.TargetText
		}
		if strings.ToLower(strings.TrimSpace(got)) == want {
			out = append(out, rec)
		}
	}
	return out
}

// measure fills in the counterfactual fields from the populated windows.
// Evidence thresholds use the raw observed click count, not the
// coverage-scaled one, so partial after windows cannot demote a record.
func (e *Evaluator) measure(rec *models.ImpactRecord, rawBeforeClicks float64) {
	before, after := rec.Before, rec.After

	if rec.Decision.DecisionType == models.DecisionNegative {
		rec.SpendAvoided = spendAvoided(before, after, rec.ActualBeforeDays, rec.ActualAfterDays)
	}

	if rawBeforeClicks < minBeforeClicks {
		rec.ValidationTier = models.TierExcluded
		rec.ExpectedAfter = models.WindowMetrics{Spend: after.Spend}
		return
	}

	cpcBefore := before.CPC()
	salesPerClick := before.Sales / before.Clicks

	var expectedClicks float64
	if cpcBefore > 0 {
		expectedClicks = after.Spend / cpcBefore
	}
	expectedSales := expectedClicks * salesPerClick

	rec.ExpectedAfter = models.WindowMetrics{
		Spend:  after.Spend,
		Sales:  expectedSales,
		Clicks: expectedClicks,
	}
	rec.DecisionImpact = after.Sales - expectedSales

	if before.Sales > 0 {
		rec.ExpectedTrendPct = (expectedSales - before.Sales) / before.Sales * 100
		rec.ActualChangePct = (after.Sales - before.Sales) / before.Sales * 100
		rec.DecisionValuePct = rec.ActualChangePct - rec.ExpectedTrendPct
	}

	rec.MarketTag = ClassifyMarket(rec.ExpectedTrendPct, rec.DecisionValuePct)
	rec.MarketDownshift = after.Clicks > 0 && cpcBefore > 0 && after.CPC() <= downshiftCPCRatio*cpcBefore

	rec.ConfidenceWeight = math.Min(1, rawBeforeClicks/validatedClicks)
	switch rec.Decision.DecisionType {
	case models.DecisionNegative, models.DecisionHarvest:
		// Structural actions either happened or did not; their effect does
		// not scale with pre-action click volume.
		rec.ConfidenceWeight = 1
	}

	switch {
	case rec.DecisionImpact == 0:
		rec.ValidationTier = models.TierExcluded
	case rec.WindowLowConfidence || rawBeforeClicks < validatedClicks:
		rec.ValidationTier = models.TierDirectional
	default:
		rec.ValidationTier = models.TierValidated
	}
}

// spendAvoided estimates what a negated term would have kept spending.
func spendAvoided(before, after models.WindowMetrics, beforeDays, afterDays int) float64 {
	if beforeDays <= 0 || afterDays <= 0 {
		return 0
	}
	projected := before.Spend / float64(beforeDays) * float64(afterDays)
	avoided := projected - after.Spend
	if avoided < 0 {
		return 0
	}
	return avoided
}

// coverage sums rows inside a window and counts the days of data they cover.
func coverage(rows []*models.PerformanceRecord, w Window) (int, models.WindowMetrics) {
	var m models.WindowMetrics
	seen := make(map[string]bool)
	for _, rec := range rows {
		if !w.Contains(rec.WeekStart) {
			continue
		}
		m.Spend += rec.Spend.InexactFloat64()
		m.Sales += rec.Sales.InexactFloat64()
		m.Clicks += float64(rec.Clicks)
		m.Impressions += float64(rec.Impressions)
		seen[rec.WeekStart.Format("2006-01-02")] = true
	}

	// Weekly rows each cover seven days, capped at the window length.
	days := len(seen) * 7
	if days > w.Days {
		days = w.Days
	}
	return days, m
}
