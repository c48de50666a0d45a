package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/shopspring/decimal"
)

// NegativeSelector finds search terms that burn spend without converting.
// Click thresholds scale with the bucket's conversion rate: a term in a
// low-CVR bucket earns more patience before being cut.
type NegativeSelector struct {
	cfg   *config.OptimizerConfig
	bench *Benchmarks
}

// NewNegativeSelector builds a selector over the run benchmarks.
func NewNegativeSelector(cfg *config.OptimizerConfig, bench *Benchmarks) *NegativeSelector {
	return &NegativeSelector{cfg: cfg, bench: bench}
}

// Thresholds returns the soft and hard click cutoffs for a bucket. Soft
// flags a likely bleeder; hard is the point where continued spend cannot be
// justified at the bucket's conversion rate.
func (s *NegativeSelector) Thresholds(bucket string) (soft, hard float64) {
	cvr := s.bench.CVR(bucket)
	expectedClicksPerOrder := 1 / cvr
	soft = math.Max(s.cfg.SoftNegativeFloor, expectedClicksPerOrder*1.5)
	hard = math.Max(s.cfg.HardStopFloor, expectedClicksPerOrder*s.cfg.HardStopMult)
	return soft, hard
}

// SelectAll returns a NEGATIVE decision for every qualifying search term.
func (s *NegativeSelector) SelectAll(terms []*SearchTermAggregate, now time.Time) []*models.Decision {
	var decisions []*models.Decision
	for _, t := range terms {
		if d := s.Select(t, now); d != nil {
			decisions = append(decisions, d)
		}
	}
	return decisions
}

// SelectExternal negates externally supplied competitor ASINs wherever they
// appeared as search terms, regardless of click volume. Blocking a known
// competitor ASIN is a strategy call, not a performance one.
func (s *NegativeSelector) SelectExternal(asins []string, terms []*SearchTermAggregate, now time.Time) []*models.Decision {
	if len(asins) == 0 {
		return nil
	}
	blocked := make(map[string]bool, len(asins))
	for _, a := range asins {
		blocked[normalizeTerm(a)] = true
	}

	var decisions []*models.Decision
	for _, t := range terms {
		if !blocked[normalizeTerm(t.SearchTerm)] {
			continue
		}
		decisions = append(decisions, &models.Decision{
			AccountID:    t.AccountID,
			EmittedAt:    now,
			DecisionType: models.DecisionNegative,
			CampaignName: t.CampaignName,
			AdGroupName:  t.AdGroupName,
			TargetText:   t.SearchTerm,
			MatchType:    "negative exact",
			OldValue:     decimal.NewFromFloat(round2(t.Spend)),
			NewValue:     decimal.Zero,
			Reason:       "blocked competitor ASIN",
			IsASIN:       true,
		})
	}
	return decisions
}

// Select evaluates one search term. Only zero-sale terms qualify; a term
// with any sales is never negated here, whatever its efficiency.
func (s *NegativeSelector) Select(t *SearchTermAggregate, now time.Time) *models.Decision {
	if t.Sales > 0 {
		return nil
	}

	soft, hard := s.Thresholds(t.Bucket)
	clicks := float64(t.Clicks)

	var reason string
	switch {
	case clicks >= hard:
		reason = fmt.Sprintf("hard stop: %d clicks, $%.2f spend, zero sales (threshold %.0f)", t.Clicks, t.Spend, hard)
	case clicks >= soft:
		reason = fmt.Sprintf("bleeder: %d clicks, $%.2f spend, zero sales (threshold %.0f)", t.Clicks, t.Spend, soft)
	default:
		return nil
	}

	return &models.Decision{
		AccountID:    t.AccountID,
		EmittedAt:    now,
		DecisionType: models.DecisionNegative,
		CampaignName: t.CampaignName,
		AdGroupName:  t.AdGroupName,
		TargetText:   t.SearchTerm,
		MatchType:    "negative exact",
		OldValue:     decimal.NewFromFloat(round2(t.Spend)),
		NewValue:     decimal.Zero,
		Reason:       reason,
		IsASIN:       IsASIN(t.SearchTerm),
	}
}
