package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/shopspring/decimal"
)

// BidEngine prices targets against the configured target ROAS using a
// continuous gap formula. No step ladders: a target 10% off the goal moves
// proportionally less than one 50% off.
type BidEngine struct {
	cfg *config.OptimizerConfig
}

// NewBidEngine builds a bid engine.
func NewBidEngine(cfg *config.OptimizerConfig) *BidEngine {
	return &BidEngine{cfg: cfg}
}

// EvaluateAll prices every aggregate and returns a decision per target.
// Targets without enough evidence fall back to their ad group's signal at
// half throttle, then to a hold.
func (e *BidEngine) EvaluateAll(aggregates []*TargetAggregate, now time.Time) []*models.Decision {
	adGroups := AggregateAdGroups(aggregates)

	decisions := make([]*models.Decision, 0, len(aggregates))
	for _, t := range aggregates {
		if d := e.Evaluate(t, adGroups, now); d != nil {
			decisions = append(decisions, d)
		}
	}
	return decisions
}

// Evaluate prices one target. Returns a HOLD decision when no bid change is
// warranted, and nil only when the target has no usable base bid at all.
func (e *BidEngine) Evaluate(t *TargetAggregate, adGroups map[string]*AdGroupAggregate, now time.Time) *models.Decision {
	base := e.resolveBaseBid(t)
	if base <= 0 {
		return nil
	}

	// An invisible target cannot be classified by ROAS no matter how many
	// clicks its ad group has, so the boost is checked before any gate.
	if e.qualifiesVisibilityBoost(t) {
		boosted := e.clampBid(base*(1+e.cfg.VisibilityBoostPct), base)
		if boosted > base {
			return e.newDecision(t, base, boosted, now,
				fmt.Sprintf("visibility boost: %d impressions in %d days", t.Impressions, t.DataDays()))
		}
	}

	minClicks := MinClicks(e.cfg, t.Bucket)

	if t.Clicks >= minClicks && t.ROAS() > 0 {
		return e.bidDecision(t, base, t.ROAS(), 1.0, now,
			fmt.Sprintf("roas %.2f vs target %.2f over %d clicks", t.ROAS(), e.cfg.TargetROAS, t.Clicks))
	}

	// Not enough target-level signal; borrow the ad group's at half throttle
	// so thin targets drift with their group instead of freezing.
	if g, ok := adGroups[t.CampaignName+"|"+t.AdGroupName]; ok && g.Clicks >= minClicks && g.Clicks > t.Clicks && g.ROAS() > 0 {
		return e.bidDecision(t, base, g.ROAS(), 0.5, now,
			fmt.Sprintf("ad group roas %.2f vs target %.2f, target has %d clicks", g.ROAS(), e.cfg.TargetROAS, t.Clicks))
	}

	return e.holdDecision(t, base, now,
		fmt.Sprintf("insufficient data: %d clicks, roas %.2f", t.Clicks, t.ROAS()))
}

// bidDecision applies the continuous formula against the configured target
// ROAS, the account's objective rather than a relative baseline. throttleScale
// halves movement when pricing off ad-group fallback data.
func (e *BidEngine) bidDecision(t *TargetAggregate, base, roas, throttleScale float64, now time.Time, reason string) *models.Decision {
	gap := roas/e.cfg.TargetROAS - 1

	throttle := e.cfg.UpThrottle
	if gap < 0 {
		throttle = e.cfg.DownThrottle
	}
	adjustment := gap * throttle * throttleScale
	adjustment = clip(adjustment, -e.cfg.MaxBidChangePct, e.cfg.MaxBidChangePct)

	newBid := e.clampBid(base*(1+adjustment), base)
	if newBid == round2(base) {
		return e.holdDecision(t, base, now, "bid already at computed value: "+reason)
	}
	return e.newDecision(t, base, newBid, now, reason)
}

// clampBid bounds a proposed bid to the allowed band around its base.
func (e *BidEngine) clampBid(bid, base float64) float64 {
	lo := math.Max(e.cfg.MinBidFloor, base*e.cfg.MinBidMultiplier)
	hi := base * e.cfg.MaxBidMultiplier
	return round2(clip(bid, lo, hi))
}

// resolveBaseBid picks the base bid in priority order: the target's own bid,
// the ad group default, then observed CPC.
func (e *BidEngine) resolveBaseBid(t *TargetAggregate) float64 {
	if t.TargetBid > 0 {
		return t.TargetBid
	}
	if t.AdGroupBid > 0 {
		return t.AdGroupBid
	}
	return t.CPC()
}

func (e *BidEngine) qualifiesVisibilityBoost(t *TargetAggregate) bool {
	switch t.Bucket {
	case BucketExact, BucketPhrase, BucketBroad:
	case BucketAuto:
		if t.MatchType != "close-match" && t.TargetText != "close-match" {
			return false
		}
	default:
		return false
	}
	return t.DataDays() >= e.cfg.VisibilityMinDays && t.Impressions < e.cfg.VisibilityMaxImpressions
}

func (e *BidEngine) newDecision(t *TargetAggregate, oldBid, newBid float64, now time.Time, reason string) *models.Decision {
	return &models.Decision{
		AccountID:    t.AccountID,
		EmittedAt:    now,
		DecisionType: models.DecisionBidChange,
		CampaignName: t.CampaignName,
		AdGroupName:  t.AdGroupName,
		TargetText:   t.TargetText,
		MatchType:    t.MatchType,
		OldValue:     decimal.NewFromFloat(round2(oldBid)),
		NewValue:     decimal.NewFromFloat(newBid),
		Reason:       reason,
		IsASIN:       IsASIN(t.TargetText),
	}
}

func (e *BidEngine) holdDecision(t *TargetAggregate, base float64, now time.Time, reason string) *models.Decision {
	bid := decimal.NewFromFloat(round2(base))
	return &models.Decision{
		AccountID:    t.AccountID,
		EmittedAt:    now,
		DecisionType: models.DecisionHold,
		CampaignName: t.CampaignName,
		AdGroupName:  t.AdGroupName,
		TargetText:   t.TargetText,
		MatchType:    t.MatchType,
		OldValue:     bid,
		NewValue:     bid,
		Reason:       reason,
		IsASIN:       IsASIN(t.TargetText),
	}
}
