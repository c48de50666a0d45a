package optimizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/shopspring/decimal"
)

// Deduplicator finds the same target running in multiple campaigns or ad
// groups within a match bucket, keeps the best performer, and cuts the rest.
// Split traffic means split evidence, so duplicates are consolidated before
// bids are judged.
type Deduplicator struct {
	cfg *config.OptimizerConfig
}

// NewDeduplicator builds a deduplicator.
func NewDeduplicator(cfg *config.OptimizerConfig) *Deduplicator {
	return &Deduplicator{cfg: cfg}
}

// SelectAll returns a NEGATIVE decision for every losing duplicate. The
// winner is the highest-ROAS copy and keeps running untouched; it is priced
// by the bid engine like any other target.
func (d *Deduplicator) SelectAll(aggregates []*TargetAggregate, now time.Time) []*models.Decision {
	groups := d.groupDuplicates(aggregates)

	var decisions []*models.Decision
	for _, group := range groups {
		winner := group[0]
		for _, t := range group[1:] {
			if t.ROAS() > winner.ROAS() {
				winner = t
			}
		}
		for _, t := range group {
			if t == winner {
				continue
			}
			decisions = append(decisions, d.loserNegative(t, winner, now))
		}
	}
	return decisions
}

// groupDuplicates runs the clustering independently inside every match
// bucket; an exact keyword and a broad copy of the same text are different
// targets, not duplicates of each other.
func (d *Deduplicator) groupDuplicates(aggregates []*TargetAggregate) [][]*TargetAggregate {
	byBucket := make(map[string][]*TargetAggregate)
	for _, t := range aggregates {
		byBucket[t.Bucket] = append(byBucket[t.Bucket], t)
	}

	buckets := make([]string, 0, len(byBucket))
	for bucket := range byBucket {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	var groups [][]*TargetAggregate
	for _, bucket := range buckets {
		groups = append(groups, d.groupBucket(byBucket[bucket])...)
	}
	return groups
}

// groupBucket clusters one bucket's targets by normalized text, then merges
// clusters whose texts are near-identical under trigram similarity.
func (d *Deduplicator) groupBucket(targets []*TargetAggregate) [][]*TargetAggregate {
	byText := make(map[string][]*TargetAggregate)
	for _, t := range targets {
		byText[normalizeTerm(t.TargetText)] = append(byText[normalizeTerm(t.TargetText)], t)
	}

	texts := make([]string, 0, len(byText))
	for text := range byText {
		texts = append(texts, text)
	}
	sort.Strings(texts)

	merged := make(map[string]bool)
	var groups [][]*TargetAggregate
	for i, text := range texts {
		if merged[text] {
			continue
		}
		group := byText[text]
		for _, other := range texts[i+1:] {
			if merged[other] {
				continue
			}
			if trigramSimilarity(text, other) >= d.cfg.DedupeSimilarity {
				group = append(group, byText[other]...)
				merged[other] = true
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

func (d *Deduplicator) loserNegative(loser, winner *TargetAggregate, now time.Time) *models.Decision {
	return &models.Decision{
		AccountID:    loser.AccountID,
		EmittedAt:    now,
		DecisionType: models.DecisionNegative,
		CampaignName: loser.CampaignName,
		AdGroupName:  loser.AdGroupName,
		TargetText:   loser.TargetText,
		MatchType:    "negative exact",
		OldValue:     decimal.NewFromFloat(round2(loser.Spend)),
		NewValue:     decimal.Zero,
		Reason: fmt.Sprintf("duplicate of %q in %s/%s (winner roas %.2f vs %.2f)",
			winner.TargetText, winner.CampaignName, winner.AdGroupName, winner.ROAS(), loser.ROAS()),
		IsASIN: IsASIN(loser.TargetText),
	}
}
