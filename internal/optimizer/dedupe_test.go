package optimizer

import (
	"testing"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dupTarget(campaign, adGroup, text string, spend, sales float64, clicks int64) *TargetAggregate {
	return &TargetAggregate{
		AccountID:    "acct-1",
		CampaignName: campaign,
		AdGroupName:  adGroup,
		TargetText:   text,
		MatchType:    "exact",
		Bucket:       BucketExact,
		TargetBid:    1.00,
		Spend:        spend,
		Sales:        sales,
		Clicks:       clicks,
	}
}

func TestDeduplicator_CutsLosingDuplicate(t *testing.T) {
	d := NewDeduplicator(testOptimizerConfig())

	winner := dupTarget("Camp A", "group-1", "dog bed", 10, 50, 20)
	loser := dupTarget("Camp B", "group-2", "dog bed", 10, 10, 15)

	decisions := d.SelectAll([]*TargetAggregate{winner, loser}, time.Now())

	require.Len(t, decisions, 1)
	assert.Equal(t, models.DecisionNegative, decisions[0].DecisionType)
	assert.Equal(t, "Camp B", decisions[0].CampaignName)
	assert.Contains(t, decisions[0].Reason, "duplicate")
}

func TestDeduplicator_NearDuplicatesMerge(t *testing.T) {
	d := NewDeduplicator(testOptimizerConfig())

	winner := dupTarget("Camp A", "group-1", "orthopedic dog bed", 10, 50, 20)
	loser := dupTarget("Camp B", "group-2", "orthopedic dog beds", 10, 10, 15)

	decisions := d.SelectAll([]*TargetAggregate{winner, loser}, time.Now())

	require.Len(t, decisions, 1)
	assert.Equal(t, "orthopedic dog beds", decisions[0].TargetText)
}

func TestDeduplicator_DistinctKeywordsUntouched(t *testing.T) {
	d := NewDeduplicator(testOptimizerConfig())

	targets := []*TargetAggregate{
		dupTarget("Camp A", "group-1", "dog bed", 10, 50, 20),
		dupTarget("Camp B", "group-2", "cat tree", 10, 10, 15),
	}

	assert.Empty(t, d.SelectAll(targets, time.Now()))
}

func TestDeduplicator_WinnerByROAS(t *testing.T) {
	d := NewDeduplicator(testOptimizerConfig())

	// Camp A sells more in absolute terms but at ROAS 2; Camp B converts at
	// ROAS 4 and keeps the keyword.
	bigSeller := dupTarget("Camp A", "group-1", "dog bed", 50, 100, 40)
	efficient := dupTarget("Camp B", "group-2", "dog bed", 10, 40, 8)

	decisions := d.SelectAll([]*TargetAggregate{bigSeller, efficient}, time.Now())

	require.Len(t, decisions, 1)
	assert.Equal(t, "Camp A", decisions[0].CampaignName)
}

func TestDeduplicator_ThinDuplicatesStillResolved(t *testing.T) {
	d := NewDeduplicator(testOptimizerConfig())

	// Even with few clicks, a duplicate pair is consolidated toward the
	// higher-ROAS copy.
	targets := []*TargetAggregate{
		dupTarget("Camp A", "group-1", "dog bed", 2, 8, 3),
		dupTarget("Camp B", "group-2", "dog bed", 2, 2, 2),
	}

	decisions := d.SelectAll(targets, time.Now())

	require.Len(t, decisions, 1)
	assert.Equal(t, "Camp B", decisions[0].CampaignName)
}

func TestDeduplicator_AppliesWithinEveryBucket(t *testing.T) {
	d := NewDeduplicator(testOptimizerConfig())

	a := dupTarget("Camp A", "group-1", "dog bed", 10, 50, 20)
	b := dupTarget("Camp B", "group-2", "dog bed", 10, 10, 15)
	a.Bucket = BucketBroad
	a.MatchType = "broad"
	b.Bucket = BucketBroad
	b.MatchType = "broad"

	decisions := d.SelectAll([]*TargetAggregate{a, b}, time.Now())

	require.Len(t, decisions, 1)
	assert.Equal(t, "Camp B", decisions[0].CampaignName)
}

func TestDeduplicator_BucketsIndependent(t *testing.T) {
	d := NewDeduplicator(testOptimizerConfig())

	// The same text in different match buckets is intentional coverage, not
	// duplication.
	a := dupTarget("Camp A", "group-1", "dog bed", 10, 50, 20)
	b := dupTarget("Camp B", "group-2", "dog bed", 10, 10, 15)
	b.Bucket = BucketBroad
	b.MatchType = "broad"

	assert.Empty(t, d.SelectAll([]*TargetAggregate{a, b}, time.Now()))
}

func TestTrigramSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, trigramSimilarity("Dog Bed", "dog  bed"))
	assert.Greater(t, trigramSimilarity("orthopedic dog bed", "orthopedic dog beds"), 0.85)
	assert.Less(t, trigramSimilarity("dog bed", "cat tree"), 0.2)
	assert.Equal(t, 0.0, trigramSimilarity("", "dog bed"))
}
