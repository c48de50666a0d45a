package optimizer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/shopspring/decimal"
)

// harvestDestPattern matches campaign names that are themselves harvest
// destinations; their terms are never harvested again.
var harvestDestPattern = regexp.MustCompile(`(?i)harvestexact|harvest_exact|_exact_|exactmatch`)

// HarvestSelector promotes proven customer search terms out of discovery
// campaigns into exact-match keywords, once per term per account.
type HarvestSelector struct {
	cfg   *config.OptimizerConfig
	bench *Benchmarks

	// existing holds normalized exact keywords already live, so a term is
	// never promoted twice even across runs.
	existing []string
}

// NewHarvestSelector builds a selector. existingKeywords are the exact
// keywords the account already runs, from prior harvests.
func NewHarvestSelector(cfg *config.OptimizerConfig, bench *Benchmarks, existingKeywords []string) *HarvestSelector {
	normalized := make([]string, 0, len(existingKeywords))
	for _, kw := range existingKeywords {
		normalized = append(normalized, normalizeTerm(kw))
	}
	return &HarvestSelector{cfg: cfg, bench: bench, existing: normalized}
}

// MinOrders returns the order floor a term must clear before promotion,
// scaled so high-CVR accounts demand proportionally more proof.
func (s *HarvestSelector) MinOrders() int64 {
	return int64(math.Max(3, math.Ceil(s.cfg.HarvestClicks*s.bench.AccountCVR)))
}

// SelectAll evaluates every discovered search term and returns the harvest
// decisions plus the isolation negatives that route traffic to the new
// exact keywords. A term appearing in several ad groups is promoted once,
// from the source with the best score; the other sources get negatives.
func (s *HarvestSelector) SelectAll(terms []*SearchTermAggregate, now time.Time) []*models.Decision {
	candidates := make(map[string][]*SearchTermAggregate)
	for _, t := range terms {
		if !s.eligible(t) {
			continue
		}
		key := normalizeTerm(t.SearchTerm)
		candidates[key] = append(candidates[key], t)
	}

	keys := make([]string, 0, len(candidates))
	for k := range candidates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var decisions []*models.Decision
	for _, key := range keys {
		sources := candidates[key]
		winner := sources[0]
		for _, t := range sources[1:] {
			if harvestScore(t) > harvestScore(winner) {
				winner = t
			}
		}
		pool := poolSources(sources)
		if !s.qualifies(pool, winner.Bucket) {
			continue
		}

		decisions = append(decisions, s.harvestDecision(winner, pool, now))
		for _, src := range sources {
			if src.CampaignName == winner.CampaignName {
				continue
			}
			decisions = append(decisions, s.isolationNegative(src, winner, now))
		}
		s.existing = append(s.existing, key)
	}
	return decisions
}

// termPool is a search term's performance summed across every campaign and
// ad group where it surfaced. Promotion thresholds judge the pool; only the
// launch bid and destination come from the winning occurrence.
type termPool struct {
	Clicks int64
	Orders int64
	Spend  float64
	Sales  float64
}

func (p termPool) ROAS() float64 {
	if p.Spend <= 0 {
		return 0
	}
	return p.Sales / p.Spend
}

func poolSources(sources []*SearchTermAggregate) termPool {
	var p termPool
	for _, t := range sources {
		p.Clicks += t.Clicks
		p.Orders += t.Orders
		p.Spend += t.Spend
		p.Sales += t.Sales
	}
	return p
}

// eligible filters the discovery scope: real customer search terms from
// non-destination campaigns that are not already running as exact keywords.
func (s *HarvestSelector) eligible(t *SearchTermAggregate) bool {
	if t.Bucket == BucketExact {
		return false
	}
	if harvestDestPattern.MatchString(t.CampaignName) {
		return false
	}
	term := normalizeTerm(t.SearchTerm)
	if term == "" || autoTargets[term] || strings.HasPrefix(term, "asin=") || strings.HasPrefix(term, "category=") {
		return false
	}
	if IsASIN(term) {
		return false
	}
	for _, kw := range s.existing {
		if trigramSimilarity(term, kw) >= s.cfg.DedupeSimilarity {
			return false
		}
	}
	return true
}

// qualifies applies the promotion bar to the term's pooled performance:
// enough clicks, enough orders, and a ROAS above the account's harvest
// hurdle. Terms already beating the universal baseline are judged against
// the universal hurdle rather than a possibly stricter bucket one.
func (s *HarvestSelector) qualifies(pool termPool, bucket string) bool {
	if float64(pool.Clicks) < s.cfg.HarvestClicks {
		return false
	}
	if pool.Orders < s.MinOrders() {
		return false
	}

	roas := pool.ROAS()
	hurdle := s.bench.TargetROAS(bucket) * s.cfg.HarvestROASMult
	if roas >= s.bench.UniversalROAS {
		hurdle = s.bench.UniversalROAS * s.cfg.HarvestROASMult
	}
	return roas >= hurdle
}

// harvestScore ranks competing sources for the same term. Sales dominate;
// ROAS breaks ties between similar sellers.
func harvestScore(t *SearchTermAggregate) float64 {
	return t.Sales + 5*t.ROAS()
}

func (s *HarvestSelector) harvestDecision(t *SearchTermAggregate, pool termPool, now time.Time) *models.Decision {
	launchBid := round2(math.Max(s.cfg.MinBidFloor, t.CPC()*s.cfg.HarvestLaunchMult))
	return &models.Decision{
		AccountID:    t.AccountID,
		EmittedAt:    now,
		DecisionType: models.DecisionHarvest,
		CampaignName: harvestCampaignName(t.CampaignName),
		AdGroupName:  t.AdGroupName,
		TargetText:   t.SearchTerm,
		MatchType:    "exact",
		OldValue:     decimal.NewFromFloat(round2(t.CPC())),
		NewValue:     decimal.NewFromFloat(launchBid),
		Reason: fmt.Sprintf("promoted: %d clicks, %d orders, roas %.2f (hurdle %.2f)",
			pool.Clicks, pool.Orders, pool.ROAS(), s.bench.UniversalROAS*s.cfg.HarvestROASMult),
		Harvest: &models.HarvestMetadata{
			WinnerSourceCampaign: t.CampaignName,
			WinnerSourceAdGroup:  t.AdGroupName,
			NewCampaignName:      harvestCampaignName(t.CampaignName),
			BeforeMatchType:      t.MatchType,
			AfterMatchType:       "exact",
		},
	}
}

// isolationNegative blocks the harvested term in its discovery source so
// future traffic flows through the new exact keyword instead.
func (s *HarvestSelector) isolationNegative(src *SearchTermAggregate, winner *SearchTermAggregate, now time.Time) *models.Decision {
	return &models.Decision{
		AccountID:    src.AccountID,
		EmittedAt:    now,
		DecisionType: models.DecisionNegative,
		CampaignName: src.CampaignName,
		AdGroupName:  src.AdGroupName,
		TargetText:   src.SearchTerm,
		MatchType:    "negative exact",
		OldValue:     decimal.NewFromFloat(round2(src.Spend)),
		NewValue:     decimal.Zero,
		Reason:       fmt.Sprintf("isolation: term harvested to %s", harvestCampaignName(winner.CampaignName)),
		IsASIN:       false,
	}
}

func harvestCampaignName(sourceCampaign string) string {
	return sourceCampaign + " | Harvest_Exact"
}
