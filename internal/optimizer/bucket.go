package optimizer

import (
	"regexp"
	"strings"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/models"
)

// Buckets partition targets by match context. Every row lands in exactly one
// bucket; targeting expressions win over match type so an ASIN target inside
// a broad campaign still prices like product targeting.
const (
	BucketExact    = "exact"
	BucketPhrase   = "phrase"
	BucketBroad    = "broad"
	BucketAuto     = "auto"
	BucketPT       = "product_targeting"
	BucketCategory = "category"
)

var autoTargets = map[string]bool{
	"close-match": true,
	"loose-match": true,
	"substitutes": true,
	"complements": true,
}

var asinPattern = regexp.MustCompile(`(?i)^b0[a-z0-9]{8}$`)

// Classify assigns a performance row to its pricing bucket.
func Classify(rec *models.PerformanceRecord) string {
	target := strings.ToLower(strings.TrimSpace(rec.TargetText))
	match := strings.ToLower(strings.TrimSpace(rec.MatchType))

	switch {
	case strings.HasPrefix(target, "asin="), IsASIN(target):
		return BucketPT
	case strings.HasPrefix(target, "category="):
		return BucketCategory
	case autoTargets[target], autoTargets[match], match == "auto":
		return BucketAuto
	}

	switch match {
	case "exact":
		return BucketExact
	case "phrase":
		return BucketPhrase
	default:
		return BucketBroad
	}
}

// IsASIN reports whether s looks like an Amazon product identifier, either
// bare or inside an asin= targeting expression.
func IsASIN(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "asin=")
	s = strings.Trim(s, `"`)
	return asinPattern.MatchString(s)
}

// MinClicks returns the evidence floor for a bucket. Buckets with noisier
// traffic need more clicks before a bid moves.
func MinClicks(cfg *config.OptimizerConfig, bucket string) int64 {
	switch bucket {
	case BucketExact:
		return cfg.MinClicksExact
	case BucketPhrase:
		return cfg.MinClicksExact
	case BucketPT:
		return cfg.MinClicksPT
	case BucketBroad:
		return cfg.MinClicksBroad
	case BucketAuto:
		return cfg.MinClicksAuto
	case BucketCategory:
		return cfg.MinClicksObserv
	default:
		return cfg.MinClicksObserv
	}
}
