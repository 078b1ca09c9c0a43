package matcher

import (
	"github.com/shopspring/decimal"

	"channel-reconciler/internal/models"
	"channel-reconciler/pkg/logger"
)

// Matcher performs the identifier join between two canonical record sets.
// Matching is identifier-exact; amounts decide matched versus diffAmount.
type Matcher struct {
	tolerance decimal.Decimal
	log       logger.Logger
}

// New builds a matcher. An empty tolerance string means exact fixed-point
// equality; the caller has already validated a non-empty value.
func New(cfg *models.MatchConfig, log logger.Logger) (*Matcher, error) {
	tolerance := decimal.Zero
	if cfg.AmountTolerance != "" {
		d, err := models.ParseAmount(cfg.AmountTolerance)
		if err != nil {
			return nil, err
		}
		tolerance = d.Abs()
	}
	return &Matcher{
		tolerance: tolerance,
		log:       log.WithComponent("matcher"),
	}, nil
}

// Match joins sourceA against sourceB. For each A record the first
// unclaimed B record with the same identifier is popped; agreeing amounts
// make a matched pair, disagreeing ones a diffAmount pair. Records left on
// either side land in the onlyIn buckets.
func (m *Matcher) Match(sourceA, sourceB []*models.OrderRecord) *models.ReconciliationResult {
	result := &models.ReconciliationResult{}
	index := newIdentifierIndex(sourceB)

	for _, a := range sourceA {
		b, ok := index.claim(a.ID)
		if !ok {
			result.OnlyInA = append(result.OnlyInA, a)
			continue
		}
		pair := models.MatchedPair{A: a, B: b}
		if m.amountsAgree(pair) {
			result.Matched = append(result.Matched, pair)
		} else {
			result.DiffAmount = append(result.DiffAmount, pair)
		}
	}
	result.OnlyInB = index.unclaimed()

	result.Stats = models.ReconciliationStats{
		MatchedCount:       len(result.Matched),
		DiffAmountCount:    len(result.DiffAmount),
		OnlyInSourceACount: len(result.OnlyInA),
		OnlyInSourceBCount: len(result.OnlyInB),
		TotalSourceA:       len(sourceA),
		TotalSourceB:       len(sourceB),
	}

	m.log.WithFields(logger.Fields{
		"matched":     result.Stats.MatchedCount,
		"diff_amount": result.Stats.DiffAmountCount,
		"only_in_a":   result.Stats.OnlyInSourceACount,
		"only_in_b":   result.Stats.OnlyInSourceBCount,
	}).Info("matching complete")

	return result
}

// amountsAgree compares the pair's first amount fields within tolerance.
// Pairs where either side carries no amount are treated as agreeing, since
// there is nothing to reconcile numerically.
func (m *Matcher) amountsAgree(pair models.MatchedPair) bool {
	diff, ok := pair.AmountDiff()
	if !ok {
		return true
	}
	return diff.LessThanOrEqual(m.tolerance)
}
