/*
advisor.go - Threshold recommendations from stock history

PURPOSE:
  Derives recommended alert rules from a series of historical quantity
  samples for one item. Runs offline/on-demand; produces drafts for
  operator review, never live rules.

RECOMMENDATIONS:
  avg = mean of sampled quantities, min = minimum sample
  - low_stock      threshold = round(avg * 0.3), only if > 0
  - out_of_stock   threshold = 0, only if min == 0 was observed
  - critical_stock threshold = round(avg * 0.1), only if > 0

  The mean and the rounding use decimal arithmetic (half away from zero),
  so e.g. samples [50, 0, 30, 10] give avg 22.5 and a low_stock threshold
  of round(6.75) = 7.

SHAPE:
  RecommendThresholds returns an iter.Seq: lazy, finite, and restartable -
  re-ranging the sequence recomputes the drafts. No side effects.
*/
package stock

import (
	"iter"

	"github.com/shopspring/decimal"
)

// RecommendThresholds derives rule drafts from historical samples for one
// item. The sequence is empty when no samples are supplied. Callers decide
// whether to materialize drafts into real rules.
func RecommendThresholds(itemID ItemID, samples []HistoricalSample) iter.Seq[RuleDraft] {
	return func(yield func(RuleDraft) bool) {
		if len(samples) == 0 {
			return
		}

		sum := decimal.Zero
		sawZero := false
		for _, s := range samples {
			sum = sum.Add(decimal.NewFromInt(s.Quantity))
			if s.Quantity == 0 {
				sawZero = true
			}
		}
		avg := sum.Div(decimal.NewFromInt(int64(len(samples))))

		if low := roundedFraction(avg, "0.3"); low > 0 {
			if !yield(RuleDraft{ItemID: itemID, Kind: KindLowStock, Threshold: low}) {
				return
			}
		}
		if sawZero {
			if !yield(RuleDraft{ItemID: itemID, Kind: KindOutOfStock, Threshold: 0}) {
				return
			}
		}
		if critical := roundedFraction(avg, "0.1"); critical > 0 {
			if !yield(RuleDraft{ItemID: itemID, Kind: KindCriticalStock, Threshold: critical}) {
				return
			}
		}
	}
}

// RecommendList materializes the recommendation sequence into a slice.
func RecommendList(itemID ItemID, samples []HistoricalSample) []RuleDraft {
	var drafts []RuleDraft
	for d := range RecommendThresholds(itemID, samples) {
		drafts = append(drafts, d)
	}
	return drafts
}

// roundedFraction returns avg * fraction rounded to the nearest integer,
// half away from zero.
func roundedFraction(avg decimal.Decimal, fraction string) float64 {
	f, _ := avg.Mul(decimal.RequireFromString(fraction)).Round(0).Float64()
	return f
}
