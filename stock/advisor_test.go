package stock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func samplesOf(itemID stock.ItemID, quantities ...int64) []stock.HistoricalSample {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]stock.HistoricalSample, 0, len(quantities))
	for i, q := range quantities {
		samples = append(samples, stock.HistoricalSample{
			ItemID:    itemID,
			Timestamp: base.AddDate(0, 0, 7*i),
			Quantity:  q,
		})
	}
	return samples
}

// =============================================================================
// RECOMMENDATION TESTS
// =============================================================================

func TestAdvisor_FullRecommendationSet(t *testing.T) {
	// GIVEN: Weekly samples [50, 0, 30, 10], avg 22.5, min 0
	// WHEN: Thresholds are recommended
	// THEN: low_stock 7 (round 6.75), out_of_stock 0, critical_stock 2 (round 2.25)

	drafts := stock.RecommendList("millet-sack", samplesOf("millet-sack", 50, 0, 30, 10))

	require.Len(t, drafts, 3)
	assert.Equal(t, stock.RuleDraft{ItemID: "millet-sack", Kind: stock.KindLowStock, Threshold: 7}, drafts[0])
	assert.Equal(t, stock.RuleDraft{ItemID: "millet-sack", Kind: stock.KindOutOfStock, Threshold: 0}, drafts[1])
	assert.Equal(t, stock.RuleDraft{ItemID: "millet-sack", Kind: stock.KindCriticalStock, Threshold: 2}, drafts[2])
}

func TestAdvisor_NoZeroSampleSkipsOutOfStock(t *testing.T) {
	drafts := stock.RecommendList("p1", samplesOf("p1", 50, 40, 30))

	require.Len(t, drafts, 2)
	assert.Equal(t, stock.KindLowStock, drafts[0].Kind)
	assert.Equal(t, float64(12), drafts[0].Threshold) // avg 40, 40*0.3
	assert.Equal(t, stock.KindCriticalStock, drafts[1].Kind)
	assert.Equal(t, float64(4), drafts[1].Threshold)
}

func TestAdvisor_TinyAverageDropsZeroThresholds(t *testing.T) {
	// avg 1: low_stock rounds to 0.3 -> 0, critical rounds to 0.1 -> 0.
	// Neither is recommended, only the out_of_stock draft survives.

	drafts := stock.RecommendList("p1", samplesOf("p1", 2, 0, 1))

	require.Len(t, drafts, 1)
	assert.Equal(t, stock.KindOutOfStock, drafts[0].Kind)
}

func TestAdvisor_AllZeroSamples(t *testing.T) {
	drafts := stock.RecommendList("p1", samplesOf("p1", 0, 0, 0))

	require.Len(t, drafts, 1)
	assert.Equal(t, stock.RuleDraft{ItemID: "p1", Kind: stock.KindOutOfStock, Threshold: 0}, drafts[0])
}

func TestAdvisor_EmptySamples(t *testing.T) {
	assert.Empty(t, stock.RecommendList("p1", nil))
}

func TestAdvisor_HalfAwayFromZeroRounding(t *testing.T) {
	// avg 25: 25*0.3 = 7.5 rounds up to 8, 25*0.1 = 2.5 rounds up to 3.
	drafts := stock.RecommendList("p1", samplesOf("p1", 25, 25))

	require.Len(t, drafts, 2)
	assert.Equal(t, float64(8), drafts[0].Threshold)
	assert.Equal(t, float64(3), drafts[1].Threshold)
}

// =============================================================================
// SEQUENCE SEMANTICS
// =============================================================================

func TestAdvisor_SequenceIsRestartable(t *testing.T) {
	seq := stock.RecommendThresholds("p1", samplesOf("p1", 50, 0, 30, 10))

	var first, second []stock.RuleDraft
	for d := range seq {
		first = append(first, d)
	}
	for d := range seq {
		second = append(second, d)
	}

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
}

func TestAdvisor_SequenceSupportsEarlyBreak(t *testing.T) {
	seq := stock.RecommendThresholds("p1", samplesOf("p1", 50, 0, 30, 10))

	var got []stock.RuleDraft
	for d := range seq {
		got = append(got, d)
		break
	}

	require.Len(t, got, 1)
	assert.Equal(t, stock.KindLowStock, got[0].Kind)
}
