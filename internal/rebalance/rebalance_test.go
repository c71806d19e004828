package rebalance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func summaryOf(values map[string]string, order ...string) *valuation.Summary {
	s := &valuation.Summary{TotalValue: decimal.Zero}
	for _, id := range order {
		v := d(values[id])
		s.Holdings = append(s.Holdings, valuation.Holding{AssetID: id, Symbol: id, CurrentValue: v})
		s.TotalValue = s.TotalValue.Add(v)
	}
	return s
}

func TestSuggest_SixtyFortyToFiftyFifty(t *testing.T) {
	summary := summaryOf(map[string]string{"A": "6000", "B": "4000"}, "A", "B")

	got := Suggest(summary, []Target{
		{AssetID: "A", Percent: d("50")},
		{AssetID: "B", Percent: d("50")},
	})
	require.Len(t, got, 2)

	a, b := got[0], got[1]
	assert.Equal(t, "A", a.AssetID, "ties keep input order")
	assert.True(t, a.CurrentAllocationPercent.Equal(d("60")))
	assert.True(t, a.Difference.Equal(d("-10")))
	assert.True(t, a.SuggestedAmount.Equal(d("-1000")), a.SuggestedAmount.String())
	assert.Equal(t, ActionSell, a.Action)

	assert.Equal(t, "B", b.AssetID)
	assert.True(t, b.Difference.Equal(d("10")))
	assert.True(t, b.SuggestedAmount.Equal(d("1000")))
	assert.Equal(t, ActionBuy, b.Action)
}

func TestSuggest_ZeroTotalValue(t *testing.T) {
	got := Suggest(&valuation.Summary{TotalValue: decimal.Zero}, []Target{{AssetID: "A", Percent: d("100")}})
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Empty(t, Suggest(nil, nil))
}

func TestSuggest_UnheldNegligibleTargetsAreDropped(t *testing.T) {
	summary := summaryOf(map[string]string{"A": "1000"}, "A")

	got := Suggest(summary, []Target{
		{AssetID: "A", Percent: d("100")},
		{AssetID: "DUST", Percent: d("0.05")},
		{AssetID: "NEW", Percent: d("0.5")},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "NEW", got[0].AssetID)
	assert.Equal(t, ActionHold, got[0].Action, "gap within one point holds")
	assert.True(t, got[0].SuggestedAmount.Equal(d("5")))
	assert.Equal(t, "A", got[1].AssetID)
	assert.Equal(t, ActionHold, got[1].Action)
}

func TestSuggest_HoldBandAndOrdering(t *testing.T) {
	summary := summaryOf(map[string]string{"A": "5050", "B": "3000", "C": "1950"}, "A", "B", "C")

	got := Suggest(summary, []Target{
		{AssetID: "A", Percent: d("50")},
		{AssetID: "B", Percent: d("20")},
		{AssetID: "C", Percent: d("30")},
	})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{got[0].AssetID, got[1].AssetID, got[2].AssetID})
	assert.Equal(t, ActionBuy, got[0].Action)
	assert.Equal(t, ActionSell, got[1].Action)
	assert.Equal(t, ActionHold, got[2].Action, "0.5 point gap")
	assert.True(t, got[0].TargetValue.Equal(d("3000")))
}

func TestSuggest_UnheldTargetBuys(t *testing.T) {
	summary := summaryOf(map[string]string{"A": "1000"}, "A")
	got := Suggest(summary, []Target{{AssetID: "NEW", Percent: d("25")}})
	require.Len(t, got, 1)
	assert.True(t, got[0].CurrentAllocationPercent.IsZero())
	assert.True(t, got[0].SuggestedAmount.Equal(d("250")))
	assert.Equal(t, ActionBuy, got[0].Action)
}
