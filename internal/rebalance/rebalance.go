// Package rebalance compares a portfolio's current allocation with a target
// allocation and suggests the trades that would close the gap.
package rebalance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

// Action is the suggested direction of a trade.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

var (
	// holdBand is the allocation gap, in percentage points, inside which no trade is suggested.
	holdBand = decimal.NewFromInt(1)
	// noiseFloor drops targets for unheld assets whose gap is below this many points.
	noiseFloor = decimal.RequireFromString("0.1")
)

// Target is the desired allocation of one asset, in percent of total value.
type Target struct {
	AssetID string          `json:"asset_id"`
	Percent decimal.Decimal `json:"target_percent"`
}

// Suggestion is the advice for one target asset.
type Suggestion struct {
	AssetID                  string          `json:"asset_id"`
	Symbol                   string          `json:"symbol,omitempty"`
	CurrentAllocationPercent decimal.Decimal `json:"current_allocation_percent"`
	TargetAllocationPercent  decimal.Decimal `json:"target_allocation_percent"`
	Difference               decimal.Decimal `json:"difference"`
	CurrentValue             decimal.Decimal `json:"current_value"`
	TargetValue              decimal.Decimal `json:"target_value"`
	SuggestedAmount          decimal.Decimal `json:"suggested_amount"`
	Action                   Action          `json:"action"`
}

// Suggest returns one suggestion per target, largest absolute allocation gap
// first. Targets are not validated; they need not sum to 100. A summary with
// zero total value yields no suggestions.
func Suggest(summary *valuation.Summary, targets []Target) []Suggestion {
	suggestions := []Suggestion{}
	if summary == nil || !summary.TotalValue.IsPositive() {
		return suggestions
	}
	total := summary.TotalValue

	for _, target := range targets {
		holding, held := summary.Holding(target.AssetID)
		current := decimal.Zero
		currentValue := decimal.Zero
		if held {
			currentValue = holding.CurrentValue
			current = finmath.Percent(currentValue, total)
		}

		diff := target.Percent.Sub(current)
		if !held && diff.Abs().LessThan(noiseFloor) {
			continue
		}

		targetValue := finmath.PercentOf(total, target.Percent).Round(2)
		amount := targetValue.Sub(currentValue)

		suggestions = append(suggestions, Suggestion{
			AssetID:                  target.AssetID,
			Symbol:                   holding.Symbol,
			CurrentAllocationPercent: current,
			TargetAllocationPercent:  target.Percent,
			Difference:               diff,
			CurrentValue:             currentValue,
			TargetValue:              targetValue,
			SuggestedAmount:          amount,
			Action:                   actionFor(amount, diff),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Difference.Abs().GreaterThan(suggestions[j].Difference.Abs())
	})
	return suggestions
}

func actionFor(amount, diff decimal.Decimal) Action {
	if diff.Abs().LessThanOrEqual(holdBand) {
		return ActionHold
	}
	switch {
	case amount.IsPositive():
		return ActionBuy
	case amount.IsNegative():
		return ActionSell
	}
	return ActionHold
}
