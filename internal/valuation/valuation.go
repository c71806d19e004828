// Package valuation combines a portfolio's positions with current market
// prices into a point-in-time summary.
package valuation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/ledger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

// TopHoldingsLimit is the number of holdings reported in the concentration list.
const TopHoldingsLimit = 5

// PriceLookup resolves the current price of an asset in a currency. ok is
// false when no price is available; the holding is then valued at zero.
type PriceLookup interface {
	CurrentPrice(ctx context.Context, asset models.Asset, currency string) (price decimal.Decimal, ok bool)
}

// PriceLookupFunc adapts a function to PriceLookup.
type PriceLookupFunc func(ctx context.Context, asset models.Asset, currency string) (decimal.Decimal, bool)

// CurrentPrice calls f.
func (f PriceLookupFunc) CurrentPrice(ctx context.Context, asset models.Asset, currency string) (decimal.Decimal, bool) {
	return f(ctx, asset, currency)
}

// Policy decides what happens when an asset's history removes more units
// than it holds.
type Policy int

const (
	// FailFast aborts the whole summary with the ledger error.
	FailFast Policy = iota
	// SkipAndFlag leaves the asset out of the summary and lists it in Flagged.
	SkipAndFlag
)

// ParsePolicy maps a configuration value ("fail_fast" or "skip_and_flag")
// to a Policy. An empty value means FailFast.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail_fast":
		return FailFast, nil
	case "skip_and_flag":
		return SkipAndFlag, nil
	}
	return FailFast, fmt.Errorf("unknown valuation policy %q", s)
}

// Holding is a position valued at the current price.
type Holding struct {
	AssetID              string           `json:"asset_id"`
	Symbol               string           `json:"symbol"`
	Name                 string           `json:"name"`
	AssetType            models.AssetType `json:"asset_type"`
	Quantity             decimal.Decimal  `json:"quantity"`
	AveragePrice         decimal.Decimal  `json:"average_price"`
	CurrentPrice         decimal.Decimal  `json:"current_price"`
	Priced               bool             `json:"priced"`
	CurrentValue         decimal.Decimal  `json:"current_value"`
	TotalCost            decimal.Decimal  `json:"total_cost"`
	UnrealizedPnL        decimal.Decimal  `json:"unrealized_pnl"`
	UnrealizedPnLPercent decimal.Decimal  `json:"unrealized_pnl_percent"`
	RealizedPnL          decimal.Decimal  `json:"realized_pnl"`
	Currency             string           `json:"currency"`
}

// TopHolding is one entry of the concentration list.
type TopHolding struct {
	AssetID string          `json:"asset_id"`
	Symbol  string          `json:"symbol"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// FlaggedAsset is an asset left out under SkipAndFlag.
type FlaggedAsset struct {
	AssetID string `json:"asset_id"`
	Symbol  string `json:"symbol"`
	Reason  string `json:"reason"`
}

// Summary is the valuation of one portfolio at one instant.
type Summary struct {
	PortfolioID      string                               `json:"portfolio_id"`
	BaseCurrency     string                               `json:"base_currency"`
	TotalValue       decimal.Decimal                      `json:"total_value"`
	TotalCost        decimal.Decimal                      `json:"total_cost"`
	TotalPnL         decimal.Decimal                      `json:"total_pnl"`
	TotalPnLPercent  decimal.Decimal                      `json:"total_pnl_percent"`
	RealizedPnL      decimal.Decimal                      `json:"realized_pnl"`
	Holdings         []Holding                            `json:"holdings"`
	AllocationByType map[models.AssetType]decimal.Decimal `json:"allocation_by_type"`
	TopHoldings      []TopHolding                         `json:"top_holdings"`
	Flagged          []FlaggedAsset                       `json:"flagged,omitempty"`
	CalculatedAt     time.Time                            `json:"calculated_at"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the insufficient-holdings policy. The default is FailFast.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithClock overrides the time source used for CalculatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine builds portfolio summaries. It holds no mutable state and is safe
// for concurrent use as long as its PriceLookup is.
type Engine struct {
	prices PriceLookup
	policy Policy
	now    func() time.Time
}

// NewEngine creates an Engine using prices for current market prices.
func NewEngine(prices PriceLookup, opts ...Option) *Engine {
	e := &Engine{prices: prices, policy: FailFast, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summarize values a portfolio. Transactions must carry their Asset; they
// may be in any order. Under FailFast an InsufficientHoldingsError from the
// ledger is returned as is.
func (e *Engine) Summarize(ctx context.Context, portfolio models.Portfolio, txs []models.Transaction) (*Summary, error) {
	currency := portfolio.BaseCurrency
	summary := &Summary{
		PortfolioID:      portfolio.ID,
		BaseCurrency:     currency,
		TotalValue:       decimal.Zero,
		TotalCost:        decimal.Zero,
		TotalPnL:         decimal.Zero,
		TotalPnLPercent:  decimal.Zero,
		RealizedPnL:      decimal.Zero,
		Holdings:         []Holding{},
		AllocationByType: map[models.AssetType]decimal.Decimal{},
		TopHoldings:      []TopHolding{},
		CalculatedAt:     e.now().UTC(),
	}

	positions, flagged, err := e.Positions(txs)
	if err != nil {
		return nil, err
	}
	summary.Flagged = flagged
	for _, ap := range positions {
		asset, pos := ap.Asset, ap.Position
		summary.RealizedPnL = summary.RealizedPnL.Add(pos.RealizedPnL)
		if !pos.IsOpen() {
			continue
		}

		price, ok := e.prices.CurrentPrice(ctx, asset, currency)
		if !ok {
			price = decimal.Zero
		}
		value := pos.Quantity.Mul(price)
		unrealized := value.Sub(pos.TotalCost)

		summary.Holdings = append(summary.Holdings, Holding{
			AssetID:              asset.ID,
			Symbol:               asset.Symbol,
			Name:                 asset.Name,
			AssetType:            asset.Type,
			Quantity:             pos.Quantity,
			AveragePrice:         pos.AveragePrice,
			CurrentPrice:         price,
			Priced:               ok,
			CurrentValue:         value,
			TotalCost:            pos.TotalCost,
			UnrealizedPnL:        unrealized,
			UnrealizedPnLPercent: finmath.Percent(unrealized, pos.TotalCost),
			RealizedPnL:          pos.RealizedPnL,
			Currency:             currency,
		})

		summary.TotalValue = summary.TotalValue.Add(value)
		summary.TotalCost = summary.TotalCost.Add(pos.TotalCost)
		summary.AllocationByType[asset.Type] = summary.AllocationByType[asset.Type].Add(value)
	}

	summary.TotalPnL = summary.TotalValue.Sub(summary.TotalCost)
	summary.TotalPnLPercent = finmath.Percent(summary.TotalPnL, summary.TotalCost)
	summary.TopHoldings = topHoldings(summary.Holdings, summary.TotalValue, TopHoldingsLimit)

	return summary, nil
}

// AssetPosition is the replayed position of one asset.
type AssetPosition struct {
	Asset    models.Asset
	Position ledger.Position
}

// Positions replays each asset's history under the engine's policy, in the
// order assets first appear. Under FailFast the first ledger error is
// returned. Under SkipAndFlag a failing asset is left out and listed in
// flagged instead.
func (e *Engine) Positions(txs []models.Transaction) (positions []AssetPosition, flagged []FlaggedAsset, err error) {
	order, groups := ledger.Group(txs)
	for _, assetID := range order {
		group := groups[assetID]
		asset := group[0].Asset
		asset.ID = assetID

		pos, err := ledger.Replay(assetID, group)
		if err != nil {
			if e.policy == SkipAndFlag {
				flagged = append(flagged, FlaggedAsset{AssetID: assetID, Symbol: asset.Symbol, Reason: err.Error()})
				continue
			}
			return nil, nil, err
		}
		positions = append(positions, AssetPosition{Asset: asset, Position: pos})
	}
	return positions, flagged, nil
}

// topHoldings returns the n most valuable holdings. Equal values keep their
// order in holdings.
func topHoldings(holdings []Holding, total decimal.Decimal, n int) []TopHolding {
	sorted := make([]Holding, len(holdings))
	copy(sorted, holdings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CurrentValue.GreaterThan(sorted[j].CurrentValue)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	top := make([]TopHolding, 0, len(sorted))
	for _, h := range sorted {
		top = append(top, TopHolding{
			AssetID: h.AssetID,
			Symbol:  h.Symbol,
			Value:   h.CurrentValue,
			Percent: finmath.Percent(h.CurrentValue, total),
		})
	}
	return top
}

// Concentration returns the share of total value held by the top holdings,
// as a percentage.
func (s *Summary) Concentration() decimal.Decimal {
	topValue := decimal.Zero
	for _, h := range s.TopHoldings {
		topValue = topValue.Add(h.Value)
	}
	return finmath.Percent(topValue, s.TotalValue)
}

// Holding returns the holding for assetID, if held.
func (s *Summary) Holding(assetID string) (Holding, bool) {
	for _, h := range s.Holdings {
		if h.AssetID == assetID {
			return h, true
		}
	}
	return Holding{}, false
}
