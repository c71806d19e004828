// Package ledger folds an asset's transaction history into a running
// position using weighted-average cost accounting.
//
// Increasing transactions (BUY, DEPOSIT, TRANSFER_IN) add their quantity and
// qty×price+fee to the position's cost. Decreasing transactions (SELL,
// WITHDRAW, TRANSFER_OUT) remove cost at the current average price and book
// the difference between net proceeds and that cost as realized P&L.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

// ErrInsufficientHoldings is matched by every InsufficientHoldingsError.
var ErrInsufficientHoldings = errors.New("insufficient holdings")

// InsufficientHoldingsError reports a decreasing transaction that removes
// more units than the position held at that point of the replay.
type InsufficientHoldingsError struct {
	AssetID       string
	TransactionID string
	Date          time.Time
	Requested     decimal.Decimal
	Available     decimal.Decimal
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient holdings for asset %s: transaction %s on %s removes %s but only %s held",
		e.AssetID, e.TransactionID, e.Date.Format(time.DateOnly), e.Requested, e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientHoldings.
func (e *InsufficientHoldingsError) Unwrap() error { return ErrInsufficientHoldings }

// Realization is the outcome of one decreasing transaction.
type Realization struct {
	TransactionID string                 `json:"transaction_id"`
	Type          models.TransactionType `json:"transaction_type"`
	Date          time.Time              `json:"date"`
	Quantity      decimal.Decimal        `json:"quantity"`
	Price         decimal.Decimal        `json:"price"`
	Fee           decimal.Decimal        `json:"fee"`
	CostBasis     decimal.Decimal        `json:"cost_basis"`
	Proceeds      decimal.Decimal        `json:"proceeds"`
	PnL           decimal.Decimal        `json:"pnl"`
}

// Position is the running state of one asset in one portfolio. It is never
// persisted; it is recomputed from the transaction history on demand.
type Position struct {
	AssetID      string          `json:"asset_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	AveragePrice decimal.Decimal `json:"average_price"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
	Realizations []Realization   `json:"realizations,omitempty"`
}

// NewPosition returns an empty position for the given asset.
func NewPosition(assetID string) Position {
	return Position{
		AssetID:      assetID,
		Quantity:     decimal.Zero,
		TotalCost:    decimal.Zero,
		AveragePrice: decimal.Zero,
		RealizedPnL:  decimal.Zero,
	}
}

// IsOpen reports whether the position still holds units.
func (p Position) IsOpen() bool {
	return p.Quantity.IsPositive()
}

// Apply returns the position after tx. Positions are meant to be threaded
// through a fold: applying two different transactions to the same value may
// share the Realizations backing array.
func (p Position) Apply(tx models.Transaction) (Position, error) {
	next := p

	switch {
	case tx.Type.Increases():
		next.Quantity = p.Quantity.Add(tx.Quantity)
		next.TotalCost = p.TotalCost.Add(tx.Quantity.Mul(tx.Price)).Add(tx.Fee)
		if next.Quantity.IsPositive() {
			next.AveragePrice = next.TotalCost.DivRound(next.Quantity, finmath.PriceScale)
		}

	case tx.Type.Decreases():
		if p.Quantity.LessThan(tx.Quantity) {
			return p, &InsufficientHoldingsError{
				AssetID:       p.AssetID,
				TransactionID: tx.ID,
				Date:          tx.TransactionDate,
				Requested:     tx.Quantity,
				Available:     p.Quantity,
			}
		}
		costBasis := p.AveragePrice.Mul(tx.Quantity)
		proceeds := tx.Price.Mul(tx.Quantity).Sub(tx.Fee)
		pnl := proceeds.Sub(costBasis)

		next.RealizedPnL = p.RealizedPnL.Add(pnl)
		next.Quantity = p.Quantity.Sub(tx.Quantity)
		next.TotalCost = p.TotalCost.Sub(costBasis)
		if next.Quantity.IsZero() {
			// A closed position carries no cost; drop the sub-unit residue
			// left by the rounded average price.
			next.TotalCost = decimal.Zero
			next.AveragePrice = decimal.Zero
		}
		next.Realizations = append(next.Realizations, Realization{
			TransactionID: tx.ID,
			Type:          tx.Type,
			Date:          tx.TransactionDate,
			Quantity:      tx.Quantity,
			Price:         tx.Price,
			Fee:           tx.Fee,
			CostBasis:     costBasis,
			Proceeds:      proceeds,
			PnL:           pnl,
		})

	default:
		return p, fmt.Errorf("unsupported transaction type %q", tx.Type)
	}

	return next, nil
}

// SortChronologically orders transactions by TransactionDate in place.
// Transactions sharing a timestamp keep their relative order.
func SortChronologically(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].TransactionDate.Before(txs[j].TransactionDate)
	})
}

// Replay folds the transactions of a single asset into its final position.
// The input slice is not modified.
func Replay(assetID string, txs []models.Transaction) (Position, error) {
	ordered := make([]models.Transaction, len(txs))
	copy(ordered, txs)
	SortChronologically(ordered)

	pos := NewPosition(assetID)
	for _, tx := range ordered {
		next, err := pos.Apply(tx)
		if err != nil {
			return pos, err
		}
		pos = next
	}
	return pos, nil
}

// Group splits a portfolio's transactions by asset. Assets are returned in
// the order they first appear in the chronologically sorted history, and
// each group keeps that chronological order.
func Group(txs []models.Transaction) (order []string, byAsset map[string][]models.Transaction) {
	ordered := make([]models.Transaction, len(txs))
	copy(ordered, txs)
	SortChronologically(ordered)

	byAsset = make(map[string][]models.Transaction)
	for _, tx := range ordered {
		if _, seen := byAsset[tx.AssetID]; !seen {
			order = append(order, tx.AssetID)
		}
		byAsset[tx.AssetID] = append(byAsset[tx.AssetID], tx)
	}
	return order, byAsset
}
