// Package marketdata resolves current and historical asset prices from an
// ordered list of external providers behind a TTL cache.
package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

// ErrNoPrice is returned by a provider that has no quote for an asset.
var ErrNoPrice = errors.New("no price available")

// Provider fetches current market prices for assets.
type Provider interface {
	// Name returns the provider's display name (e.g., "Yahoo Finance", "CoinGecko").
	Name() string

	// Supports returns true if this provider can price the given asset type.
	Supports(assetType models.AssetType) bool

	// GetPrice returns the current price of asset in currency.
	GetPrice(ctx context.Context, asset models.Asset, currency string) (decimal.Decimal, error)

	// GetPrices returns prices keyed by asset ID. A provider should return as
	// many prices as possible; the error joins the per-asset failures.
	GetPrices(ctx context.Context, assets []models.Asset, currency string) (map[string]decimal.Decimal, error)
}

// FetchError is a failed price fetch for a specific asset.
type FetchError struct {
	AssetID string
	Symbol  string
	Err     error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch price for %s (%s): %v", e.Symbol, e.AssetID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// fetchEach prices assets one by one with get.
func fetchEach(ctx context.Context, assets []models.Asset, currency string,
	get func(context.Context, models.Asset, string) (decimal.Decimal, error),
) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(assets))
	var errs []error
	for _, asset := range assets {
		price, err := get(ctx, asset, currency)
		if err != nil {
			errs = append(errs, &FetchError{AssetID: asset.ID, Symbol: asset.Symbol, Err: err})
			continue
		}
		prices[asset.ID] = price
	}
	return prices, errors.Join(errs...)
}
