package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

// StaticProvider answers from a fixed symbol table. It backs demo mode and
// serves as a deterministic provider in tests. Prices are returned as-is for
// any requested currency.
type StaticProvider struct {
	name   string
	prices map[string]decimal.Decimal
}

// NewStaticProvider creates a provider over prices keyed by symbol.
func NewStaticProvider(name string, prices map[string]decimal.Decimal) *StaticProvider {
	table := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		table[strings.ToUpper(symbol)] = price
	}
	return &StaticProvider{name: name, prices: table}
}

// ParseStaticPrices parses a "SYMBOL=price,SYMBOL=price" table.
func ParseStaticPrices(raw string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		symbol, value, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(symbol) == "" {
			return nil, fmt.Errorf("invalid static price entry %q", entry)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("invalid static price for %s: %q", symbol, value)
		}
		prices[strings.ToUpper(strings.TrimSpace(symbol))] = price
	}
	return prices, nil
}

// Name returns the provider's display name.
func (p *StaticProvider) Name() string { return p.name }

// Supports returns true for every asset type.
func (p *StaticProvider) Supports(models.AssetType) bool { return true }

// GetPrice looks asset's symbol up in the table.
func (p *StaticProvider) GetPrice(_ context.Context, asset models.Asset, _ string) (decimal.Decimal, error) {
	price, ok := p.prices[strings.ToUpper(asset.Symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, asset.Symbol)
	}
	return price, nil
}

// GetPrices looks every asset up in the table.
func (p *StaticProvider) GetPrices(ctx context.Context, assets []models.Asset, currency string) (map[string]decimal.Decimal, error) {
	return fetchEach(ctx, assets, currency, p.GetPrice)
}
