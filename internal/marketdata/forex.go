package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
)

// ForexConverter converts prices between currencies using Yahoo Finance
// forex tickers such as "USDEUR=X". Rates are cached for the lifetime of the
// converter.
type ForexConverter struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	mu         sync.RWMutex
	rates      map[string]decimal.Decimal // "USDEUR" -> 0.92
}

// NewForexConverter creates a converter that reads rates from the chart API at baseURL.
func NewForexConverter(httpClient *http.Client, baseURL string) *ForexConverter {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	return &ForexConverter{
		httpClient: httpClient,
		baseURL:    baseURL,
		rates:      make(map[string]decimal.Decimal),
	}
}

// GetRate returns how many units of to one unit of from buys.
func (f *ForexConverter) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	pair := from + to
	f.mu.RLock()
	rate, ok := f.rates[pair]
	f.mu.RUnlock()
	if ok {
		return rate, nil
	}

	meta, err := fetchChartMeta(ctx, f.httpClient, f.baseURL, pair+"=X")
	if err != nil {
		return decimal.Zero, fmt.Errorf("forex %s: %w", pair, err)
	}
	if meta.RegularMarketPrice <= 0 {
		return decimal.Zero, fmt.Errorf("invalid forex rate for %s: %f", pair, meta.RegularMarketPrice)
	}
	rate = decimal.NewFromFloat(meta.RegularMarketPrice)

	f.mu.Lock()
	f.rates[pair] = rate
	f.mu.Unlock()
	return rate, nil
}

// Convert converts price from one currency to another.
func (f *ForexConverter) Convert(ctx context.Context, price decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) || to == "" {
		return price, nil
	}
	rate, err := f.GetRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(rate).Round(finmath.PriceScale), nil
}
