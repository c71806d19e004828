package services

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/metrics"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/testutil"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

// testNow is the fixed clock used by service tests.
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func daysAgo(n int) time.Time { return testNow.AddDate(0, 0, -n) }

// staticPrices prices assets by symbol; unknown symbols have no price.
func staticPrices(prices map[string]string) valuation.PriceLookup {
	return valuation.PriceLookupFunc(func(_ context.Context, asset models.Asset, _ string) (decimal.Decimal, bool) {
		p, ok := prices[strings.ToUpper(asset.Symbol)]
		if !ok {
			return decimal.Zero, false
		}
		return testutil.D(p), true
	})
}

// testOptions gives each test its own registry and a single worker, since
// the in-memory database does not tolerate concurrent writers.
func testOptions() []Option {
	return []Option{
		WithClock(fixedClock),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithConcurrency(1),
	}
}

func testEngine(prices map[string]string) *valuation.Engine {
	return valuation.NewEngine(staticPrices(prices), valuation.WithClock(fixedClock))
}
