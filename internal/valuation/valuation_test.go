package valuation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/ledger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

var (
	t0        = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fixedNow  = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	portfolio = models.Portfolio{Base: models.Base{ID: "p1"}, BaseCurrency: "USD"}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func asset(id, symbol string, typ models.AssetType) models.Asset {
	a := models.Asset{Symbol: symbol, Name: symbol + " Inc", Type: typ, Currency: "USD"}
	a.ID = id
	return a
}

func trade(a models.Asset, typ models.TransactionType, qty, price string, at time.Time) models.Transaction {
	return models.Transaction{
		AssetID:         a.ID,
		Asset:           a,
		Type:            typ,
		Quantity:        d(qty),
		Price:           d(price),
		Fee:             decimal.Zero,
		TransactionDate: at,
	}
}

type fixedPrices map[string]string

func (f fixedPrices) CurrentPrice(_ context.Context, a models.Asset, _ string) (decimal.Decimal, bool) {
	p, ok := f[a.Symbol]
	if !ok {
		return decimal.Zero, false
	}
	return d(p), true
}

func TestSummarize_Empty(t *testing.T) {
	engine := NewEngine(fixedPrices{}, WithClock(fixedNow))

	summary, err := engine.Summarize(context.Background(), portfolio, nil)
	require.NoError(t, err)
	assert.True(t, summary.TotalValue.IsZero())
	assert.True(t, summary.TotalCost.IsZero())
	assert.True(t, summary.TotalPnL.IsZero())
	assert.True(t, summary.TotalPnLPercent.IsZero())
	assert.Empty(t, summary.Holdings)
	assert.Empty(t, summary.TopHoldings)
	assert.Equal(t, "USD", summary.BaseCurrency)
	assert.Equal(t, fixedNow(), summary.CalculatedAt)
}

func TestSummarize_TotalsAndAllocation(t *testing.T) {
	aapl := asset("a1", "AAPL", models.AssetTypeStock)
	btc := asset("a2", "BTC", models.AssetTypeCrypto)
	msft := asset("a3", "MSFT", models.AssetTypeStock)

	txs := []models.Transaction{
		trade(aapl, models.TransactionTypeBuy, "10", "100", t0),
		trade(btc, models.TransactionTypeBuy, "0.5", "40000", t0.Add(time.Hour)),
		trade(msft, models.TransactionTypeBuy, "5", "300", t0.Add(2*time.Hour)),
		trade(aapl, models.TransactionTypeSell, "5", "120", t0.Add(3*time.Hour)),
	}
	engine := NewEngine(fixedPrices{"AAPL": "150", "BTC": "50000", "MSFT": "280"})

	summary, err := engine.Summarize(context.Background(), portfolio, txs)
	require.NoError(t, err)

	// AAPL 5×150=750, BTC 0.5×50000=25000, MSFT 5×280=1400
	assert.True(t, summary.TotalValue.Equal(d("27150")), summary.TotalValue.String())
	// AAPL 500 + BTC 20000 + MSFT 1500
	assert.True(t, summary.TotalCost.Equal(d("22000")), summary.TotalCost.String())
	assert.True(t, summary.TotalPnL.Equal(d("5150")))
	assert.True(t, summary.TotalPnLPercent.Equal(d("23.4091")), summary.TotalPnLPercent.String())
	assert.True(t, summary.RealizedPnL.Equal(d("100")))

	require.Len(t, summary.Holdings, 3)
	assert.Equal(t, "AAPL", summary.Holdings[0].Symbol)
	assert.True(t, summary.Holdings[0].UnrealizedPnL.Equal(d("250")))
	assert.True(t, summary.Holdings[0].UnrealizedPnLPercent.Equal(d("50")))

	assert.True(t, summary.AllocationByType[models.AssetTypeStock].Equal(d("2150")))
	assert.True(t, summary.AllocationByType[models.AssetTypeCrypto].Equal(d("25000")))

	require.Len(t, summary.TopHoldings, 3)
	assert.Equal(t, []string{"BTC", "MSFT", "AAPL"}, []string{
		summary.TopHoldings[0].Symbol, summary.TopHoldings[1].Symbol, summary.TopHoldings[2].Symbol,
	})
}

func TestSummarize_UnpricedHoldingCountsCostOnly(t *testing.T) {
	x := asset("a1", "XYZ", models.AssetTypeStock)
	engine := NewEngine(fixedPrices{})

	summary, err := engine.Summarize(context.Background(), portfolio, []models.Transaction{
		trade(x, models.TransactionTypeBuy, "2", "50", t0),
	})
	require.NoError(t, err)
	require.Len(t, summary.Holdings, 1)
	h := summary.Holdings[0]
	assert.False(t, h.Priced)
	assert.True(t, h.CurrentPrice.IsZero())
	assert.True(t, h.CurrentValue.IsZero())
	assert.True(t, summary.TotalCost.Equal(d("100")))
	assert.True(t, summary.TotalPnLPercent.Equal(d("-100")))
}

func TestSummarize_ClosedPositionsAreExcluded(t *testing.T) {
	x := asset("a1", "XYZ", models.AssetTypeStock)
	engine := NewEngine(fixedPrices{"XYZ": "80"})

	summary, err := engine.Summarize(context.Background(), portfolio, []models.Transaction{
		trade(x, models.TransactionTypeBuy, "2", "50", t0),
		trade(x, models.TransactionTypeSell, "2", "60", t0.Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.Empty(t, summary.Holdings)
	assert.True(t, summary.TotalCost.IsZero())
	assert.True(t, summary.TotalPnLPercent.IsZero(), "no division by zero when cost is zero")
	assert.True(t, summary.RealizedPnL.Equal(d("20")))
}

func TestSummarize_InsufficientHoldingsPolicy(t *testing.T) {
	good := asset("a1", "GOOD", models.AssetTypeStock)
	bad := asset("a2", "BAD", models.AssetTypeStock)
	txs := []models.Transaction{
		trade(good, models.TransactionTypeBuy, "1", "10", t0),
		trade(bad, models.TransactionTypeBuy, "1", "10", t0),
		trade(bad, models.TransactionTypeSell, "3", "10", t0.Add(time.Hour)),
	}
	prices := fixedPrices{"GOOD": "12", "BAD": "12"}

	t.Run("fail_fast_aborts_summary", func(t *testing.T) {
		_, err := NewEngine(prices).Summarize(context.Background(), portfolio, txs)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ledger.ErrInsufficientHoldings))
	})

	t.Run("skip_and_flag_keeps_other_assets", func(t *testing.T) {
		summary, err := NewEngine(prices, WithPolicy(SkipAndFlag)).Summarize(context.Background(), portfolio, txs)
		require.NoError(t, err)
		require.Len(t, summary.Holdings, 1)
		assert.Equal(t, "GOOD", summary.Holdings[0].Symbol)
		require.Len(t, summary.Flagged, 1)
		assert.Equal(t, "BAD", summary.Flagged[0].Symbol)
	})
}

func TestSummarize_TopHoldingsLimitAndTies(t *testing.T) {
	prices := fixedPrices{}
	var txs []models.Transaction
	for i := 0; i < 7; i++ {
		sym := fmt.Sprintf("S%d", i)
		a := asset(fmt.Sprintf("a%d", i), sym, models.AssetTypeStock)
		txs = append(txs, trade(a, models.TransactionTypeBuy, "1", "10", t0.Add(time.Duration(i)*time.Minute)))
		prices[sym] = "100"
	}
	prices["S6"] = "500"

	summary, err := NewEngine(prices).Summarize(context.Background(), portfolio, txs)
	require.NoError(t, err)
	require.Len(t, summary.TopHoldings, TopHoldingsLimit)

	var got []string
	for _, h := range summary.TopHoldings {
		got = append(got, h.Symbol)
	}
	assert.Equal(t, []string{"S6", "S0", "S1", "S2", "S3"}, got)
	// (500 + 4×100) / 1100
	assert.True(t, summary.Concentration().Equal(d("81.8182")), summary.Concentration().String())
}

func TestPriceLookupFunc(t *testing.T) {
	called := false
	lookup := PriceLookupFunc(func(_ context.Context, a models.Asset, currency string) (decimal.Decimal, bool) {
		called = true
		assert.Equal(t, "EUR", currency)
		return d("2"), true
	})
	p := models.Portfolio{Base: models.Base{ID: "p2"}, BaseCurrency: "EUR"}
	x := asset("a1", "X", models.AssetTypeETF)

	summary, err := NewEngine(lookup).Summarize(context.Background(), p, []models.Transaction{
		trade(x, models.TransactionTypeBuy, "3", "1", t0),
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, summary.TotalValue.Equal(d("6")))
	assert.Equal(t, "EUR", summary.Holdings[0].Currency)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": FailFast, "fail_fast": FailFast, " SKIP_AND_FLAG ": SkipAndFlag} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePolicy("ignore")
	assert.Error(t, err)
}
