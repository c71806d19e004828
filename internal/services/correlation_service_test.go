package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/marketdata"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/metrics"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/testutil"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

func TestAnalyzeCorrelation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	history := marketdata.NewService(db, nil, time.Minute, nil,
		marketdata.WithMetrics(metrics.New(prometheus.NewRegistry())))
	svc := NewCorrelationService(db, testEngine(nil), history, testOptions()...)

	user := testutil.CreateTestUser(t, db)
	p := testutil.CreateTestPortfolio(t, db, user.ID)
	a := testutil.CreateTestAssetWithSymbol(t, db, "A", models.AssetTypeStock)
	b := testutil.CreateTestAssetWithSymbol(t, db, "B", models.AssetTypeStock)
	c := testutil.CreateTestAssetWithSymbol(t, db, "C", models.AssetTypeStock)
	sold := testutil.CreateTestAssetWithSymbol(t, db, "SOLD", models.AssetTypeStock)
	for _, asset := range []*models.Asset{a, b, c, sold} {
		testutil.CreateTestTransaction(t, db, p.ID, asset.ID, models.TransactionTypeBuy, "1", "100", daysAgo(60))
	}
	testutil.CreateTestTransaction(t, db, p.ID, sold.ID, models.TransactionTypeSell, "1", "100", daysAgo(30))

	series := map[string][]string{
		a.ID:    {"100", "110", "99", "118.8"},
		b.ID:    {"200", "220", "198", "237.6"},
		c.ID:    {"100", "90", "99", "79.2"},
		sold.ID: {"100", "90", "99", "79.2"},
	}
	for assetID, prices := range series {
		for i, price := range prices {
			testutil.CreateTestPriceSnapshot(t, db, assetID, price, daysAgo(len(prices)-i))
		}
	}

	result, err := svc.Analyze(context.Background(), user.ID, p.ID)
	testutil.AssertNoError(t, err)

	if len(result.Matrix) != 3 {
		t.Fatalf("expected 3 held assets in the matrix, got %d", len(result.Matrix))
	}
	if _, ok := result.Matrix[sold.ID]; ok {
		t.Error("expected closed position to be left out")
	}
	testutil.AssertDecimal(t, "diagonal", result.Matrix[a.ID][a.ID], "1")
	testutil.AssertDecimal(t, "A/B", result.Matrix[a.ID][b.ID], "1")
	testutil.AssertDecimal(t, "A/C", result.Matrix[a.ID][c.ID], "-1")
	if result.Symbols[c.ID] != "C" {
		t.Errorf("expected symbol C for %s, got %q", c.ID, result.Symbols[c.ID])
	}
	if !result.Matrix[a.ID][c.ID].Equal(result.Matrix[c.ID][a.ID]) {
		t.Error("expected a symmetric matrix")
	}
	if len(result.TopCorrelated) != 1 || len(result.TopInverse) != 2 {
		t.Errorf("expected 1 correlated and 2 inverse pairs, got %d/%d", len(result.TopCorrelated), len(result.TopInverse))
	}

	other := testutil.CreateTestUser(t, db)
	_, err = svc.Analyze(context.Background(), other.ID, p.ID)
	testutil.AssertAppError(t, err, "PORTFOLIO_ACCESS_DENIED")
}

func TestAnalyzeCorrelation_BrokenHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	history := marketdata.NewService(db, nil, time.Minute, nil,
		marketdata.WithMetrics(metrics.New(prometheus.NewRegistry())))
	user := testutil.CreateTestUser(t, db)
	p := testutil.CreateTestPortfolio(t, db, user.ID)
	good := testutil.CreateTestAssetWithSymbol(t, db, "GOOD", models.AssetTypeStock)
	bad := testutil.CreateTestAssetWithSymbol(t, db, "BAD", models.AssetTypeStock)
	testutil.CreateTestTransaction(t, db, p.ID, good.ID, models.TransactionTypeBuy, "1", "100", daysAgo(60))
	testutil.CreateTestTransaction(t, db, p.ID, bad.ID, models.TransactionTypeSell, "1", "100", daysAgo(30))

	t.Run("fail_fast", func(t *testing.T) {
		svc := NewCorrelationService(db, testEngine(nil), history, testOptions()...)
		_, err := svc.Analyze(context.Background(), user.ID, p.ID)
		testutil.AssertAppError(t, err, "INSUFFICIENT_HOLDINGS")
	})

	t.Run("skip_and_flag", func(t *testing.T) {
		engine := valuation.NewEngine(staticPrices(nil), valuation.WithClock(fixedClock), valuation.WithPolicy(valuation.SkipAndFlag))
		svc := NewCorrelationService(db, engine, history, testOptions()...)
		result, err := svc.Analyze(context.Background(), user.ID, p.ID)
		testutil.AssertNoError(t, err)
		if len(result.Matrix) != 1 {
			t.Fatalf("expected only the good asset in the matrix, got %d", len(result.Matrix))
		}
		if _, ok := result.Matrix[good.ID]; !ok {
			t.Error("expected the good asset to be correlated")
		}
	})
}
