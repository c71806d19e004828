package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestSnapshotFlow_RecordAndQuery(t *testing.T) {
	app := setupApp(t, map[string]string{"AAPL": "150", "BTC": "60000"})
	token, _, _ := app.registerUser(t, "snapshot@test.com", "password123")

	portfolioID := app.createPortfolio(t, token, "Mixed")
	aapl := app.createAsset(t, token, "AAPL")
	btc := app.createAsset(t, token, "BTC")
	expectStatus(t, app.transact(token, portfolioID, aapl, "BUY", "10", "100", "0"), http.StatusCreated)
	expectStatus(t, app.transact(token, portfolioID, btc, "BUY", "0.5", "40000", "0"), http.StatusCreated)

	// Step 1: Take a snapshot on demand
	rec := app.request("POST", fmt.Sprintf("/api/v1/portfolios/%s/snapshots", portfolioID), "", token)
	expectStatus(t, rec, http.StatusCreated)
	snapshot := field(t, parseJSON(t, rec), "snapshot")
	expectDecimal(t, "total_value", snapshot["total_value"], "31500")
	expectDecimal(t, "total_cost", snapshot["total_cost"], "21000")
	if snapshot["currency"] != "USD" {
		t.Errorf("expected USD snapshot, got %v", snapshot["currency"])
	}

	// Step 2: The snapshot appears in the history
	rec = app.request("GET", fmt.Sprintf("/api/v1/portfolios/%s/snapshots", portfolioID), "", token)
	expectStatus(t, rec, http.StatusOK)
	if n := len(parseJSON(t, rec)["snapshots"].([]interface{})); n != 1 {
		t.Fatalf("expected 1 snapshot, got %d", n)
	}

	// Step 3: Performance series over the default window
	rec = app.request("GET", fmt.Sprintf("/api/v1/portfolios/%s/performance?interval=daily", portfolioID), "", token)
	expectStatus(t, rec, http.StatusOK)
	if n := len(parseJSON(t, rec)["snapshots"].([]interface{})); n == 0 {
		t.Error("expected a non-empty performance series")
	}

	rec = app.request("GET", fmt.Sprintf("/api/v1/portfolios/%s/performance?interval=hourly", portfolioID), "", token)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestSnapshotFlow_PipelineSweep(t *testing.T) {
	app := setupApp(t, map[string]string{"AAPL": "150"})
	token, _, _ := app.registerUser(t, "sweep@test.com", "password123")

	first := app.createPortfolio(t, token, "One")
	second := app.createPortfolio(t, token, "Two")
	assetID := app.createAsset(t, token, "AAPL")
	expectStatus(t, app.transact(token, first, assetID, "BUY", "1", "100", "0"), http.StatusCreated)
	expectStatus(t, app.transact(token, second, assetID, "BUY", "2", "100", "0"), http.StatusCreated)

	// Without the key the pipeline is closed.
	rec := app.request("POST", "/pipeline/snapshots", "", token)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = app.pipelineRequest("POST", "/pipeline/snapshots")
	expectStatus(t, rec, http.StatusOK)
	result := parseJSON(t, rec)
	if result["errors"].(float64) != 0 || result["success"].(float64) < 2 {
		t.Errorf("expected both portfolios recorded without errors, got %v", result)
	}

	for _, id := range []string{first, second} {
		rec = app.request("GET", fmt.Sprintf("/api/v1/portfolios/%s/snapshots", id), "", token)
		expectStatus(t, rec, http.StatusOK)
		if n := len(parseJSON(t, rec)["snapshots"].([]interface{})); n != 1 {
			t.Errorf("expected 1 snapshot for %s, got %d", id, n)
		}
	}
}
