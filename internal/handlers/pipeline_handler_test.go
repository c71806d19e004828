package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

const testPipelineKey = "pipeline-secret"

func newTestHandlers(analytics *mockAnalyticsService, alerts *mockAlertService, md *mockMarketDataService) *Handlers {
	audit := &mockAuditService{}
	return &Handlers{
		Auth:        NewAuthHandler(&mockUserService{}, audit),
		Portfolio:   NewPortfolioHandler(&mockPortfolioService{}, audit),
		Asset:       NewAssetHandler(&mockAssetService{}, md, audit),
		Transaction: NewTransactionHandler(&mockTransactionService{}, audit),
		Analytics:   NewAnalyticsHandler(analytics, audit),
		Report:      NewReportHandler(&mockReportService{}),
		Insight:     NewInsightHandler(&mockRebalanceService{}, &mockCorrelationService{}),
		Alert:       NewAlertHandler(alerts, audit),
		Pipeline:    NewPipelineHandler(analytics, alerts, md),
	}
}

func setupFullRouter(h *Handlers, key string) *gin.Engine {
	r := gin.New()
	h.RegisterRoutes(r, key)
	return r
}

func doPipelineRequest(r *gin.Engine, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPipelineHandler(t *testing.T) {
	analytics := &mockAnalyticsService{
		recordDailySnapshotsFn: func(context.Context) (*services.SweepResult, error) {
			return &services.SweepResult{Success: 3, Errors: 1}, nil
		},
	}
	alerts := &mockAlertService{
		checkAlertsFn: func(context.Context) (*services.AlertCheckResult, error) {
			return &services.AlertCheckResult{Checked: 5, Triggered: 2}, nil
		},
	}
	cleared := false
	md := &mockMarketDataService{
		refreshAllFn: func(context.Context) (*services.RefreshResult, error) {
			return &services.RefreshResult{Assets: 4, Priced: 4}, nil
		},
		clearCacheFn: func(context.Context) error {
			cleared = true
			return nil
		},
	}
	r := setupFullRouter(newTestHandlers(analytics, alerts, md), testPipelineKey)

	t.Run("snapshot sweep reports counts", func(t *testing.T) {
		rec := doPipelineRequest(r, "POST", "/pipeline/snapshots", testPipelineKey)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := parseJSON(t, rec)
		if body["success"] != float64(3) || body["errors"] != float64(1) {
			t.Errorf("unexpected sweep result %v", body)
		}
	})

	t.Run("alert check reports counts", func(t *testing.T) {
		rec := doPipelineRequest(r, "POST", "/pipeline/alerts/check", testPipelineKey)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["triggered"] != float64(2) {
			t.Error("expected 2 triggered alerts")
		}
	})

	t.Run("price refresh reports counts", func(t *testing.T) {
		rec := doPipelineRequest(r, "POST", "/pipeline/prices/refresh", testPipelineKey)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["priced"] != float64(4) {
			t.Error("expected 4 priced assets")
		}
	})

	t.Run("cache clear", func(t *testing.T) {
		rec := doPipelineRequest(r, "DELETE", "/pipeline/prices/cache", testPipelineKey)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !cleared {
			t.Error("expected cache to be cleared")
		}
	})

	t.Run("providers", func(t *testing.T) {
		rec := doPipelineRequest(r, "GET", "/pipeline/prices/providers", testPipelineKey)

		providers, ok := parseJSON(t, rec)["providers"].([]interface{})
		if !ok || len(providers) != 1 || providers[0] != "static" {
			t.Errorf("expected [static], got %v", providers)
		}
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		rec := doPipelineRequest(r, "POST", "/pipeline/snapshots", "nope")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_API_KEY")
	})

	t.Run("sweep failure maps to 500", func(t *testing.T) {
		failing := &mockAnalyticsService{
			recordDailySnapshotsFn: func(context.Context) (*services.SweepResult, error) {
				return nil, errors.New("database is gone")
			},
		}
		r := setupFullRouter(newTestHandlers(failing, &mockAlertService{}, &mockMarketDataService{}), testPipelineKey)

		rec := doPipelineRequest(r, "POST", "/pipeline/snapshots", testPipelineKey)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestRegisterRoutes(t *testing.T) {
	t.Run("pipeline disabled without key", func(t *testing.T) {
		r := setupFullRouter(newTestHandlers(&mockAnalyticsService{}, &mockAlertService{}, &mockMarketDataService{}), "")

		rec := doPipelineRequest(r, "POST", "/pipeline/snapshots", "anything")

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		r := setupFullRouter(newTestHandlers(&mockAnalyticsService{}, &mockAlertService{}, &mockMarketDataService{}), testPipelineKey)

		for _, path := range []string{
			"/api/v1/profile",
			"/api/v1/dashboard",
			"/api/v1/portfolios",
			"/api/v1/portfolios/" + testPortfolioID + "/correlation",
			"/api/v1/transactions",
			"/api/v1/alerts",
		} {
			rec := doRequest(r, "GET", path, "")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s: expected 401, got %d", path, rec.Code)
			}
		}
	})

	t.Run("unknown routes answer NOT_FOUND", func(t *testing.T) {
		r := setupFullRouter(newTestHandlers(&mockAnalyticsService{}, &mockAlertService{}, &mockMarketDataService{}), testPipelineKey)

		rec := doRequest(r, "GET", "/api/v2/nothing", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NOT_FOUND")
	})

	t.Run("auth routes are public", func(t *testing.T) {
		r := setupFullRouter(newTestHandlers(&mockAnalyticsService{}, &mockAlertService{}, &mockMarketDataService{}), testPipelineKey)

		rec := doRequest(r, "POST", "/api/v1/auth/login", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 from validation, got %d", rec.Code)
		}
	})
}
