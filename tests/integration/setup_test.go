package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/handlers"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/marketdata"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/metrics"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/middleware"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/testutil"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/validator"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

const pipelineKey = "integration-pipeline-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test", "")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite database. Prices come from a fixed table keyed by symbol.
func setupApp(t *testing.T, prices map[string]string) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	m := metrics.New(prometheus.NewRegistry())

	table := make(map[string]decimal.Decimal, len(prices))
	for symbol, p := range prices {
		table[symbol] = testutil.D(p)
	}
	providers := []marketdata.Provider{marketdata.NewStaticProvider("static", table)}
	md := marketdata.NewService(db, marketdata.NewMemoryCache(), time.Minute, providers, marketdata.WithMetrics(m))
	engine := valuation.NewEngine(md)

	opts := []services.Option{services.WithMetrics(m), services.WithConcurrency(1)}
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	portfolioService := services.NewPortfolioService(db)
	assetService := services.NewAssetService(db)
	transactionService := services.NewTransactionService(db, opts...)
	marketDataService := services.NewMarketDataService(db, md, opts...)
	analyticsService := services.NewAnalyticsService(db, engine, opts...)
	reportService := services.NewReportService(db, engine, opts...)
	rebalanceService := services.NewRebalanceService(db, engine, opts...)
	correlationService := services.NewCorrelationService(db, engine, md, opts...)
	alertService := services.NewAlertService(db, md, opts...)

	h := &handlers.Handlers{
		Auth:        handlers.NewAuthHandler(userService, auditService),
		Portfolio:   handlers.NewPortfolioHandler(portfolioService, auditService),
		Asset:       handlers.NewAssetHandler(assetService, marketDataService, auditService),
		Transaction: handlers.NewTransactionHandler(transactionService, auditService),
		Analytics:   handlers.NewAnalyticsHandler(analyticsService, auditService),
		Report:      handlers.NewReportHandler(reportService),
		Insight:     handlers.NewInsightHandler(rebalanceService, correlationService),
		Alert:       handlers.NewAlertHandler(alertService, auditService),
		Pipeline:    handlers.NewPipelineHandler(analyticsService, alertService, marketDataService),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	h.RegisterRoutes(router, pipelineKey)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// pipelineRequest calls a pipeline endpoint with the API key.
func (app *testApp) pipelineRequest(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-API-Key", pipelineKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// field returns body[key] as an object.
func field(t *testing.T, body map[string]interface{}, key string) map[string]interface{} {
	t.Helper()
	obj, ok := body[key].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object under %q, got %v", key, body[key])
	}
	return obj
}

// expectStatus fails the test when the response code differs.
func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

// expectErrorCode asserts the error code of an error response.
func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	errObj := field(t, parseJSON(t, rec), "error")
	if errObj["code"] != code {
		t.Errorf("expected error code %s, got %v", code, errObj["code"])
	}
}

// expectDecimal compares a JSON decimal string with want.
func expectDecimal(t *testing.T, name string, got interface{}, want string) {
	t.Helper()
	s, ok := got.(string)
	if !ok {
		t.Fatalf("%s: expected decimal string, got %v", name, got)
	}
	if !testutil.D(s).Equal(testutil.D(want)) {
		t.Errorf("%s: expected %s, got %s", name, want, s)
	}
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := field(t, result, "user")
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// createPortfolio creates a portfolio and returns its ID.
func (app *testApp) createPortfolio(t *testing.T, token, name string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/portfolios", fmt.Sprintf(`{"name":%q}`, name), token)
	expectStatus(t, rec, http.StatusCreated)
	return field(t, parseJSON(t, rec), "portfolio")["id"].(string)
}

// createAsset registers a stock and returns its ID.
func (app *testApp) createAsset(t *testing.T, token, symbol string) string {
	t.Helper()
	body := fmt.Sprintf(`{"symbol":%q,"name":"%s Inc.","type":"stock"}`, symbol, symbol)
	rec := app.request("POST", "/api/v1/assets", body, token)
	expectStatus(t, rec, http.StatusCreated)
	return field(t, parseJSON(t, rec), "asset")["id"].(string)
}

// transact records a transaction and returns the recorder.
func (app *testApp) transact(token, portfolioID, assetID, txType, quantity, price, fee string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"portfolio_id":%q,"asset_id":%q,"type":%q,"quantity":%q,"price":%q,"fee":%q}`,
		portfolioID, assetID, txType, quantity, price, fee)
	return app.request("POST", "/api/v1/transactions", body, token)
}
