package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/correlation"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/rebalance"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/validator"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

const (
	testUserID      = "01900000-0000-7000-8000-000000000001"
	testPortfolioID = "01900000-0000-7000-8000-000000000002"
	testAssetID     = "01900000-0000-7000-8000-000000000003"
	testOtherID     = "01900000-0000-7000-8000-000000000004"
)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- mock services ---

type mockUserService struct {
	createUserFn            func(email, password, firstName, lastName string) (*models.User, error)
	getUserByIDFn           func(id string) (*models.User, error)
	attemptLoginFn          func(email, password string) (*models.User, error)
	storeRefreshTokenHashFn func(userID, tokenHash string) error
	getRefreshTokenHashFn   func(userID string) (string, error)
}

func (m *mockUserService) CreateUser(email, password, firstName, lastName string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(email, password, firstName, lastName)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(string) (*models.User, error) {
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{Base: models.Base{ID: id}}, nil
}

func (m *mockUserService) VerifyPassword(*models.User, string) bool { return true }

func (m *mockUserService) AttemptLogin(email, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return &models.User{}, nil
}

func (m *mockUserService) StoreRefreshTokenHash(userID, tokenHash string) error {
	if m.storeRefreshTokenHashFn != nil {
		return m.storeRefreshTokenHashFn(userID, tokenHash)
	}
	return nil
}

func (m *mockUserService) GetRefreshTokenHash(userID string) (string, error) {
	if m.getRefreshTokenHashFn != nil {
		return m.getRefreshTokenHashFn(userID)
	}
	return "", nil
}

type mockAuditService struct {
	actions []string
}

func (m *mockAuditService) Log(_, action string, _ models.AuditResource, _, _ string, _ map[string]any) {
	m.actions = append(m.actions, action)
}

type mockPortfolioService struct {
	createPortfolioFn    func(userID string, input services.PortfolioInput) (*models.Portfolio, error)
	getUserPortfoliosFn  func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	getPortfolioByIDFn   func(userID, portfolioID string) (*models.Portfolio, error)
	updatePortfolioFn    func(userID, portfolioID string, update services.PortfolioUpdate) (*models.Portfolio, error)
	deletePortfolioFn    func(userID, portfolioID string) error
	duplicatePortfolioFn func(userID, portfolioID, name string, copyTransactions bool) (*models.Portfolio, error)
}

func (m *mockPortfolioService) CreatePortfolio(userID string, input services.PortfolioInput) (*models.Portfolio, error) {
	if m.createPortfolioFn != nil {
		return m.createPortfolioFn(userID, input)
	}
	return &models.Portfolio{}, nil
}

func (m *mockPortfolioService) GetUserPortfolios(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error) {
	if m.getUserPortfoliosFn != nil {
		return m.getUserPortfoliosFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Portfolio{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockPortfolioService) GetPortfolioByID(userID, portfolioID string) (*models.Portfolio, error) {
	if m.getPortfolioByIDFn != nil {
		return m.getPortfolioByIDFn(userID, portfolioID)
	}
	return &models.Portfolio{}, nil
}

func (m *mockPortfolioService) UpdatePortfolio(userID, portfolioID string, update services.PortfolioUpdate) (*models.Portfolio, error) {
	if m.updatePortfolioFn != nil {
		return m.updatePortfolioFn(userID, portfolioID, update)
	}
	return &models.Portfolio{}, nil
}

func (m *mockPortfolioService) DeletePortfolio(userID, portfolioID string) error {
	if m.deletePortfolioFn != nil {
		return m.deletePortfolioFn(userID, portfolioID)
	}
	return nil
}

func (m *mockPortfolioService) DuplicatePortfolio(userID, portfolioID, name string, copyTransactions bool) (*models.Portfolio, error) {
	if m.duplicatePortfolioFn != nil {
		return m.duplicatePortfolioFn(userID, portfolioID, name, copyTransactions)
	}
	return &models.Portfolio{}, nil
}

type mockAssetService struct {
	createAssetFn  func(input services.AssetInput) (*models.Asset, error)
	getAssetByIDFn func(id string) (*models.Asset, error)
	listAssetsFn   func(filter services.AssetFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error)
}

func (m *mockAssetService) CreateAsset(input services.AssetInput) (*models.Asset, error) {
	if m.createAssetFn != nil {
		return m.createAssetFn(input)
	}
	return &models.Asset{}, nil
}

func (m *mockAssetService) GetAssetByID(id string) (*models.Asset, error) {
	if m.getAssetByIDFn != nil {
		return m.getAssetByIDFn(id)
	}
	return &models.Asset{}, nil
}

func (m *mockAssetService) ListAssets(filter services.AssetFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error) {
	if m.listAssetsFn != nil {
		return m.listAssetsFn(filter, page)
	}
	resp := pagination.NewPageResponse([]models.Asset{}, 1, 20, 0)
	return &resp, nil
}

type mockTransactionService struct {
	createTransactionFn   func(userID string, input services.TransactionInput) (*models.Transaction, error)
	getTransactionByIDFn  func(userID, transactionID string) (*models.Transaction, error)
	getUserTransactionsFn func(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	updateTransactionFn   func(userID, transactionID string, update services.TransactionUpdate) (*models.Transaction, error)
	deleteTransactionFn   func(userID, transactionID string) error
}

func (m *mockTransactionService) CreateTransaction(userID string, input services.TransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, input)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) UpdateTransaction(userID, transactionID string, update services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(userID, transactionID, update)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

func (m *mockTransactionService) ListForLedger(string) ([]models.Transaction, error) {
	return nil, nil
}

type mockMarketDataService struct {
	getCurrentPriceFn func(ctx context.Context, assetID, currency string) (*services.PriceQuote, error)
	getPriceHistoryFn func(ctx context.Context, assetID string, from, to time.Time) ([]models.PriceSnapshot, error)
	refreshAllFn      func(ctx context.Context) (*services.RefreshResult, error)
	clearCacheFn      func(ctx context.Context) error
}

func (m *mockMarketDataService) GetCurrentPrice(ctx context.Context, assetID, currency string) (*services.PriceQuote, error) {
	if m.getCurrentPriceFn != nil {
		return m.getCurrentPriceFn(ctx, assetID, currency)
	}
	return &services.PriceQuote{}, nil
}

func (m *mockMarketDataService) GetPriceHistory(ctx context.Context, assetID string, from, to time.Time) ([]models.PriceSnapshot, error) {
	if m.getPriceHistoryFn != nil {
		return m.getPriceHistoryFn(ctx, assetID, from, to)
	}
	return []models.PriceSnapshot{}, nil
}

func (m *mockMarketDataService) RefreshAll(ctx context.Context) (*services.RefreshResult, error) {
	if m.refreshAllFn != nil {
		return m.refreshAllFn(ctx)
	}
	return &services.RefreshResult{}, nil
}

func (m *mockMarketDataService) ClearCache(ctx context.Context) error {
	if m.clearCacheFn != nil {
		return m.clearCacheFn(ctx)
	}
	return nil
}

func (m *mockMarketDataService) Providers() []string { return []string{"static"} }

type mockAnalyticsService struct {
	getSummaryFn           func(ctx context.Context, userID, portfolioID string) (*valuation.Summary, error)
	getHoldingsFn          func(ctx context.Context, userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[valuation.Holding], error)
	createSnapshotFn       func(ctx context.Context, userID, portfolioID string) (*models.PortfolioSnapshot, error)
	getSnapshotHistoryFn   func(ctx context.Context, userID, portfolioID string, from, to *time.Time) ([]models.PortfolioSnapshot, error)
	getPerformanceFn       func(ctx context.Context, userID, portfolioID string, interval services.Interval) ([]models.PortfolioSnapshot, error)
	getReturnsFn           func(ctx context.Context, userID, portfolioID string) (*services.ReturnsReport, error)
	getRiskMetricsFn       func(ctx context.Context, userID, portfolioID string) (*services.RiskMetrics, error)
	getDashboardFn         func(ctx context.Context, userID string) (*services.Dashboard, error)
	recordDailySnapshotsFn func(ctx context.Context) (*services.SweepResult, error)
}

func (m *mockAnalyticsService) GetSummary(ctx context.Context, userID, portfolioID string) (*valuation.Summary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(ctx, userID, portfolioID)
	}
	return &valuation.Summary{}, nil
}

func (m *mockAnalyticsService) GetHoldings(ctx context.Context, userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[valuation.Holding], error) {
	if m.getHoldingsFn != nil {
		return m.getHoldingsFn(ctx, userID, portfolioID, page)
	}
	resp := pagination.NewPageResponse([]valuation.Holding{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAnalyticsService) CreateSnapshot(ctx context.Context, userID, portfolioID string) (*models.PortfolioSnapshot, error) {
	if m.createSnapshotFn != nil {
		return m.createSnapshotFn(ctx, userID, portfolioID)
	}
	return &models.PortfolioSnapshot{}, nil
}

func (m *mockAnalyticsService) GetSnapshotHistory(ctx context.Context, userID, portfolioID string, from, to *time.Time) ([]models.PortfolioSnapshot, error) {
	if m.getSnapshotHistoryFn != nil {
		return m.getSnapshotHistoryFn(ctx, userID, portfolioID, from, to)
	}
	return []models.PortfolioSnapshot{}, nil
}

func (m *mockAnalyticsService) GetPerformance(ctx context.Context, userID, portfolioID string, interval services.Interval) ([]models.PortfolioSnapshot, error) {
	if m.getPerformanceFn != nil {
		return m.getPerformanceFn(ctx, userID, portfolioID, interval)
	}
	return []models.PortfolioSnapshot{}, nil
}

func (m *mockAnalyticsService) GetReturns(ctx context.Context, userID, portfolioID string) (*services.ReturnsReport, error) {
	if m.getReturnsFn != nil {
		return m.getReturnsFn(ctx, userID, portfolioID)
	}
	return &services.ReturnsReport{}, nil
}

func (m *mockAnalyticsService) GetRiskMetrics(ctx context.Context, userID, portfolioID string) (*services.RiskMetrics, error) {
	if m.getRiskMetricsFn != nil {
		return m.getRiskMetricsFn(ctx, userID, portfolioID)
	}
	return &services.RiskMetrics{}, nil
}

func (m *mockAnalyticsService) GetDashboard(ctx context.Context, userID string) (*services.Dashboard, error) {
	if m.getDashboardFn != nil {
		return m.getDashboardFn(ctx, userID)
	}
	return &services.Dashboard{}, nil
}

func (m *mockAnalyticsService) RecordDailySnapshots(ctx context.Context) (*services.SweepResult, error) {
	if m.recordDailySnapshotsFn != nil {
		return m.recordDailySnapshotsFn(ctx)
	}
	return &services.SweepResult{}, nil
}

type mockReportService struct {
	getPerformanceReportFn func(ctx context.Context, userID, portfolioID string, start, end *time.Time) (*services.PerformanceReport, error)
	getTaxReportFn         func(ctx context.Context, userID, portfolioID string, start, end *time.Time) (*services.TaxReport, error)
}

func (m *mockReportService) GetPerformanceReport(ctx context.Context, userID, portfolioID string, start, end *time.Time) (*services.PerformanceReport, error) {
	if m.getPerformanceReportFn != nil {
		return m.getPerformanceReportFn(ctx, userID, portfolioID, start, end)
	}
	return &services.PerformanceReport{}, nil
}

func (m *mockReportService) GetTaxReport(ctx context.Context, userID, portfolioID string, start, end *time.Time) (*services.TaxReport, error) {
	if m.getTaxReportFn != nil {
		return m.getTaxReportFn(ctx, userID, portfolioID, start, end)
	}
	return &services.TaxReport{}, nil
}

type mockRebalanceService struct {
	suggestFn func(ctx context.Context, userID, portfolioID string, targets []rebalance.Target) ([]rebalance.Suggestion, error)
}

func (m *mockRebalanceService) Suggest(ctx context.Context, userID, portfolioID string, targets []rebalance.Target) ([]rebalance.Suggestion, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, userID, portfolioID, targets)
	}
	return []rebalance.Suggestion{}, nil
}

type mockCorrelationService struct {
	analyzeFn func(ctx context.Context, userID, portfolioID string) (*correlation.Result, error)
}

func (m *mockCorrelationService) Analyze(ctx context.Context, userID, portfolioID string) (*correlation.Result, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, userID, portfolioID)
	}
	return &correlation.Result{}, nil
}

type mockAlertService struct {
	createAlertFn   func(userID string, input services.AlertInput) (*models.PriceAlert, error)
	createAlertsFn  func(userID string, inputs []services.AlertInput) ([]models.PriceAlert, error)
	getUserAlertsFn func(userID string, filter services.AlertFilter) ([]models.PriceAlert, error)
	getAlertByIDFn  func(userID, alertID string) (*models.PriceAlert, error)
	updateAlertFn   func(userID, alertID string, input services.AlertInput) (*models.PriceAlert, error)
	toggleAlertFn   func(userID, alertID string, active bool) (*models.PriceAlert, error)
	resetAlertFn    func(userID, alertID string) (*models.PriceAlert, error)
	deleteAlertFn   func(userID, alertID string) error
	checkAlertsFn   func(ctx context.Context) (*services.AlertCheckResult, error)
}

func (m *mockAlertService) CreateAlert(userID string, input services.AlertInput) (*models.PriceAlert, error) {
	if m.createAlertFn != nil {
		return m.createAlertFn(userID, input)
	}
	return &models.PriceAlert{}, nil
}

func (m *mockAlertService) CreateAlerts(userID string, inputs []services.AlertInput) ([]models.PriceAlert, error) {
	if m.createAlertsFn != nil {
		return m.createAlertsFn(userID, inputs)
	}
	return make([]models.PriceAlert, len(inputs)), nil
}

func (m *mockAlertService) GetUserAlerts(userID string, filter services.AlertFilter) ([]models.PriceAlert, error) {
	if m.getUserAlertsFn != nil {
		return m.getUserAlertsFn(userID, filter)
	}
	return []models.PriceAlert{}, nil
}

func (m *mockAlertService) GetAlertByID(userID, alertID string) (*models.PriceAlert, error) {
	if m.getAlertByIDFn != nil {
		return m.getAlertByIDFn(userID, alertID)
	}
	return &models.PriceAlert{}, nil
}

func (m *mockAlertService) UpdateAlert(userID, alertID string, input services.AlertInput) (*models.PriceAlert, error) {
	if m.updateAlertFn != nil {
		return m.updateAlertFn(userID, alertID, input)
	}
	return &models.PriceAlert{}, nil
}

func (m *mockAlertService) ToggleAlert(userID, alertID string, active bool) (*models.PriceAlert, error) {
	if m.toggleAlertFn != nil {
		return m.toggleAlertFn(userID, alertID, active)
	}
	return &models.PriceAlert{}, nil
}

func (m *mockAlertService) ResetAlert(userID, alertID string) (*models.PriceAlert, error) {
	if m.resetAlertFn != nil {
		return m.resetAlertFn(userID, alertID)
	}
	return &models.PriceAlert{}, nil
}

func (m *mockAlertService) DeleteAlert(userID, alertID string) error {
	if m.deleteAlertFn != nil {
		return m.deleteAlertFn(userID, alertID)
	}
	return nil
}

func (m *mockAlertService) CheckAlerts(ctx context.Context) (*services.AlertCheckResult, error) {
	if m.checkAlertsFn != nil {
		return m.checkAlertsFn(ctx)
	}
	return &services.AlertCheckResult{}, nil
}
