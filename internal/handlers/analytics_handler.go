package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

// AnalyticsHandler serves valuations, snapshots and portfolio statistics.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
	auditService     services.AuditServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer, auditService services.AuditServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, auditService: auditService}
}

// portfolioRequest resolves the caller and the :id portfolio parameter.
func portfolioRequest(c *gin.Context) (userID, portfolioID string, ok bool) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	portfolioID, err = parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	return userID, portfolioID, true
}

// GetSummary values a portfolio at current prices
// @Summary     Portfolio summary
// @Description Replays the portfolio's transactions and values every open position at current prices in the portfolio's base currency.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} valuation.Summary "Valuation summary"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     422 {object} ErrorResponse "Transaction history is inconsistent"
// @Router      /portfolios/{id}/summary [get]
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	summary, err := h.analyticsService.GetSummary(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetHoldings lists a portfolio's valued holdings
// @Summary     Portfolio holdings
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Portfolio ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[valuation.Holding] "Paginated holdings"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/holdings [get]
func (h *AnalyticsHandler) GetHoldings(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.analyticsService.GetHoldings(c.Request.Context(), userID, portfolioID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateSnapshot records the portfolio's current totals
// @Summary     Create snapshot
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     201 {object} models.PortfolioSnapshot "Snapshot recorded"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/snapshots [post]
func (h *AnalyticsHandler) CreateSnapshot(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	snapshot, err := h.analyticsService.CreateSnapshot(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_SNAPSHOT", models.AuditResourceSnapshot, snapshot.ID, c.ClientIP(),
		map[string]interface{}{"portfolio_id": portfolioID})

	c.JSON(http.StatusCreated, gin.H{"snapshot": snapshot})
}

// GetSnapshotHistory lists recorded snapshots
// @Summary     Snapshot history
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Portfolio ID"
// @Param       from_date query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "End (RFC3339 or YYYY-MM-DD)"
// @Success     200 {array}  models.PortfolioSnapshot "Snapshots, oldest first"
// @Failure     400 {object} ErrorResponse "Invalid date range"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/snapshots [get]
func (h *AnalyticsHandler) GetSnapshotHistory(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	snapshots, err := h.analyticsService.GetSnapshotHistory(c.Request.Context(), userID, portfolioID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

// GetPerformance returns the snapshot series for a look-back interval
// @Summary     Performance series
// @Description DAILY covers 30 days, WEEKLY 12 weeks, MONTHLY 12 months. A snapshot is recorded when none exist in the window.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       id       path  string true  "Portfolio ID"
// @Param       interval query string false "DAILY (default), WEEKLY or MONTHLY"
// @Success     200 {array}  models.PortfolioSnapshot "Snapshots, oldest first"
// @Failure     400 {object} ErrorResponse "Invalid interval"
// @Router      /portfolios/{id}/performance [get]
func (h *AnalyticsHandler) GetPerformance(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	interval := services.Interval(strings.ToUpper(c.Query("interval")))
	snapshots, err := h.analyticsService.GetPerformance(c.Request.Context(), userID, portfolioID, interval)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

// GetReturns returns horizon returns
// @Summary     Portfolio returns
// @Description Daily, weekly, monthly, yearly and year-to-date returns from snapshots plus the lifetime return on cost.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} services.ReturnsReport "Returns"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/returns [get]
func (h *AnalyticsHandler) GetReturns(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	returns, err := h.analyticsService.GetReturns(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"returns": returns})
}

// GetRiskMetrics returns concentration, volatility and Sharpe ratio
// @Summary     Risk metrics
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} services.RiskMetrics "Risk metrics"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/risk [get]
func (h *AnalyticsHandler) GetRiskMetrics(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	risk, err := h.analyticsService.GetRiskMetrics(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"risk": risk})
}

// GetDashboard aggregates all of the user's portfolios
// @Summary     Dashboard
// @Description Totals across portfolios, top performing assets and recent transactions. Portfolios that fail to value are skipped and counted.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Dashboard "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	dashboard, err := h.analyticsService.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard})
}
