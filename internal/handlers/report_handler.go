package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

// ReportHandler serves performance and tax reports.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GetPerformanceReport summarizes value changes over a date range
// @Summary     Performance report
// @Description Defaults to the year ending today. Day-over-day returns, best and worst day, volatility and Sharpe ratio come from recorded snapshots.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Portfolio ID"
// @Param       from_date query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "End (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.PerformanceReport "Performance report"
// @Failure     400 {object} ErrorResponse "Invalid date range"
// @Failure     404 {object} ErrorResponse "Portfolio not found or no performance data"
// @Router      /portfolios/{id}/reports/performance [get]
func (h *ReportHandler) GetPerformanceReport(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetPerformanceReport(c.Request.Context(), userID, portfolioID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetTaxReport lists realized gains and losses
// @Summary     Tax report
// @Description Realized results of every SELL in the range, each measured against the average cost held at the time of sale.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Portfolio ID"
// @Param       from_date query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "End (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.TaxReport "Tax report"
// @Failure     400 {object} ErrorResponse "Invalid date range"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/reports/tax [get]
func (h *ReportHandler) GetTaxReport(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetTaxReport(c.Request.Context(), userID, portfolioID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
