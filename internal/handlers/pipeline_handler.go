package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

// PipelineHandler exposes the batch jobs to external schedulers. Routes are
// guarded by the pipeline API key rather than a user token.
type PipelineHandler struct {
	analyticsService  services.AnalyticsServicer
	alertService      services.AlertServicer
	marketDataService services.MarketDataServicer
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(analyticsService services.AnalyticsServicer, alertService services.AlertServicer, marketDataService services.MarketDataServicer) *PipelineHandler {
	return &PipelineHandler{
		analyticsService:  analyticsService,
		alertService:      alertService,
		marketDataService: marketDataService,
	}
}

// RecordSnapshots runs the daily snapshot sweep
// @Summary     Snapshot sweep
// @Description Values every portfolio and records a snapshot. Failures are counted and do not stop the sweep.
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} services.SweepResult "Sweep tally"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/snapshots [post]
func (h *PipelineHandler) RecordSnapshots(c *gin.Context) {
	result, err := h.analyticsService.RecordDailySnapshots(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	logger.Get().Infow("pipeline snapshot sweep finished", "success", result.Success, "errors", result.Errors)
	c.JSON(http.StatusOK, result)
}

// CheckAlerts evaluates active price alerts
// @Summary     Check price alerts
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} services.AlertCheckResult "Check tally"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/alerts/check [post]
func (h *PipelineHandler) CheckAlerts(c *gin.Context) {
	result, err := h.alertService.CheckAlerts(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RefreshPrices refreshes the price of every held asset
// @Summary     Refresh prices
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} services.RefreshResult "Refresh tally"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/prices/refresh [post]
func (h *PipelineHandler) RefreshPrices(c *gin.Context) {
	result, err := h.marketDataService.RefreshAll(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClearPriceCache drops all cached prices
// @Summary     Clear price cache
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} MessageResponse "Cache cleared"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/prices/cache [delete]
func (h *PipelineHandler) ClearPriceCache(c *gin.Context) {
	if err := h.marketDataService.ClearCache(c.Request.Context()); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Price cache cleared"})
}

// GetProviders lists the configured price providers in lookup order
// @Summary     Price providers
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} map[string][]string "Provider names"
// @Router      /pipeline/prices/providers [get]
func (h *PipelineHandler) GetProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.marketDataService.Providers()})
}
