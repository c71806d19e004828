package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/rebalance"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

// InsightHandler serves rebalancing advice and holding correlations.
type InsightHandler struct {
	rebalanceService   services.RebalanceServicer
	correlationService services.CorrelationServicer
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(rebalanceService services.RebalanceServicer, correlationService services.CorrelationServicer) *InsightHandler {
	return &InsightHandler{rebalanceService: rebalanceService, correlationService: correlationService}
}

// TargetAllocation is one asset's desired share of the portfolio.
type TargetAllocation struct {
	AssetID       string           `json:"asset_id" binding:"required,uuid"`
	TargetPercent *decimal.Decimal `json:"target_percent" binding:"required" swaggertype:"string"`
}

// RebalanceRequest represents the request payload for rebalancing advice
type RebalanceRequest struct {
	Targets []TargetAllocation `json:"targets" binding:"required,min=1,dive"`
}

// SuggestRebalance compares current allocation against targets
// @Summary     Rebalancing suggestions
// @Description One suggestion per target, largest allocation gap first. Gaps of at most 1 percentage point are HOLD. Targets are not required to sum to 100.
// @Tags        insights
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Portfolio ID"
// @Param       request body RebalanceRequest true "Target allocation"
// @Success     200 {array}  rebalance.Suggestion "Suggestions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/rebalance [post]
func (h *InsightHandler) SuggestRebalance(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	var req RebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	targets := make([]rebalance.Target, len(req.Targets))
	for i, t := range req.Targets {
		targets[i] = rebalance.Target{AssetID: t.AssetID, Percent: *t.TargetPercent}
	}

	suggestions, err := h.rebalanceService.Suggest(c.Request.Context(), userID, portfolioID, targets)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// GetCorrelation correlates the price histories of open positions
// @Summary     Holding correlation
// @Description Pearson correlation of daily returns over the last six months, with the strongest positive and inverse pairs.
// @Tags        insights
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} correlation.Result "Correlation analysis"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/correlation [get]
func (h *InsightHandler) GetCorrelation(c *gin.Context) {
	userID, portfolioID, ok := portfolioRequest(c)
	if !ok {
		return
	}

	result, err := h.correlationService.Analyze(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"correlation": result})
}
