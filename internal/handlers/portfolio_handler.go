package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

// PortfolioHandler handles portfolio-related requests.
type PortfolioHandler struct {
	portfolioService services.PortfolioServicer
	auditService     services.AuditServicer
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService services.PortfolioServicer, auditService services.AuditServicer) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService, auditService: auditService}
}

// CreatePortfolioRequest represents the request payload for creating a portfolio
type CreatePortfolioRequest struct {
	Name         string             `json:"name" binding:"required,min=1,max=100"`
	Description  string             `json:"description" binding:"max=500"`
	BaseCurrency string             `json:"base_currency" binding:"omitempty,iso4217"`
	RiskProfile  models.RiskProfile `json:"risk_profile" binding:"omitempty,risk_profile"`
}

// UpdatePortfolioRequest represents the request payload for updating a portfolio
type UpdatePortfolioRequest struct {
	Name        *string             `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string             `json:"description" binding:"omitempty,max=500"`
	RiskProfile *models.RiskProfile `json:"risk_profile" binding:"omitempty,risk_profile"`
}

// DuplicatePortfolioRequest represents the request payload for copying a portfolio
type DuplicatePortfolioRequest struct {
	Name             string `json:"name" binding:"max=100"`
	CopyTransactions bool   `json:"copy_transactions"`
}

// CreatePortfolio handles the creation of a new portfolio
// @Summary     Create a portfolio
// @Description Create a new investment portfolio for the authenticated user
// @Tags        portfolios
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePortfolioRequest true "Portfolio details"
// @Success     201 {object} models.Portfolio "Portfolio created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios [post]
func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	portfolio, err := h.portfolioService.CreatePortfolio(userID, services.PortfolioInput{
		Name:         req.Name,
		Description:  req.Description,
		BaseCurrency: req.BaseCurrency,
		RiskProfile:  req.RiskProfile,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_PORTFOLIO", models.AuditResourcePortfolio, portfolio.ID, c.ClientIP(),
		map[string]interface{}{"name": portfolio.Name, "base_currency": portfolio.BaseCurrency})

	c.JSON(http.StatusCreated, gin.H{"portfolio": portfolio})
}

// GetUserPortfolios lists the authenticated user's portfolios
// @Summary     List portfolios
// @Description Get a paginated list of the authenticated user's portfolios
// @Tags        portfolios
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Portfolio] "Paginated portfolios"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios [get]
func (h *PortfolioHandler) GetUserPortfolios(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.portfolioService.GetUserPortfolios(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPortfolioByID returns one portfolio
// @Summary     Get portfolio by ID
// @Tags        portfolios
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} models.Portfolio "Portfolio details"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id} [get]
func (h *PortfolioHandler) GetPortfolioByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolio, err := h.portfolioService.GetPortfolioByID(userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolio": portfolio})
}

// UpdatePortfolio changes a portfolio's name, description or risk profile
// @Summary     Update portfolio
// @Description The base currency cannot change once transactions exist, so it is not editable.
// @Tags        portfolios
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Portfolio ID"
// @Param       request body UpdatePortfolioRequest true "Fields to update"
// @Success     200 {object} models.Portfolio "Updated portfolio"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id} [put]
func (h *PortfolioHandler) UpdatePortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	portfolio, err := h.portfolioService.UpdatePortfolio(userID, portfolioID, services.PortfolioUpdate{
		Name:        req.Name,
		Description: req.Description,
		RiskProfile: req.RiskProfile,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_PORTFOLIO", models.AuditResourcePortfolio, portfolio.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"portfolio": portfolio})
}

// DeletePortfolio removes a portfolio with its transactions and snapshots
// @Summary     Delete portfolio
// @Tags        portfolios
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} MessageResponse "Portfolio deleted"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id} [delete]
func (h *PortfolioHandler) DeletePortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.portfolioService.DeletePortfolio(userID, portfolioID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_PORTFOLIO", models.AuditResourcePortfolio, portfolioID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Portfolio deleted successfully"})
}

// DuplicatePortfolio copies a portfolio, optionally with its transactions
// @Summary     Duplicate portfolio
// @Tags        portfolios
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                    true  "Portfolio ID"
// @Param       request body DuplicatePortfolioRequest false "Copy options"
// @Success     201 {object} models.Portfolio "Copied portfolio"
// @Failure     403 {object} ErrorResponse "Portfolio owned by another user"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/duplicate [post]
func (h *PortfolioHandler) DuplicatePortfolio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DuplicatePortfolioRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	portfolio, err := h.portfolioService.DuplicatePortfolio(userID, portfolioID, req.Name, req.CopyTransactions)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DUPLICATE_PORTFOLIO", models.AuditResourcePortfolio, portfolio.ID, c.ClientIP(),
		map[string]interface{}{"source_id": portfolioID, "copy_transactions": req.CopyTransactions})

	c.JSON(http.StatusCreated, gin.H{"portfolio": portfolio})
}
