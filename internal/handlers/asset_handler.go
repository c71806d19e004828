package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

// defaultHistoryDays is the look-back of a price history request without from_date.
const defaultHistoryDays = 30

// AssetHandler serves the shared asset catalogue and its prices.
type AssetHandler struct {
	assetService      services.AssetServicer
	marketDataService services.MarketDataServicer
	auditService      services.AuditServicer
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assetService services.AssetServicer, marketDataService services.MarketDataServicer, auditService services.AuditServicer) *AssetHandler {
	return &AssetHandler{assetService: assetService, marketDataService: marketDataService, auditService: auditService}
}

// CreateAssetRequest represents the request payload for registering an asset
type CreateAssetRequest struct {
	Symbol         string           `json:"symbol" binding:"required,min=1,max=20"`
	Name           string           `json:"name" binding:"required,min=1,max=200"`
	Type           models.AssetType `json:"type" binding:"required,asset_type"`
	Currency       string           `json:"currency" binding:"omitempty,iso4217"`
	Exchange       string           `json:"exchange" binding:"max=20"`
	Network        string           `json:"network" binding:"max=50"`
	ProviderSymbol string           `json:"provider_symbol" binding:"max=100"`
}

// CreateAsset registers an asset in the catalogue
// @Summary     Create an asset
// @Description Register a stock, ETF, bond, crypto or REIT. Symbol and type are unique together.
// @Tags        assets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAssetRequest true "Asset details"
// @Success     201 {object} models.Asset "Asset created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Asset already exists"
// @Router      /assets [post]
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	asset, err := h.assetService.CreateAsset(services.AssetInput{
		Symbol:         req.Symbol,
		Name:           req.Name,
		Type:           req.Type,
		Currency:       req.Currency,
		Exchange:       req.Exchange,
		Network:        req.Network,
		ProviderSymbol: req.ProviderSymbol,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_ASSET", models.AuditResourceAsset, asset.ID, c.ClientIP(),
		map[string]interface{}{"symbol": asset.Symbol, "type": asset.Type})

	c.JSON(http.StatusCreated, gin.H{"asset": asset})
}

// ListAssets searches the catalogue
// @Summary     List assets
// @Tags        assets
// @Produce     json
// @Security    BearerAuth
// @Param       q         query string false "Match symbol or name"
// @Param       type      query string false "Asset type (stock, etf, bond, crypto, reit)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Asset] "Paginated assets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /assets [get]
func (h *AssetHandler) ListAssets(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.AssetFilter{Query: strings.TrimSpace(c.Query("q"))}
	if v := c.Query("type"); v != "" {
		assetType := models.AssetType(v)
		if !assetType.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be stock, etf, bond, crypto, or reit"))
			return
		}
		filter.Type = &assetType
	}

	result, err := h.assetService.ListAssets(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAssetByID returns one asset
// @Summary     Get asset by ID
// @Tags        assets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Asset ID"
// @Success     200 {object} models.Asset "Asset details"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Router      /assets/{id} [get]
func (h *AssetHandler) GetAssetByID(c *gin.Context) {
	assetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	asset, err := h.assetService.GetAssetByID(assetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": asset})
}

// GetCurrentPrice returns the asset's current price
// @Summary     Current price
// @Description Cached for the configured TTL; providers are tried in registration order.
// @Tags        assets
// @Produce     json
// @Security    BearerAuth
// @Param       id       path  string true  "Asset ID"
// @Param       currency query string false "Quote currency (defaults to the asset's currency)"
// @Success     200 {object} services.PriceQuote "Price quote"
// @Failure     404 {object} ErrorResponse "Asset not found or no price available"
// @Router      /assets/{id}/price [get]
func (h *AssetHandler) GetCurrentPrice(c *gin.Context) {
	assetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	quote, err := h.marketDataService.GetCurrentPrice(c.Request.Context(), assetID, c.Query("currency"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quote": quote})
}

// GetPriceHistory returns recorded prices for an asset
// @Summary     Price history
// @Tags        assets
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Asset ID"
// @Param       from_date query string false "Start (RFC3339 or YYYY-MM-DD, default 30 days ago)"
// @Param       to_date   query string false "End (RFC3339 or YYYY-MM-DD, default now)"
// @Success     200 {array}  models.PriceSnapshot "Prices, oldest first"
// @Failure     400 {object} ErrorResponse "Invalid date range"
// @Router      /assets/{id}/history [get]
func (h *AssetHandler) GetPriceHistory(c *gin.Context) {
	assetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end := time.Now().UTC()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -defaultHistoryDays)
	if from != nil {
		start = *from
	}

	history, err := h.marketDataService.GetPriceHistory(c.Request.Context(), assetID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prices": history})
}
