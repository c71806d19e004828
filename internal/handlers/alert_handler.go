package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

// AlertHandler handles price alert requests.
type AlertHandler struct {
	alertService services.AlertServicer
	auditService services.AuditServicer
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertService services.AlertServicer, auditService services.AuditServicer) *AlertHandler {
	return &AlertHandler{alertService: alertService, auditService: auditService}
}

// AlertRequest represents the request payload for creating or replacing an alert
type AlertRequest struct {
	AssetID     string                `json:"asset_id" binding:"required,uuid"`
	Condition   models.AlertCondition `json:"condition_type" binding:"required,alert_condition"`
	TargetPrice *decimal.Decimal      `json:"target_price" binding:"required" swaggertype:"string"`
	Currency    string                `json:"currency" binding:"required,iso4217"`
}

// BulkAlertRequest represents several alerts created together
type BulkAlertRequest struct {
	Alerts []AlertRequest `json:"alerts" binding:"required,min=1,max=100,dive"`
}

// ToggleAlertRequest switches an alert on or off
type ToggleAlertRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (r AlertRequest) input() services.AlertInput {
	return services.AlertInput{
		AssetID:     r.AssetID,
		Condition:   r.Condition,
		TargetPrice: *r.TargetPrice,
		Currency:    r.Currency,
	}
}

// CreateAlert creates a price alert
// @Summary     Create price alert
// @Description ABOVE fires when the price rises strictly above the target, BELOW when it falls strictly below.
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AlertRequest true "Alert details"
// @Success     201 {object} models.PriceAlert "Alert created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Router      /alerts [post]
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	alert, err := h.alertService.CreateAlert(userID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_ALERT", models.AuditResourceAlert, alert.ID, c.ClientIP(),
		map[string]interface{}{"asset_id": req.AssetID, "condition": req.Condition})

	c.JSON(http.StatusCreated, gin.H{"alert": alert})
}

// CreateAlerts creates several alerts at once
// @Summary     Bulk create price alerts
// @Description All alerts are created or none are.
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BulkAlertRequest true "Alerts"
// @Success     201 {array}  models.PriceAlert "Alerts created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /alerts/bulk [post]
func (h *AlertHandler) CreateAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BulkAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	inputs := make([]services.AlertInput, len(req.Alerts))
	for i, a := range req.Alerts {
		inputs[i] = a.input()
	}

	alerts, err := h.alertService.CreateAlerts(userID, inputs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_ALERTS", models.AuditResourceAlert, "", c.ClientIP(),
		map[string]interface{}{"count": len(alerts)})

	c.JSON(http.StatusCreated, gin.H{"alerts": alerts})
}

// GetUserAlerts lists the caller's alerts
// @Summary     List price alerts
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       active    query bool false "Filter by active flag"
// @Param       triggered query bool false "Filter by whether the alert has fired"
// @Success     200 {array}  models.PriceAlert "Alerts, newest first"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /alerts [get]
func (h *AlertHandler) GetUserAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.AlertFilter
	for param, dst := range map[string]**bool{"active": &filter.Active, "triggered": &filter.Triggered} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid "+param))
			return
		}
		*dst = &b
	}

	alerts, err := h.alertService.GetUserAlerts(userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// alertRequest resolves the caller and the :id alert parameter.
func alertRequest(c *gin.Context) (userID, alertID string, ok bool) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	alertID, err = parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	return userID, alertID, true
}

// GetAlertByID returns one alert
// @Summary     Get price alert
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Alert ID"
// @Success     200 {object} models.PriceAlert "Alert"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Router      /alerts/{id} [get]
func (h *AlertHandler) GetAlertByID(c *gin.Context) {
	userID, alertID, ok := alertRequest(c)
	if !ok {
		return
	}

	alert, err := h.alertService.GetAlertByID(userID, alertID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert})
}

// UpdateAlert replaces an alert's condition
// @Summary     Update price alert
// @Description A fired alert is re-armed by an update.
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string       true "Alert ID"
// @Param       request body AlertRequest true "Alert details"
// @Success     200 {object} models.PriceAlert "Updated alert"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Router      /alerts/{id} [put]
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	userID, alertID, ok := alertRequest(c)
	if !ok {
		return
	}

	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	alert, err := h.alertService.UpdateAlert(userID, alertID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_ALERT", models.AuditResourceAlert, alert.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"alert": alert})
}

// ToggleAlert activates or deactivates an alert
// @Summary     Toggle price alert
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Alert ID"
// @Param       request body ToggleAlertRequest true "Desired state"
// @Success     200 {object} models.PriceAlert "Updated alert"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Router      /alerts/{id}/toggle [patch]
func (h *AlertHandler) ToggleAlert(c *gin.Context) {
	userID, alertID, ok := alertRequest(c)
	if !ok {
		return
	}

	var req ToggleAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	alert, err := h.alertService.ToggleAlert(userID, alertID, *req.Active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert})
}

// ResetAlert re-arms a fired alert
// @Summary     Reset price alert
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Alert ID"
// @Success     200 {object} models.PriceAlert "Re-armed alert"
// @Failure     404 {object} ErrorResponse "Alert not found or not triggered"
// @Router      /alerts/{id}/reset [post]
func (h *AlertHandler) ResetAlert(c *gin.Context) {
	userID, alertID, ok := alertRequest(c)
	if !ok {
		return
	}

	alert, err := h.alertService.ResetAlert(userID, alertID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert})
}

// DeleteAlert removes an alert
// @Summary     Delete price alert
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Alert ID"
// @Success     200 {object} MessageResponse "Alert deleted"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Router      /alerts/{id} [delete]
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	userID, alertID, ok := alertRequest(c)
	if !ok {
		return
	}

	if err := h.alertService.DeleteAlert(userID, alertID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_ALERT", models.AuditResourceAlert, alertID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Price alert deleted successfully"})
}
