package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/metrics"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

// alertService manages price alerts and evaluates them against current prices.
type alertService struct {
	db      *gorm.DB
	prices  valuation.PriceLookup
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewAlertService creates a new AlertServicer.
func NewAlertService(db *gorm.DB, prices valuation.PriceLookup, opts ...Option) AlertServicer {
	o := newOptions(opts)
	return &alertService{db: db, prices: prices, now: o.now, metrics: o.metrics}
}

func (s *alertService) validate(input *AlertInput) error {
	if !input.Condition.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "condition must be ABOVE or BELOW")
	}
	if !input.TargetPrice.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "target price must be greater than zero")
	}
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if !finmath.IsCurrency(input.Currency) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported currency "+input.Currency)
	}
	if _, err := findAsset(s.db, input.AssetID); err != nil {
		return err
	}
	return nil
}

// CreateAlert creates an active alert.
func (s *alertService) CreateAlert(userID string, input AlertInput) (*models.PriceAlert, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	alert := &models.PriceAlert{
		UserID:      userID,
		AssetID:     input.AssetID,
		Condition:   input.Condition,
		TargetPrice: input.TargetPrice,
		Currency:    input.Currency,
		IsActive:    true,
	}
	if err := s.db.Create(alert).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetAlertByID(userID, alert.ID)
}

// CreateAlerts creates several alerts atomically.
func (s *alertService) CreateAlerts(userID string, inputs []AlertInput) ([]models.PriceAlert, error) {
	if len(inputs) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alerts list cannot be empty")
	}
	alerts := make([]models.PriceAlert, len(inputs))
	for i := range inputs {
		if err := s.validate(&inputs[i]); err != nil {
			return nil, err
		}
		alerts[i] = models.PriceAlert{
			UserID:      userID,
			AssetID:     inputs[i].AssetID,
			Condition:   inputs[i].Condition,
			TargetPrice: inputs[i].TargetPrice,
			Currency:    inputs[i].Currency,
			IsActive:    true,
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range alerts {
			if err := tx.Omit("Asset").Create(&alerts[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(alerts))
	for i := range alerts {
		ids[i] = alerts[i].ID
	}
	var created []models.PriceAlert
	if err := s.db.Preload("Asset").Where("id IN ?", ids).Order("created_at ASC, id ASC").Find(&created).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return created, nil
}

// GetUserAlerts lists a user's alerts, newest first.
func (s *alertService) GetUserAlerts(userID string, filter AlertFilter) ([]models.PriceAlert, error) {
	q := s.db.Preload("Asset").Where("user_id = ?", userID)
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if filter.Triggered != nil {
		if *filter.Triggered {
			q = q.Where("triggered_at IS NOT NULL")
		} else {
			q = q.Where("triggered_at IS NULL")
		}
	}

	alerts := []models.PriceAlert{}
	if err := q.Order("created_at DESC, id DESC").Find(&alerts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return alerts, nil
}

// GetAlertByID retrieves one of the user's alerts.
func (s *alertService) GetAlertByID(userID, alertID string) (*models.PriceAlert, error) {
	var alert models.PriceAlert
	if err := s.db.Preload("Asset").Where("id = ? AND user_id = ?", alertID, userID).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAlertNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &alert, nil
}

// UpdateAlert replaces an alert's condition. A triggered alert is re-armed.
func (s *alertService) UpdateAlert(userID, alertID string, input AlertInput) (*models.PriceAlert, error) {
	alert, err := s.GetAlertByID(userID, alertID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"asset_id":       input.AssetID,
		"condition_type": input.Condition,
		"target_price":   input.TargetPrice,
		"currency":       input.Currency,
	}
	if alert.TriggeredAt != nil {
		updates["triggered_at"] = nil
		updates["is_active"] = true
	}
	if err := s.db.Model(&models.PriceAlert{}).Where("id = ?", alert.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetAlertByID(userID, alertID)
}

// ToggleAlert activates or deactivates an alert.
func (s *alertService) ToggleAlert(userID, alertID string, active bool) (*models.PriceAlert, error) {
	alert, err := s.GetAlertByID(userID, alertID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.PriceAlert{}).Where("id = ?", alert.ID).Update("is_active", active).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetAlertByID(userID, alertID)
}

// ResetAlert re-arms a triggered alert. Alerts that never fired are not
// found by this operation.
func (s *alertService) ResetAlert(userID, alertID string) (*models.PriceAlert, error) {
	alert, err := s.GetAlertByID(userID, alertID)
	if err != nil {
		return nil, err
	}
	if alert.TriggeredAt == nil {
		return nil, apperrors.WithMessage(apperrors.ErrAlertNotFound, "Price alert has not been triggered")
	}
	if err := s.db.Model(&models.PriceAlert{}).Where("id = ?", alert.ID).
		Updates(map[string]interface{}{"triggered_at": nil, "is_active": true}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetAlertByID(userID, alertID)
}

// DeleteAlert removes one of the user's alerts.
func (s *alertService) DeleteAlert(userID, alertID string) error {
	result := s.db.Where("id = ? AND user_id = ?", alertID, userID).Delete(&models.PriceAlert{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAlertNotFound
	}
	return nil
}

// CheckAlerts evaluates every active, untriggered alert. ABOVE fires when
// the price is strictly above target, BELOW when strictly below. A fired
// alert records its trigger time and is deactivated. Alerts without a
// price are left for the next pass.
func (s *alertService) CheckAlerts(ctx context.Context) (*AlertCheckResult, error) {
	var alerts []models.PriceAlert
	if err := s.db.WithContext(ctx).Preload("Asset").
		Where("is_active = ? AND triggered_at IS NULL", true).
		Order("created_at ASC, id ASC").
		Find(&alerts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &AlertCheckResult{}
	for i := range alerts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		alert := &alerts[i]
		result.Checked++

		price, ok := s.prices.CurrentPrice(ctx, alert.Asset, alert.Currency)
		if !ok {
			result.Unpriced++
			continue
		}
		if !alert.Condition.Triggered(price, alert.TargetPrice) {
			continue
		}

		now := s.now().UTC()
		err := s.db.WithContext(ctx).Model(&models.PriceAlert{}).
			Where("id = ? AND triggered_at IS NULL", alert.ID).
			Updates(map[string]interface{}{"triggered_at": now, "is_active": false}).Error
		if err != nil {
			logger.Get().Errorw("Failed to mark alert triggered", "alert_id", alert.ID, "error", err)
			continue
		}
		result.Triggered++
		s.metrics.AlertsTriggered.Inc()
		logger.Get().Infow("Price alert triggered",
			"alert_id", alert.ID,
			"user_id", alert.UserID,
			"symbol", alert.Asset.Symbol,
			"condition", alert.Condition,
			"target_price", alert.TargetPrice,
			"price", price,
			"currency", alert.Currency,
		)
	}
	return result, nil
}
