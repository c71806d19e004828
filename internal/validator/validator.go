// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("asset_type", validateAssetType)
		_ = v.RegisterValidation("risk_profile", validateRiskProfile)
		_ = v.RegisterValidation("alert_condition", validateAlertCondition)
	}
}

// Currency codes are accepted in any case; services upper-case them.
func validateISO4217(fl validator.FieldLevel) bool {
	return finmath.IsCurrency(strings.ToUpper(fl.Field().String()))
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}

func validateAssetType(fl validator.FieldLevel) bool {
	return models.AssetType(fl.Field().String()).Valid()
}

func validateRiskProfile(fl validator.FieldLevel) bool {
	return models.RiskProfile(fl.Field().String()).Valid()
}

func validateAlertCondition(fl validator.FieldLevel) bool {
	return models.AlertCondition(fl.Field().String()).Valid()
}
