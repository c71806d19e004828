package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertCondition is the direction a price must cross to trigger an alert.
type AlertCondition string

const (
	AlertConditionAbove AlertCondition = "ABOVE"
	AlertConditionBelow AlertCondition = "BELOW"
)

// Valid reports whether c is a known condition.
func (c AlertCondition) Valid() bool {
	return c == AlertConditionAbove || c == AlertConditionBelow
}

// Triggered reports whether price satisfies the condition against target.
func (c AlertCondition) Triggered(price, target decimal.Decimal) bool {
	switch c {
	case AlertConditionAbove:
		return price.GreaterThan(target)
	case AlertConditionBelow:
		return price.LessThan(target)
	}
	return false
}

// PriceAlert notifies a user once an asset's price crosses a target.
type PriceAlert struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AssetID     string          `gorm:"type:uuid;not null;index" json:"asset_id"`
	Condition   AlertCondition  `gorm:"column:condition_type;size:10;not null" json:"condition_type"`
	TargetPrice decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"target_price"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	TriggeredAt *time.Time      `json:"triggered_at,omitempty"`

	Asset Asset `gorm:"foreignKey:AssetID" json:"asset"`
}
