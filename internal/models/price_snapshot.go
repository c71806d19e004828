package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/uuid"
)

// PriceSnapshot is one observed market price for an asset in a currency.
// This is immutable time-series data, no Base embed, no soft deletes.
type PriceSnapshot struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID    string          `gorm:"type:uuid;not null;index:idx_price_snapshots_asset_time" json:"asset_id"`
	Price      decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"price"`
	Currency   string          `gorm:"size:3;not null" json:"currency"`
	Source     string          `gorm:"size:50" json:"source"`
	RecordedAt time.Time       `gorm:"not null;index:idx_price_snapshots_asset_time" json:"recorded_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (s *PriceSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New()
	}
	return nil
}
