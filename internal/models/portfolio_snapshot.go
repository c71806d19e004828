package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/uuid"
)

// PortfolioSnapshot is a dated copy of a portfolio's valuation totals.
// This is immutable time-series data, no Base embed, no soft deletes.
type PortfolioSnapshot struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	PortfolioID     string          `gorm:"type:uuid;not null;index:idx_portfolio_snapshots_portfolio_date" json:"portfolio_id"`
	TotalValue      decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"total_value"`
	TotalCost       decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"total_cost"`
	TotalPnL        decimal.Decimal `gorm:"column:total_pnl;type:numeric(30,10);not null" json:"total_pnl"`
	TotalPnLPercent decimal.Decimal `gorm:"column:total_pnl_percent;type:numeric(30,10);not null" json:"total_pnl_percent"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	SnapshotDate    time.Time       `gorm:"not null;index:idx_portfolio_snapshots_portfolio_date" json:"snapshot_date"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *PortfolioSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New()
	}
	return nil
}
