package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of position movement.
type TransactionType string

const (
	TransactionTypeBuy         TransactionType = "BUY"
	TransactionTypeSell        TransactionType = "SELL"
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeWithdraw    TransactionType = "WITHDRAW"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t.Increases() || t.Decreases()
}

// Increases reports whether t adds units to a position.
func (t TransactionType) Increases() bool {
	switch t {
	case TransactionTypeBuy, TransactionTypeDeposit, TransactionTypeTransferIn:
		return true
	}
	return false
}

// Decreases reports whether t removes units from a position.
func (t TransactionType) Decreases() bool {
	switch t {
	case TransactionTypeSell, TransactionTypeWithdraw, TransactionTypeTransferOut:
		return true
	}
	return false
}

// IsTransfer reports whether t is one leg of a transfer pair.
func (t TransactionType) IsTransfer() bool {
	return t == TransactionTypeTransferIn || t == TransactionTypeTransferOut
}

// Transaction is a single trade or movement of an asset within a portfolio.
// Transfers are stored as two rows (TRANSFER_OUT in the source portfolio,
// TRANSFER_IN in the target) sharing TransferPairID.
type Transaction struct {
	Base
	PortfolioID         string          `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	AssetID             string          `gorm:"type:uuid;not null;index" json:"asset_id"`
	Type                TransactionType `gorm:"column:transaction_type;size:20;not null" json:"transaction_type"`
	Quantity            decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"quantity"`
	Price               decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"price"`
	Fee                 decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"fee"`
	TransactionDate     time.Time       `gorm:"not null;index" json:"transaction_date"`
	Notes               string          `json:"notes,omitempty"`
	TransferPortfolioID *string         `gorm:"type:uuid" json:"transfer_portfolio_id,omitempty"`
	TransferPairID      *string         `gorm:"type:uuid;index" json:"transfer_pair_id,omitempty"`

	Asset Asset `gorm:"foreignKey:AssetID" json:"asset"`
}
