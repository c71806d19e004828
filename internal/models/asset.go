package models

// AssetType represents the type of investment asset.
type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeETF    AssetType = "etf"
	AssetTypeBond   AssetType = "bond"
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeREIT   AssetType = "reit"
)

// Valid reports whether t is a supported asset type.
func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeStock, AssetTypeETF, AssetTypeBond, AssetTypeCrypto, AssetTypeREIT:
		return true
	}
	return false
}

// Asset represents a tradable instrument shared by all portfolios.
type Asset struct {
	Base
	Symbol         string    `gorm:"not null;uniqueIndex:uq_assets_symbol_type" json:"symbol"`
	Name           string    `gorm:"not null" json:"name"`
	Type           AssetType `gorm:"column:asset_type;not null;uniqueIndex:uq_assets_symbol_type" json:"asset_type"`
	Currency       string    `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Exchange       string    `json:"exchange,omitempty"`
	Network        string    `json:"network,omitempty"`
	ProviderSymbol string    `json:"provider_symbol,omitempty"`
}
