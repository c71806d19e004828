package models

// AuditResource names the kind of record an audit entry points at.
type AuditResource string

const (
	AuditResourceUser        AuditResource = "user"
	AuditResourcePortfolio   AuditResource = "portfolio"
	AuditResourceAsset       AuditResource = "asset"
	AuditResourceTransaction AuditResource = "transaction"
	AuditResourceSnapshot    AuditResource = "portfolio_snapshot"
	AuditResourceAlert       AuditResource = "price_alert"
)

// AuditLog is one user-initiated write. Changes holds the JSON of the
// fields that were sent, with amounts as decimal strings.
type AuditLog struct {
	Base
	UserID       string        `gorm:"type:uuid;not null;index" json:"user_id"`
	Action       string        `gorm:"not null" json:"action"`
	ResourceType AuditResource `gorm:"type:text;not null" json:"resource_type"`
	ResourceID   string        `json:"resource_id,omitempty"`
	IPAddress    string        `json:"ip_address"`
	Changes      string        `json:"changes,omitempty"`
}
