package models

// RiskProfile describes the owner's stated risk appetite for a portfolio.
type RiskProfile string

const (
	RiskProfileConservative RiskProfile = "CONSERVATIVE"
	RiskProfileModerate     RiskProfile = "MODERATE"
	RiskProfileAggressive   RiskProfile = "AGGRESSIVE"
)

// Valid reports whether r is a known risk profile.
func (r RiskProfile) Valid() bool {
	switch r {
	case RiskProfileConservative, RiskProfileModerate, RiskProfileAggressive:
		return true
	}
	return false
}

// Portfolio groups a user's transactions. All valuation happens in BaseCurrency.
type Portfolio struct {
	Base
	UserID       string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string      `gorm:"not null" json:"name"`
	Description  string      `json:"description"`
	BaseCurrency string      `gorm:"size:3;not null;default:'USD'" json:"base_currency"`
	RiskProfile  RiskProfile `gorm:"size:20;not null;default:'MODERATE'" json:"risk_profile"`
}

// OwnedBy reports whether the portfolio belongs to the given user.
func (p *Portfolio) OwnedBy(userID string) bool {
	return p.UserID == userID
}
