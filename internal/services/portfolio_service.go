package services

import (
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
)

// portfolioService handles portfolio-related business logic.
type portfolioService struct {
	db *gorm.DB
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB) PortfolioServicer {
	return &portfolioService{db: db}
}

// CreatePortfolio creates a portfolio for a user. The base currency defaults
// to USD and the risk profile to MODERATE.
func (s *portfolioService) CreatePortfolio(userID string, input PortfolioInput) (*models.Portfolio, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "portfolio name is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.BaseCurrency))
	if currency == "" {
		currency = "USD"
	}
	if !finmath.IsCurrency(currency) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported base currency "+currency)
	}

	risk := input.RiskProfile
	if risk == "" {
		risk = models.RiskProfileModerate
	}
	if !risk.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown risk profile")
	}

	portfolio := &models.Portfolio{
		UserID:       userID,
		Name:         name,
		Description:  input.Description,
		BaseCurrency: currency,
		RiskProfile:  risk,
	}
	if err := s.db.Create(portfolio).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return portfolio, nil
}

// GetUserPortfolios retrieves a paginated list of a user's portfolios, oldest first.
func (s *portfolioService) GetUserPortfolios(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Portfolio{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var portfolios []models.Portfolio
	if err := base.Order("created_at ASC, id ASC").Scopes(pagination.Paginate(page)).Find(&portfolios).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(portfolios, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPortfolioByID returns PORTFOLIO_NOT_FOUND for unknown IDs and
// PORTFOLIO_ACCESS_DENIED when another user owns the portfolio.
func (s *portfolioService) GetPortfolioByID(userID, portfolioID string) (*models.Portfolio, error) {
	return getOwnedPortfolio(s.db, userID, portfolioID)
}

// UpdatePortfolio changes name, description or risk profile. The base
// currency is fixed once snapshots exist in it, so it cannot be changed.
func (s *portfolioService) UpdatePortfolio(userID, portfolioID string, update PortfolioUpdate) (*models.Portfolio, error) {
	portfolio, err := getOwnedPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "portfolio name cannot be empty")
		}
		updates["name"] = name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.RiskProfile != nil {
		if !update.RiskProfile.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown risk profile")
		}
		updates["risk_profile"] = *update.RiskProfile
	}
	if len(updates) == 0 {
		return portfolio, nil
	}

	if err := s.db.Model(portfolio).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return getOwnedPortfolio(s.db, userID, portfolioID)
}

// DeletePortfolio removes a portfolio with its transactions and snapshots.
// Transfer legs in other portfolios are kept as plain movements with their
// pair link cleared.
func (s *portfolioService) DeletePortfolio(userID, portfolioID string) error {
	portfolio, err := getOwnedPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var pairIDs []string
		if err := tx.Model(&models.Transaction{}).
			Where("portfolio_id = ? AND transfer_pair_id IS NOT NULL", portfolio.ID).
			Pluck("transfer_pair_id", &pairIDs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(pairIDs) > 0 {
			if err := tx.Model(&models.Transaction{}).
				Where("transfer_pair_id IN ? AND portfolio_id <> ?", pairIDs, portfolio.ID).
				Updates(map[string]interface{}{"transfer_pair_id": nil, "transfer_portfolio_id": nil}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if err := tx.Where("portfolio_id = ?", portfolio.ID).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("portfolio_id = ?", portfolio.ID).Delete(&models.PortfolioSnapshot{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(portfolio).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// DuplicatePortfolio copies a portfolio's settings and, optionally, its
// transactions. Copied transfer legs become plain deposits and withdrawals
// so the copy does not join the original's transfer pairs.
func (s *portfolioService) DuplicatePortfolio(userID, portfolioID, name string, copyTransactions bool) (*models.Portfolio, error) {
	source, err := getOwnedPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = source.Name + " (Copy)"
	}

	duplicate := &models.Portfolio{
		UserID:       userID,
		Name:         name,
		Description:  source.Description,
		BaseCurrency: source.BaseCurrency,
		RiskProfile:  source.RiskProfile,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(duplicate).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !copyTransactions {
			return nil
		}

		txs, err := loadLedger(tx, source.ID)
		if err != nil {
			return err
		}
		for _, orig := range txs {
			txType := orig.Type
			switch txType {
			case models.TransactionTypeTransferIn:
				txType = models.TransactionTypeDeposit
			case models.TransactionTypeTransferOut:
				txType = models.TransactionTypeWithdraw
			}
			copied := &models.Transaction{
				PortfolioID:     duplicate.ID,
				AssetID:         orig.AssetID,
				Type:            txType,
				Quantity:        orig.Quantity,
				Price:           orig.Price,
				Fee:             orig.Fee,
				TransactionDate: orig.TransactionDate,
				Notes:           orig.Notes,
			}
			if err := tx.Omit("Asset").Create(copied).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return duplicate, nil
}
