package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/ledger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/uuid"
)

// transactionService handles transaction-related business logic. Every
// write is followed by a replay of the affected asset's history, read back
// in ledger order inside the same database transaction, so a committed
// ledger never removes more units than it holds.
type transactionService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, opts ...Option) TransactionServicer {
	o := newOptions(opts)
	return &transactionService{db: db, now: o.now}
}

// CreateTransaction records a transaction in one of the user's portfolios.
// A TRANSFER_OUT naming a transfer portfolio also records the mirrored
// TRANSFER_IN there; both legs share a TransferPairID.
func (s *transactionService) CreateTransaction(userID string, input TransactionInput) (*models.Transaction, error) {
	if !input.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if input.Date.IsZero() {
		input.Date = s.now()
	}
	if err := s.validateAmounts(input.Quantity, input.Price, input.Fee, input.Date); err != nil {
		return nil, err
	}

	portfolio, err := getOwnedPortfolio(s.db, userID, input.PortfolioID)
	if err != nil {
		return nil, err
	}
	asset, err := findAsset(s.db, input.AssetID)
	if err != nil {
		return nil, err
	}

	var target *models.Portfolio
	if input.TransferPortfolioID != nil && *input.TransferPortfolioID != "" {
		if input.Type != models.TransactionTypeTransferOut {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidTransfer, "only TRANSFER_OUT transactions can name a transfer portfolio")
		}
		if *input.TransferPortfolioID == portfolio.ID {
			return nil, apperrors.ErrInvalidTransfer
		}
		target, err = getOwnedPortfolio(s.db, userID, *input.TransferPortfolioID)
		if err != nil {
			if errors.Is(err, apperrors.ErrPortfolioNotFound) || errors.Is(err, apperrors.ErrPortfolioAccessDenied) {
				return nil, apperrors.Wrap(apperrors.ErrInvalidTransfer, err)
			}
			return nil, err
		}
	}

	transaction := &models.Transaction{
		Base:            models.Base{ID: uuid.New()},
		PortfolioID:     portfolio.ID,
		AssetID:         asset.ID,
		Type:            input.Type,
		Quantity:        input.Quantity,
		Price:           input.Price,
		Fee:             input.Fee,
		TransactionDate: input.Date.UTC(),
		Notes:           input.Notes,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var mirror *models.Transaction
		if target != nil {
			pairID := uuid.New()
			transaction.TransferPortfolioID = &target.ID
			transaction.TransferPairID = &pairID
			mirror = &models.Transaction{
				PortfolioID:         target.ID,
				AssetID:             asset.ID,
				Type:                models.TransactionTypeTransferIn,
				Quantity:            transaction.Quantity,
				Price:               transaction.Price,
				Fee:                 decimal.Zero,
				TransactionDate:     transaction.TransactionDate,
				Notes:               fmt.Sprintf("Transfer from %s", portfolio.Name),
				TransferPortfolioID: &portfolio.ID,
				TransferPairID:      &pairID,
			}
		}

		if err := tx.Omit("Asset").Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := checkHistory(tx, portfolio.ID, asset.ID); err != nil {
			return err
		}
		if mirror != nil {
			if err := tx.Omit("Asset").Create(mirror).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	transaction.Asset = *asset
	return transaction, nil
}

// GetTransactionByID retrieves a transaction from one of the user's portfolios.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.Preload("Asset").
		Where("id = ? AND portfolio_id IN (?)", transactionID, userPortfolioIDs(s.db, userID)).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of transactions
// across the user's portfolios, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if filter.PortfolioID != nil {
		if _, err := getOwnedPortfolio(s.db, userID, *filter.PortfolioID); err != nil {
			return nil, err
		}
	}

	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("portfolio_id IN (?)", userPortfolioIDs(s.db, userID))
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Asset").
		Order("transaction_date DESC, created_at DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.PortfolioID != nil {
		q = q.Where("portfolio_id = ?", *f.PortfolioID)
	}
	if f.AssetID != nil {
		q = q.Where("asset_id = ?", *f.AssetID)
	}
	if f.Type != nil {
		q = q.Where("transaction_type = ?", *f.Type)
	}
	if f.FromDate != nil {
		q = q.Where("transaction_date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("transaction_date <= ?", f.ToDate.UTC())
	}
	return q
}

// UpdateTransaction edits a transaction. Quantity, price and date changes
// are applied to both legs of a transfer.
func (s *transactionService) UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updated := *transaction
	if update.Quantity != nil {
		updated.Quantity = *update.Quantity
	}
	if update.Price != nil {
		updated.Price = *update.Price
	}
	if update.Fee != nil {
		updated.Fee = *update.Fee
	}
	if update.Date != nil {
		updated.TransactionDate = update.Date.UTC()
	}
	if update.Notes != nil {
		updated.Notes = *update.Notes
	}
	if err := s.validateAmounts(updated.Quantity, updated.Price, updated.Fee, updated.TransactionDate); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("id = ?", updated.ID).Updates(map[string]interface{}{
			"quantity":         updated.Quantity,
			"price":            updated.Price,
			"fee":              updated.Fee,
			"transaction_date": updated.TransactionDate,
			"notes":            updated.Notes,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := checkHistory(tx, updated.PortfolioID, updated.AssetID); err != nil {
			return err
		}

		pair, err := findPair(tx, &updated)
		if err != nil || pair == nil {
			return err
		}
		pair.Quantity = updated.Quantity
		pair.Price = updated.Price
		pair.TransactionDate = updated.TransactionDate
		if err := tx.Model(&models.Transaction{}).Where("id = ?", pair.ID).Updates(map[string]interface{}{
			"quantity":         pair.Quantity,
			"price":            pair.Price,
			"transaction_date": pair.TransactionDate,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return checkHistory(tx, pair.PortfolioID, pair.AssetID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction removes a transaction, and the other leg when it is
// part of a transfer.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		legs := []models.Transaction{*transaction}
		pair, err := findPair(tx, transaction)
		if err != nil {
			return err
		}
		if pair != nil {
			legs = append(legs, *pair)
		}

		for _, leg := range legs {
			if err := tx.Delete(&models.Transaction{}, "id = ?", leg.ID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		for _, leg := range legs {
			if err := checkHistory(tx, leg.PortfolioID, leg.AssetID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListForLedger returns a portfolio's transactions with their assets,
// ordered by date, then creation.
func (s *transactionService) ListForLedger(portfolioID string) ([]models.Transaction, error) {
	return loadLedger(s.db, portfolioID)
}

func (s *transactionService) validateAmounts(quantity, price, fee decimal.Decimal, date time.Time) error {
	if !quantity.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	}
	if !price.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "price must be greater than zero")
	}
	if fee.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "fee cannot be negative")
	}
	if date.After(s.now()) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction date cannot be in the future")
	}
	return nil
}

// checkHistory replays an asset's stored history in one portfolio. It runs
// inside the write's database transaction after the write, reading rows in
// the order loadLedger uses, so an error rolls the write back.
func checkHistory(tx *gorm.DB, portfolioID, assetID string) error {
	var txs []models.Transaction
	if err := tx.Where("portfolio_id = ? AND asset_id = ?", portfolioID, assetID).
		Order("transaction_date ASC, created_at ASC, id ASC").
		Find(&txs).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := ledger.Replay(assetID, txs); err != nil {
		return translateLedgerError(err)
	}
	return nil
}

// findPair returns the other leg of a transfer, or nil.
func findPair(tx *gorm.DB, t *models.Transaction) (*models.Transaction, error) {
	if t.TransferPairID == nil {
		return nil, nil
	}
	var pair models.Transaction
	err := tx.Where("transfer_pair_id = ? AND id <> ?", *t.TransferPairID, t.ID).First(&pair).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &pair, nil
}

// userPortfolioIDs is a subquery selecting the IDs of a user's portfolios.
func userPortfolioIDs(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&models.Portfolio{}).Select("id").Where("user_id = ?", userID)
}
