package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
)

// assetService manages the asset catalogue shared by all users.
type assetService struct {
	db *gorm.DB
}

// NewAssetService creates a new AssetServicer.
func NewAssetService(db *gorm.DB) AssetServicer {
	return &assetService{db: db}
}

// CreateAsset registers an instrument. Symbols are stored upper-case and
// must be unique per asset type.
func (s *assetService) CreateAsset(input AssetInput) (*models.Asset, error) {
	symbol := strings.ToUpper(strings.TrimSpace(input.Symbol))
	if symbol == "" || strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "symbol and name are required")
	}
	if !input.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown asset type")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	if !finmath.IsCurrency(currency) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported currency "+currency)
	}

	var count int64
	if err := s.db.Model(&models.Asset{}).
		Where("symbol = ? AND asset_type = ?", symbol, input.Type).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateAsset
	}

	asset := &models.Asset{
		Symbol:         symbol,
		Name:           strings.TrimSpace(input.Name),
		Type:           input.Type,
		Currency:       currency,
		Exchange:       strings.ToUpper(strings.TrimSpace(input.Exchange)),
		Network:        strings.TrimSpace(input.Network),
		ProviderSymbol: strings.TrimSpace(input.ProviderSymbol),
	}
	if err := s.db.Create(asset).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return asset, nil
}

// GetAssetByID retrieves an asset by ID.
func (s *assetService) GetAssetByID(id string) (*models.Asset, error) {
	return findAsset(s.db, id)
}

// ListAssets returns assets matching a symbol or name fragment, ordered by symbol.
func (s *assetService) ListAssets(filter AssetFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error) {
	page.Defaults()

	base := s.db.Model(&models.Asset{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		base = base.Where("LOWER(symbol) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if filter.Type != nil {
		base = base.Where("asset_type = ?", *filter.Type)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var assets []models.Asset
	if err := base.Order("symbol ASC, asset_type ASC").Scopes(pagination.Paginate(page)).Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(assets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func findAsset(db *gorm.DB, id string) (*models.Asset, error) {
	var asset models.Asset
	if err := db.Where("id = ?", id).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}
