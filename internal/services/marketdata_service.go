package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/marketdata"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

// marketDataService exposes the price source over the asset catalogue.
type marketDataService struct {
	db     *gorm.DB
	prices *marketdata.Service
	now    func() time.Time
}

// NewMarketDataService creates a new MarketDataServicer.
func NewMarketDataService(db *gorm.DB, prices *marketdata.Service, opts ...Option) MarketDataServicer {
	o := newOptions(opts)
	return &marketDataService{db: db, prices: prices, now: o.now}
}

// GetCurrentPrice prices an asset in currency, defaulting to the asset's
// own currency.
func (s *marketDataService) GetCurrentPrice(ctx context.Context, assetID, currency string) (*PriceQuote, error) {
	asset, err := findAsset(s.db.WithContext(ctx), assetID)
	if err != nil {
		return nil, err
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = asset.Currency
	}
	if !finmath.IsCurrency(currency) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported currency "+currency)
	}

	price, ok := s.prices.CurrentPrice(ctx, *asset, currency)
	if !ok {
		return nil, apperrors.ErrPriceNotFound
	}
	return &PriceQuote{
		AssetID:   asset.ID,
		Symbol:    asset.Symbol,
		Currency:  currency,
		Price:     price,
		Display:   finmath.FormatMoney(price, currency),
		Timestamp: s.now().UTC(),
	}, nil
}

// GetPriceHistory returns recorded prices of an asset within [from, to], oldest first.
func (s *marketDataService) GetPriceHistory(ctx context.Context, assetID string, from, to time.Time) ([]models.PriceSnapshot, error) {
	if _, err := findAsset(s.db.WithContext(ctx), assetID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
	}
	return s.prices.HistoricalPrices(ctx, assetID, from, to)
}

// heldAsset is an asset held in some portfolio, with that portfolio's base currency.
type heldAsset struct {
	AssetID  string
	Currency string
}

// RefreshAll drops cached prices and fetches a fresh price for every asset
// held in any portfolio, in each base currency it is valued in.
func (s *marketDataService) RefreshAll(ctx context.Context) (*RefreshResult, error) {
	var held []heldAsset
	err := s.db.WithContext(ctx).
		Table("transactions").
		Select("DISTINCT transactions.asset_id AS asset_id, portfolios.base_currency AS currency").
		Joins("JOIN portfolios ON portfolios.id = transactions.portfolio_id").
		Where("transactions.deleted_at IS NULL AND portfolios.deleted_at IS NULL").
		Scan(&held).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byCurrency := make(map[string][]string)
	for _, h := range held {
		byCurrency[h.Currency] = append(byCurrency[h.Currency], h.AssetID)
	}
	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	if err := s.prices.ClearCache(ctx); err != nil {
		return nil, err
	}

	result := &RefreshResult{}
	for _, currency := range currencies {
		var assets []models.Asset
		if err := s.db.WithContext(ctx).Where("id IN ?", byCurrency[currency]).Find(&assets).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		prices := s.prices.CurrentPrices(ctx, assets, currency)
		result.Assets += len(assets)
		result.Priced += len(prices)
		for _, a := range assets {
			if _, ok := prices[a.ID]; !ok {
				logger.Get().Warnw("No price during refresh", "symbol", a.Symbol, "currency", currency)
			}
		}
	}
	result.Unpriced = result.Assets - result.Priced

	logger.Get().Infow("Price refresh complete",
		"assets", result.Assets, "priced", result.Priced, "unpriced", result.Unpriced)
	return result, nil
}

// ClearCache drops every cached price.
func (s *marketDataService) ClearCache(ctx context.Context) error {
	return s.prices.ClearCache(ctx)
}

// Providers lists the price providers in lookup order.
func (s *marketDataService) Providers() []string {
	return s.prices.ProviderNames()
}
