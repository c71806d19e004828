package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/metrics"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

// Service resolves prices through the cache and then the providers in
// registration order. The first supporting provider that returns a price
// wins. Every fetched price is appended to the price history.
type Service struct {
	db        *gorm.DB
	cache     Cache
	ttl       time.Duration
	providers []Provider
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics overrides the default metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a market data service. A nil db disables price history.
func NewService(db *gorm.DB, cache Cache, ttl time.Duration, providers []Provider, opts ...Option) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	s := &Service{
		db:        db,
		cache:     cache,
		ttl:       ttl,
		providers: providers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	return s
}

// ProviderNames lists the providers in lookup order.
func (s *Service) ProviderNames() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// CurrentPrice returns asset's price in currency. ok is false when no
// provider could price it.
func (s *Service) CurrentPrice(ctx context.Context, asset models.Asset, currency string) (decimal.Decimal, bool) {
	key := CacheKey(asset.ID, currency)
	if price, ok := s.cache.Get(ctx, key); ok {
		s.metrics.PriceLookups.WithLabelValues("cache").Inc()
		return price, true
	}

	for _, p := range s.providers {
		if !p.Supports(asset.Type) {
			continue
		}
		start := time.Now()
		price, err := p.GetPrice(ctx, asset, currency)
		s.metrics.ProviderDur.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			s.providerFailed(p, err, "symbol", asset.Symbol, "currency", currency)
			continue
		}
		if !price.IsPositive() {
			continue
		}
		s.store(ctx, asset, price, currency, p.Name())
		s.metrics.PriceLookups.WithLabelValues(p.Name()).Inc()
		return price, true
	}

	s.metrics.PriceLookups.WithLabelValues("none").Inc()
	return decimal.Zero, false
}

// CurrentPrices prices assets in currency, keyed by asset ID. Assets no
// provider could price are absent from the result.
func (s *Service) CurrentPrices(ctx context.Context, assets []models.Asset, currency string) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(assets))
	var remaining []models.Asset
	for _, asset := range assets {
		if price, ok := s.cache.Get(ctx, CacheKey(asset.ID, currency)); ok {
			s.metrics.PriceLookups.WithLabelValues("cache").Inc()
			prices[asset.ID] = price
			continue
		}
		remaining = append(remaining, asset)
	}

	for _, p := range s.providers {
		if len(remaining) == 0 {
			break
		}
		var supported, rest []models.Asset
		for _, asset := range remaining {
			if p.Supports(asset.Type) {
				supported = append(supported, asset)
			} else {
				rest = append(rest, asset)
			}
		}
		if len(supported) == 0 {
			continue
		}

		start := time.Now()
		fetched, err := p.GetPrices(ctx, supported, currency)
		s.metrics.ProviderDur.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			s.providerFailed(p, err, "assets", len(supported), "priced", len(fetched), "currency", currency)
		}

		for _, asset := range supported {
			price, ok := fetched[asset.ID]
			if !ok || !price.IsPositive() {
				rest = append(rest, asset)
				continue
			}
			s.store(ctx, asset, price, currency, p.Name())
			s.metrics.PriceLookups.WithLabelValues(p.Name()).Inc()
			prices[asset.ID] = price
		}
		remaining = rest
	}

	if len(remaining) > 0 {
		s.metrics.PriceLookups.WithLabelValues("none").Add(float64(len(remaining)))
	}
	return prices
}

// HistoricalPrices returns the recorded prices of an asset within
// [from, to], oldest first.
func (s *Service) HistoricalPrices(ctx context.Context, assetID string, from, to time.Time) ([]models.PriceSnapshot, error) {
	if s.db == nil {
		return []models.PriceSnapshot{}, nil
	}
	var snapshots []models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("asset_id = ? AND recorded_at >= ? AND recorded_at <= ?", assetID, from.UTC(), to.UTC()).
		Order("recorded_at ASC, id ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return snapshots, nil
}

// ClearCache drops every cached price.
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	logger.Get().Infow("Price cache cleared")
	return nil
}

func (s *Service) store(ctx context.Context, asset models.Asset, price decimal.Decimal, currency, source string) {
	s.cache.Put(ctx, CacheKey(asset.ID, currency), price, s.ttl)
	if s.db == nil {
		return
	}
	snapshot := models.PriceSnapshot{
		AssetID:    asset.ID,
		Price:      price,
		Currency:   currency,
		Source:     source,
		RecordedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
		logger.Get().Warnw("Failed to record price history", "asset_id", asset.ID, "source", source, "error", err)
	}
}

func (s *Service) providerFailed(p Provider, err error, kv ...interface{}) {
	fields := append([]interface{}{"provider", p.Name(), "error", err}, kv...)
	if errors.Is(err, ErrNoPrice) {
		logger.Get().Debugw("Provider has no price", fields...)
		return
	}
	s.metrics.ProviderErrors.WithLabelValues(p.Name()).Inc()
	logger.Get().Warnw("Price provider request failed", fields...)
}
