package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/correlation"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/stats"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

const correlationWindowMonths = 6

// PriceHistory supplies recorded prices of an asset, oldest first.
type PriceHistory interface {
	HistoricalPrices(ctx context.Context, assetID string, from, to time.Time) ([]models.PriceSnapshot, error)
}

// correlationService correlates the price histories of held assets.
type correlationService struct {
	db      *gorm.DB
	engine  *valuation.Engine
	history PriceHistory
	now     func() time.Time
}

// NewCorrelationService creates a new CorrelationServicer. Holdings are
// replayed under engine's insufficient-holdings policy.
func NewCorrelationService(db *gorm.DB, engine *valuation.Engine, history PriceHistory, opts ...Option) CorrelationServicer {
	o := newOptions(opts)
	return &correlationService{db: db, engine: engine, history: history, now: o.now}
}

// Analyze correlates every pair of assets currently held in the portfolio
// over the last six months of prices recorded in its base currency.
func (s *correlationService) Analyze(ctx context.Context, userID, portfolioID string) (*correlation.Result, error) {
	db := s.db.WithContext(ctx)
	portfolio, err := getOwnedPortfolio(db, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	txs, err := loadLedger(db, portfolio.ID)
	if err != nil {
		return nil, err
	}
	positions, flagged, err := s.engine.Positions(txs)
	if err != nil {
		return nil, translateLedgerError(err)
	}
	logFlagged(portfolio.ID, flagged)

	to := s.now()
	from := to.AddDate(0, -correlationWindowMonths, 0)

	var series []correlation.Series
	for _, ap := range positions {
		if !ap.Position.IsOpen() {
			continue
		}

		prices, err := s.history.HistoricalPrices(ctx, ap.Asset.ID, from, to)
		if err != nil {
			return nil, err
		}
		points := make([]stats.Point, 0, len(prices))
		for _, p := range prices {
			if p.Currency != portfolio.BaseCurrency {
				continue
			}
			points = append(points, stats.Point{Date: p.RecordedAt, Value: p.Price})
		}
		series = append(series, correlation.Series{
			AssetID: ap.Asset.ID,
			Symbol:  ap.Asset.Symbol,
			Points:  points,
		})
	}

	result := correlation.Analyze(series)
	return &result, nil
}
