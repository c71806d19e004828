package services

import (
	"context"

	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/rebalance"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

// rebalanceService runs the rebalancing advisor on a live valuation.
type rebalanceService struct {
	db         *gorm.DB
	summarizer summarizer
}

// NewRebalanceService creates a new RebalanceServicer.
func NewRebalanceService(db *gorm.DB, engine *valuation.Engine, opts ...Option) RebalanceServicer {
	o := newOptions(opts)
	return &rebalanceService{
		db:         db,
		summarizer: summarizer{db: db, engine: engine, metrics: o.metrics},
	}
}

// Suggest compares the portfolio's current allocation against targets.
// Each asset may be targeted once. Percentages are taken as given and need
// not sum to 100.
func (s *rebalanceService) Suggest(ctx context.Context, userID, portfolioID string, targets []rebalance.Target) ([]rebalance.Suggestion, error) {
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.AssetID == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target asset_id is required")
		}
		if seen[t.AssetID] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "asset "+t.AssetID+" is targeted more than once")
		}
		seen[t.AssetID] = true
	}

	portfolio, err := getOwnedPortfolio(s.db.WithContext(ctx), userID, portfolioID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarizer.summarize(ctx, portfolio)
	if err != nil {
		return nil, err
	}
	return rebalance.Suggest(summary, targets), nil
}
