package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/ledger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/metrics"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

// Option configures the services that value portfolios or run batches.
type Option func(*options)

type options struct {
	now         func() time.Time
	metrics     *metrics.Metrics
	concurrency int
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics overrides the default metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConcurrency bounds the number of portfolios valued at once by
// dashboards and the snapshot sweep.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, concurrency: 4}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.Default()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// summarizer loads a portfolio's ledger and runs it through the valuation
// engine, translating ledger failures into AppErrors.
type summarizer struct {
	db      *gorm.DB
	engine  *valuation.Engine
	metrics *metrics.Metrics
}

func (s summarizer) summarize(ctx context.Context, portfolio *models.Portfolio) (*valuation.Summary, error) {
	txs, err := loadLedger(s.db.WithContext(ctx), portfolio.ID)
	if err != nil {
		s.metrics.Summaries.WithLabelValues("error").Inc()
		return nil, err
	}

	summary, err := s.engine.Summarize(ctx, *portfolio, txs)
	if err != nil {
		s.metrics.Summaries.WithLabelValues("error").Inc()
		return nil, translateLedgerError(err)
	}
	s.metrics.Summaries.WithLabelValues("ok").Inc()

	for _, h := range summary.Holdings {
		if !h.Priced {
			s.metrics.UnpricedHoldings.Inc()
			logger.Get().Warnw("Holding valued at zero, no price available",
				"portfolio_id", portfolio.ID, "symbol", h.Symbol, "currency", h.Currency)
		}
	}
	logFlagged(portfolio.ID, summary.Flagged)
	return summary, nil
}

func logFlagged(portfolioID string, flagged []valuation.FlaggedAsset) {
	for _, f := range flagged {
		logger.Get().Warnw("Asset left out of portfolio figures",
			"portfolio_id", portfolioID, "symbol", f.Symbol, "reason", f.Reason)
	}
}

// loadLedger returns a portfolio's transactions with their assets, in
// replay order.
func loadLedger(db *gorm.DB, portfolioID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := db.Preload("Asset").
		Where("portfolio_id = ?", portfolioID).
		Order("transaction_date ASC, created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txs, nil
}

func translateLedgerError(err error) error {
	var insufficient *ledger.InsufficientHoldingsError
	if errors.As(err, &insufficient) {
		msg := fmt.Sprintf("Transaction on %s removes %s units but only %s were held",
			insufficient.Date.Format(time.DateOnly), insufficient.Requested, insufficient.Available)
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInsufficientHoldings, msg), err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// getOwnedPortfolio loads a portfolio and checks that userID owns it.
func getOwnedPortfolio(db *gorm.DB, userID, portfolioID string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	if err := db.Where("id = ?", portfolioID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPortfolioNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !portfolio.OwnedBy(userID) {
		return nil, apperrors.ErrPortfolioAccessDenied
	}
	return &portfolio, nil
}
