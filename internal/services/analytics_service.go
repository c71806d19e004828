package services

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/metrics"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/stats"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

const (
	riskWindowDays         = 90
	dashboardTopAssets     = 10
	dashboardRecentTxCount = 10
)

// analyticsService values portfolios and derives statistics from their
// snapshot history.
type analyticsService struct {
	db          *gorm.DB
	summarizer  summarizer
	now         func() time.Time
	metrics     *metrics.Metrics
	concurrency int
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB, engine *valuation.Engine, opts ...Option) AnalyticsServicer {
	o := newOptions(opts)
	return &analyticsService{
		db:          db,
		summarizer:  summarizer{db: db, engine: engine, metrics: o.metrics},
		now:         o.now,
		metrics:     o.metrics,
		concurrency: o.concurrency,
	}
}

// GetSummary values one of the user's portfolios.
func (s *analyticsService) GetSummary(ctx context.Context, userID, portfolioID string) (*valuation.Summary, error) {
	portfolio, err := getOwnedPortfolio(s.db.WithContext(ctx), userID, portfolioID)
	if err != nil {
		return nil, err
	}
	return s.summarizer.summarize(ctx, portfolio)
}

// GetHoldings returns a page of the portfolio's current holdings.
func (s *analyticsService) GetHoldings(ctx context.Context, userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[valuation.Holding], error) {
	summary, err := s.GetSummary(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	result := pagination.Slice(summary.Holdings, page)
	return &result, nil
}

// CreateSnapshot values the portfolio now and appends the totals to its history.
func (s *analyticsService) CreateSnapshot(ctx context.Context, userID, portfolioID string) (*models.PortfolioSnapshot, error) {
	portfolio, err := getOwnedPortfolio(s.db.WithContext(ctx), userID, portfolioID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, portfolio)
}

func (s *analyticsService) snapshot(ctx context.Context, portfolio *models.Portfolio) (*models.PortfolioSnapshot, error) {
	summary, err := s.summarizer.summarize(ctx, portfolio)
	if err != nil {
		return nil, err
	}
	return saveSnapshot(s.db.WithContext(ctx), portfolio, summary, s.now())
}

// GetSnapshotHistory lists snapshots within the optional bounds, newest first.
func (s *analyticsService) GetSnapshotHistory(ctx context.Context, userID, portfolioID string, from, to *time.Time) ([]models.PortfolioSnapshot, error) {
	if _, err := getOwnedPortfolio(s.db.WithContext(ctx), userID, portfolioID); err != nil {
		return nil, err
	}
	return listSnapshots(s.db.WithContext(ctx), portfolioID, from, to, false)
}

// GetPerformance returns the snapshot series for the interval's look-back
// window, oldest first: 30 days for DAILY, 12 weeks for WEEKLY and 12
// months for MONTHLY. A portfolio without snapshots in the window gets one
// taken now.
func (s *analyticsService) GetPerformance(ctx context.Context, userID, portfolioID string, interval Interval) ([]models.PortfolioSnapshot, error) {
	now := s.now()
	var start time.Time
	switch interval {
	case IntervalDaily, "":
		start = now.AddDate(0, 0, -30)
	case IntervalWeekly:
		start = now.AddDate(0, 0, -12*7)
	case IntervalMonthly:
		start = now.AddDate(0, -12, 0)
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "interval must be DAILY, WEEKLY or MONTHLY")
	}

	portfolio, err := getOwnedPortfolio(s.db.WithContext(ctx), userID, portfolioID)
	if err != nil {
		return nil, err
	}
	snapshots, err := listSnapshots(s.db.WithContext(ctx), portfolio.ID, &start, nil, true)
	if err != nil {
		return nil, err
	}
	if len(snapshots) > 0 {
		return snapshots, nil
	}

	snap, err := s.snapshot(ctx, portfolio)
	if err != nil {
		return nil, err
	}
	return []models.PortfolioSnapshot{*snap}, nil
}

// GetReturns compares the current value against the snapshot in effect one
// day, week, month and year ago.
func (s *analyticsService) GetReturns(ctx context.Context, userID, portfolioID string) (*ReturnsReport, error) {
	summary, err := s.GetSummary(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	snapshots, err := listSnapshots(s.db.WithContext(ctx), portfolioID, nil, nil, true)
	if err != nil {
		return nil, err
	}

	return &ReturnsReport{
		HorizonReturns: stats.ComputeHorizonReturns(snapshotPoints(snapshots), summary.TotalValue, s.now()),
		TotalReturn:    summary.TotalPnLPercent,
	}, nil
}

// GetRiskMetrics reports top-holding concentration plus volatility and
// Sharpe ratio over the last 90 days of snapshots.
func (s *analyticsService) GetRiskMetrics(ctx context.Context, userID, portfolioID string) (*RiskMetrics, error) {
	summary, err := s.GetSummary(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -riskWindowDays)
	snapshots, err := listSnapshots(s.db.WithContext(ctx), portfolioID, &since, nil, true)
	if err != nil {
		return nil, err
	}

	values := stats.Values(snapshotPoints(snapshots))
	return &RiskMetrics{
		ConcentrationRisk: summary.Concentration(),
		TopAssets:         summary.TopHoldings,
		Volatility:        stats.Volatility(values),
		SharpeRatio:       stats.SharpeRatio(values),
		SnapshotCount:     len(snapshots),
	}, nil
}

// GetDashboard values every portfolio of the user concurrently. A portfolio
// that fails to value is logged and counted, and the rest still aggregate.
func (s *analyticsService) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	var portfolios []models.Portfolio
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&portfolios).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summaries := make([]*valuation.Summary, len(portfolios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range portfolios {
		g.Go(func() error {
			summary, err := s.summarizer.summarize(gctx, &portfolios[i])
			if err != nil {
				logger.Get().Warnw("Skipping portfolio in dashboard",
					"user_id", userID, "portfolio_id", portfolios[i].ID, "error", err)
				return nil
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	dashboard := &Dashboard{
		TotalNetWorth:       decimal.Zero,
		TotalCost:           decimal.Zero,
		OverallPnL:          decimal.Zero,
		OverallPnLPercent:   decimal.Zero,
		BaseCurrency:        "USD",
		TotalPortfolios:     len(portfolios),
		TopPerformingAssets: []AssetPerformance{},
		PortfolioSummaries:  []*valuation.Summary{},
		CalculatedAt:        s.now().UTC(),
	}
	if len(portfolios) > 0 {
		dashboard.BaseCurrency = portfolios[0].BaseCurrency
	}

	for _, summary := range summaries {
		if summary == nil {
			dashboard.FailedPortfolios++
			continue
		}
		dashboard.ValuedPortfolios++
		dashboard.PortfolioSummaries = append(dashboard.PortfolioSummaries, summary)
		dashboard.TotalNetWorth = dashboard.TotalNetWorth.Add(summary.TotalValue)
		dashboard.TotalCost = dashboard.TotalCost.Add(summary.TotalCost)
	}
	dashboard.OverallPnL = dashboard.TotalNetWorth.Sub(dashboard.TotalCost)
	dashboard.OverallPnLPercent = finmath.Percent(dashboard.OverallPnL, dashboard.TotalCost)
	dashboard.TopPerformingAssets = topPerformers(dashboard.PortfolioSummaries, dashboardTopAssets)

	recent := []models.Transaction{}
	if err := s.db.WithContext(ctx).Preload("Asset").
		Where("portfolio_id IN (?)", userPortfolioIDs(s.db, userID)).
		Order("transaction_date DESC, created_at DESC, id DESC").
		Limit(dashboardRecentTxCount).
		Find(&recent).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	dashboard.RecentTransactions = recent

	return dashboard, nil
}

// topPerformers merges holdings by symbol across portfolios and ranks them
// by unrealized return on cost.
func topPerformers(summaries []*valuation.Summary, n int) []AssetPerformance {
	bySymbol := make(map[string]*AssetPerformance)
	var order []string
	for _, summary := range summaries {
		for _, h := range summary.Holdings {
			perf, ok := bySymbol[h.Symbol]
			if !ok {
				perf = &AssetPerformance{Symbol: h.Symbol, Name: h.Name, Quantity: decimal.Zero, CurrentValue: decimal.Zero, TotalCost: decimal.Zero}
				bySymbol[h.Symbol] = perf
				order = append(order, h.Symbol)
			}
			perf.Quantity = perf.Quantity.Add(h.Quantity)
			perf.CurrentValue = perf.CurrentValue.Add(h.CurrentValue)
			perf.TotalCost = perf.TotalCost.Add(h.TotalCost)
		}
	}

	out := make([]AssetPerformance, 0, len(order))
	for _, symbol := range order {
		perf := bySymbol[symbol]
		perf.ReturnPercent = finmath.Percent(perf.CurrentValue.Sub(perf.TotalCost), perf.TotalCost)
		out = append(out, *perf)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReturnPercent.GreaterThan(out[j].ReturnPercent)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RecordDailySnapshots snapshots every portfolio with bounded concurrency.
// Failures are logged and counted; the sweep always visits every portfolio.
func (s *analyticsService) RecordDailySnapshots(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	defer func() { s.metrics.SweepDur.Observe(time.Since(start).Seconds()) }()

	var portfolios []models.Portfolio
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&portfolios).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var success, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i := range portfolios {
		g.Go(func() error {
			portfolio := &portfolios[i]
			if err := ctx.Err(); err != nil {
				failed.Add(1)
				s.metrics.SweepPortfolios.WithLabelValues("error").Inc()
				return nil
			}
			if _, err := s.snapshot(ctx, portfolio); err != nil {
				failed.Add(1)
				s.metrics.SweepPortfolios.WithLabelValues("error").Inc()
				logger.Get().Errorw("Failed to snapshot portfolio",
					"portfolio_id", portfolio.ID, "user_id", portfolio.UserID, "error", err)
				return nil
			}
			success.Add(1)
			s.metrics.SweepPortfolios.WithLabelValues("success").Inc()
			return nil
		})
	}
	_ = g.Wait()

	result := &SweepResult{Success: int(success.Load()), Errors: int(failed.Load())}
	logger.Get().Infow("Snapshot sweep complete",
		"portfolios", len(portfolios), "success", result.Success, "errors", result.Errors,
		"duration", time.Since(start))
	return result, nil
}

func saveSnapshot(db *gorm.DB, portfolio *models.Portfolio, summary *valuation.Summary, at time.Time) (*models.PortfolioSnapshot, error) {
	snap := &models.PortfolioSnapshot{
		PortfolioID:     portfolio.ID,
		TotalValue:      summary.TotalValue,
		TotalCost:       summary.TotalCost,
		TotalPnL:        summary.TotalPnL,
		TotalPnLPercent: summary.TotalPnLPercent,
		Currency:        summary.BaseCurrency,
		SnapshotDate:    at.UTC(),
	}
	if err := db.Create(snap).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return snap, nil
}

// listSnapshots returns a portfolio's snapshots within the optional bounds.
func listSnapshots(db *gorm.DB, portfolioID string, from, to *time.Time, ascending bool) ([]models.PortfolioSnapshot, error) {
	q := db.Where("portfolio_id = ?", portfolioID)
	if from != nil {
		q = q.Where("snapshot_date >= ?", from.UTC())
	}
	if to != nil {
		q = q.Where("snapshot_date <= ?", to.UTC())
	}
	order := "snapshot_date DESC, id DESC"
	if ascending {
		order = "snapshot_date ASC, id ASC"
	}

	snapshots := []models.PortfolioSnapshot{}
	if err := q.Order(order).Find(&snapshots).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return snapshots, nil
}

func snapshotPoints(snapshots []models.PortfolioSnapshot) []stats.Point {
	points := make([]stats.Point, len(snapshots))
	for i, snap := range snapshots {
		points[i] = stats.Point{Date: snap.SnapshotDate, Value: snap.TotalValue}
	}
	return points
}
