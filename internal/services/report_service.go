package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/stats"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

// reportService builds performance and tax reports.
type reportService struct {
	db         *gorm.DB
	summarizer summarizer
	now        func() time.Time
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB, engine *valuation.Engine, opts ...Option) ReportServicer {
	o := newOptions(opts)
	return &reportService{
		db:         db,
		summarizer: summarizer{db: db, engine: engine, metrics: o.metrics},
		now:        o.now,
	}
}

// startOfDay truncates t to midnight UTC.
func startOfDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// endOfDay returns the last instant of t's UTC day.
func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

// GetPerformanceReport describes the portfolio's value changes between two
// days, inclusive. The range defaults to the year ending today. A
// portfolio without snapshots in range gets one taken now.
func (s *reportService) GetPerformanceReport(ctx context.Context, userID, portfolioID string, start, end *time.Time) (*PerformanceReport, error) {
	now := s.now()
	endDate := startOfDay(now)
	if end != nil {
		endDate = startOfDay(*end)
	}
	startDate := endDate.AddDate(-1, 0, 0)
	if start != nil {
		startDate = startOfDay(*start)
	}
	if startDate.After(endDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date must not be after end date")
	}
	endBound := endOfDay(endDate)

	db := s.db.WithContext(ctx)
	portfolio, err := getOwnedPortfolio(db, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	snapshots, err := listSnapshots(db, portfolio.ID, &startDate, &endBound, true)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		summary, err := s.summarizer.summarize(ctx, portfolio)
		if err != nil {
			return nil, err
		}
		if _, err := saveSnapshot(db, portfolio, summary, now); err != nil {
			return nil, err
		}
		snapshots, err = listSnapshots(db, portfolio.ID, &startDate, &endBound, true)
		if err != nil {
			return nil, err
		}
	}
	if len(snapshots) == 0 {
		return nil, apperrors.ErrNoPerformanceData
	}

	first, last := snapshots[0], snapshots[len(snapshots)-1]
	report := &PerformanceReport{
		PortfolioID:        portfolio.ID,
		PortfolioName:      portfolio.Name,
		ReportDate:         now.UTC(),
		StartDate:          startDate,
		EndDate:            endDate,
		Currency:           portfolio.BaseCurrency,
		StartingValue:      first.TotalValue,
		EndingValue:        last.TotalValue,
		TotalReturn:        last.TotalValue.Sub(first.TotalValue),
		TotalReturnPercent: percentChange(first.TotalValue, last.TotalValue),
		DailyReturns:       []DailyReturn{},
		BestDay:            decimal.Zero,
		WorstDay:           decimal.Zero,
		AverageDailyReturn: decimal.Zero,
		Volatility:         decimal.Zero,
		SharpeRatio:        decimal.Zero,
	}

	returns := make([]decimal.Decimal, 0, len(snapshots))
	for i := 1; i < len(snapshots); i++ {
		prev, curr := snapshots[i-1], snapshots[i]
		pct := percentChange(prev.TotalValue, curr.TotalValue)
		returns = append(returns, pct)
		if pct.GreaterThan(report.BestDay) {
			report.BestDay = pct
		}
		if pct.LessThan(report.WorstDay) {
			report.WorstDay = pct
		}
		report.DailyReturns = append(report.DailyReturns, DailyReturn{
			Date:          curr.SnapshotDate,
			Value:         curr.TotalValue,
			ReturnAmount:  curr.TotalValue.Sub(prev.TotalValue),
			ReturnPercent: pct,
		})
	}

	if len(returns) > 0 {
		report.AverageDailyReturn = decimal.Sum(returns[0], returns[1:]...).
			DivRound(decimal.NewFromInt(int64(len(returns))), finmath.PercentScale)
	}
	if len(returns) >= 2 {
		report.Volatility = stats.PopulationStdDev(returns).Round(finmath.PercentScale)
	}
	if report.Volatility.IsPositive() {
		report.SharpeRatio = report.AverageDailyReturn.DivRound(report.Volatility, finmath.PercentScale)
	}
	return report, nil
}

// percentChange is (to-from)/from × 100 with the ratio rounded to four
// digits, or zero unless from is positive.
func percentChange(from, to decimal.Decimal) decimal.Decimal {
	if !from.IsPositive() {
		return decimal.Zero
	}
	return to.Sub(from).DivRound(from, finmath.PercentScale).Mul(finmath.Hundred)
}

// GetTaxReport lists the realized gain or loss of every SELL within the
// optional day range. Each sale is measured against the average cost held
// at the moment of sale, so the full history is replayed.
func (s *reportService) GetTaxReport(ctx context.Context, userID, portfolioID string, start, end *time.Time) (*TaxReport, error) {
	db := s.db.WithContext(ctx)
	portfolio, err := getOwnedPortfolio(db, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	var from, to *time.Time
	if start != nil {
		d := startOfDay(*start)
		from = &d
	}
	if end != nil {
		d := endOfDay(*end)
		to = &d
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date must not be after end date")
	}

	txs, err := loadLedger(db, portfolio.ID)
	if err != nil {
		return nil, err
	}

	report := &TaxReport{
		PortfolioID:   portfolio.ID,
		PortfolioName: portfolio.Name,
		ReportDate:    s.now().UTC(),
		StartDate:     from,
		EndDate:       to,
		Currency:      portfolio.BaseCurrency,
		Transactions:  []RealizedTransaction{},
		TotalGains:    decimal.Zero,
		TotalLosses:   decimal.Zero,
		NetGainLoss:   decimal.Zero,
		GainsByAsset:  map[string]decimal.Decimal{},
		LossesByAsset: map[string]decimal.Decimal{},
	}

	positions, flagged, err := s.summarizer.engine.Positions(txs)
	if err != nil {
		return nil, translateLedgerError(err)
	}
	report.Flagged = flagged
	logFlagged(portfolio.ID, flagged)
	for _, ap := range positions {
		asset := ap.Asset
		for _, r := range ap.Position.Realizations {
			if r.Type != models.TransactionTypeSell {
				continue
			}
			if (from != nil && r.Date.Before(*from)) || (to != nil && r.Date.After(*to)) {
				continue
			}

			entry := RealizedTransaction{
				TransactionID: r.TransactionID,
				Symbol:        asset.Symbol,
				Name:          asset.Name,
				SellDate:      r.Date,
				Quantity:      r.Quantity,
				SellPrice:     r.Price,
				Fee:           r.Fee,
				CostBasis:     r.CostBasis,
				RealizedGain:  decimal.Zero,
				RealizedLoss:  decimal.Zero,
			}
			if r.PnL.IsPositive() {
				entry.RealizedGain = r.PnL
				report.TotalGains = report.TotalGains.Add(r.PnL)
				report.GainsByAsset[asset.Symbol] = report.GainsByAsset[asset.Symbol].Add(r.PnL)
			} else if r.PnL.IsNegative() {
				loss := r.PnL.Neg()
				entry.RealizedLoss = loss
				report.TotalLosses = report.TotalLosses.Add(loss)
				report.LossesByAsset[asset.Symbol] = report.LossesByAsset[asset.Symbol].Add(loss)
			}
			report.Transactions = append(report.Transactions, entry)
		}
	}

	sort.SliceStable(report.Transactions, func(i, j int) bool {
		return report.Transactions[i].SellDate.Before(report.Transactions[j].SellDate)
	})
	report.NetGainLoss = report.TotalGains.Sub(report.TotalLosses)
	return report, nil
}
