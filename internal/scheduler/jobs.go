package scheduler

import (
	"context"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

// SnapshotSweepJob records the daily snapshot of every portfolio.
type SnapshotSweepJob struct {
	analytics services.AnalyticsServicer
}

func NewSnapshotSweepJob(analytics services.AnalyticsServicer) *SnapshotSweepJob {
	return &SnapshotSweepJob{analytics: analytics}
}

func (j *SnapshotSweepJob) Name() string { return "snapshot_sweep" }

func (j *SnapshotSweepJob) Run(ctx context.Context) error {
	_, err := j.analytics.RecordDailySnapshots(ctx)
	return err
}

// AlertCheckJob evaluates every active price alert.
type AlertCheckJob struct {
	alerts services.AlertServicer
}

func NewAlertCheckJob(alerts services.AlertServicer) *AlertCheckJob {
	return &AlertCheckJob{alerts: alerts}
}

func (j *AlertCheckJob) Name() string { return "alert_check" }

func (j *AlertCheckJob) Run(ctx context.Context) error {
	result, err := j.alerts.CheckAlerts(ctx)
	if err != nil {
		return err
	}
	if result.Triggered > 0 {
		logger.Get().Infow("Price alerts triggered", "triggered", result.Triggered, "checked", result.Checked)
	}
	return nil
}

// PriceRefreshJob warms the price cache for every held asset.
type PriceRefreshJob struct {
	marketData services.MarketDataServicer
}

func NewPriceRefreshJob(marketData services.MarketDataServicer) *PriceRefreshJob {
	return &PriceRefreshJob{marketData: marketData}
}

func (j *PriceRefreshJob) Name() string { return "price_refresh" }

func (j *PriceRefreshJob) Run(ctx context.Context) error {
	_, err := j.marketData.RefreshAll(ctx)
	return err
}
