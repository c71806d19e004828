package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// API is the subset of Client the runner needs.
type API interface {
	RefreshPrices(ctx context.Context) (*PriceRefresh, error)
	RecordSnapshots(ctx context.Context) (*SnapshotSweep, error)
	CheckAlerts(ctx context.Context) (*AlertCheck, error)
}

// Steps selects which endpoints a run calls.
type Steps struct {
	RefreshPrices   bool
	RecordSnapshots bool
	CheckAlerts     bool
}

// StepError records a failed step.
type StepError struct {
	Step string
	Err  error
}

// RunResult contains the outcome of one run.
type RunResult struct {
	Prices    *PriceRefresh
	Snapshots *SnapshotSweep
	Alerts    *AlertCheck
	Errors    []StepError
	Duration  time.Duration
}

// Failed reports whether any step failed or reported per-item errors.
func (r *RunResult) Failed() bool {
	return len(r.Errors) > 0 || (r.Snapshots != nil && r.Snapshots.Errors > 0)
}

// Runner calls the pipeline endpoints in order: prices first so that the
// snapshot sweep and the alert check read fresh quotes.
type Runner struct {
	api   API
	steps Steps
	log   *zap.SugaredLogger
}

// NewRunner creates a runner.
func NewRunner(api API, steps Steps, log *zap.SugaredLogger) *Runner {
	return &Runner{api: api, steps: steps, log: log}
}

// Run executes one cycle. A failed price refresh aborts the run; the later
// steps are independent and a failure in one does not skip the other.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	if r.steps.RefreshPrices {
		prices, err := r.api.RefreshPrices(ctx)
		if err != nil {
			return nil, err
		}
		result.Prices = prices
		r.log.Infow("Prices refreshed", "assets", prices.Assets, "priced", prices.Priced, "unpriced", prices.Unpriced)
	}

	if r.steps.RecordSnapshots {
		sweep, err := r.api.RecordSnapshots(ctx)
		if err != nil {
			r.log.Warnw("Snapshot sweep failed", "error", err)
			result.Errors = append(result.Errors, StepError{Step: "snapshots", Err: err})
		} else {
			result.Snapshots = sweep
			r.log.Infow("Snapshots recorded", "success", sweep.Success, "errors", sweep.Errors)
		}
	}

	if r.steps.CheckAlerts {
		check, err := r.api.CheckAlerts(ctx)
		if err != nil {
			r.log.Warnw("Alert check failed", "error", err)
			result.Errors = append(result.Errors, StepError{Step: "alerts", Err: err})
		} else {
			result.Alerts = check
			r.log.Infow("Alerts checked", "checked", check.Checked, "triggered", check.Triggered, "unpriced", check.Unpriced)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}
