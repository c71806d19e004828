// Package metrics exposes the tracker's Prometheus instruments.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the tracker.
type Metrics struct {
	// Market data
	PriceLookups   *prometheus.CounterVec // labels: source (cache, provider name, none)
	ProviderErrors *prometheus.CounterVec // labels: provider
	ProviderDur    *prometheus.HistogramVec

	// Valuation
	Summaries        *prometheus.CounterVec // labels: outcome
	UnpricedHoldings prometheus.Counter

	// Batch jobs
	SweepPortfolios *prometheus.CounterVec // labels: outcome
	SweepDur        prometheus.Histogram
	AlertsTriggered prometheus.Counter

	// HTTP
	RequestDur *prometheus.HistogramVec // labels: method, route, status
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PriceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_price_lookups_total",
			Help: "Current price lookups by the source that answered",
		}, []string{"source"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_price_provider_errors_total",
			Help: "Failed price provider requests",
		}, []string{"provider"}),
		ProviderDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_price_provider_duration_seconds",
			Help:    "Latency of price provider requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		Summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_portfolio_summaries_total",
			Help: "Portfolio valuations by outcome (ok, error)",
		}, []string{"outcome"}),
		UnpricedHoldings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_unpriced_holdings_total",
			Help: "Holdings valued at zero because no price was available",
		}),
		SweepPortfolios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_snapshot_sweep_portfolios_total",
			Help: "Portfolios processed by the daily snapshot sweep, by outcome (success, error)",
		}, []string{"outcome"}),
		SweepDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_snapshot_sweep_duration_seconds",
			Help:    "Duration of a full snapshot sweep",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		AlertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_price_alerts_triggered_total",
			Help: "Price alerts that fired",
		}),
		RequestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.PriceLookups,
		m.ProviderErrors,
		m.ProviderDur,
		m.Summaries,
		m.UnpricedHoldings,
		m.SweepPortfolios,
		m.SweepDur,
		m.AlertsTriggered,
		m.RequestDur,
	)
	return m
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics, registered with the default
// Prometheus registerer on first use.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	Default()
	return promhttp.Handler()
}
