// Package metrics exposes prometheus instruments for the payout
// scheduler and webhook dispatcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type Metrics struct {
	ticksTotal       prometheus.Counter
	tickSuppressed   prometheus.Counter
	tickDuration     prometheus.Histogram
	payoutsProcessed *prometheus.CounterVec
	webhookOutcomes  *prometheus.CounterVec
	webhookAttempts  prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payout_scheduler_ticks_total",
			Help: "Scheduler ticks started.",
		}),
		tickSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payout_scheduler_ticks_suppressed_total",
			Help: "Ticks suppressed because a previous tick was still running.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "payout_scheduler_tick_duration_seconds",
			Help:    "Wall time of one scheduler tick.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		payoutsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payouts_processed_total",
			Help: "Payout submission outcomes by resulting status.",
		}, []string{"outcome"}),
		webhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merchant_webhook_deliveries_total",
			Help: "Terminal webhook delivery outcomes.",
		}, []string{"outcome"}),
		webhookAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "merchant_webhook_attempts",
			Help:    "HTTP attempts used per webhook delivery.",
			Buckets: []float64{1, 2, 3},
		}),
	}

	reg.MustRegister(
		m.ticksTotal,
		m.tickSuppressed,
		m.tickDuration,
		m.payoutsProcessed,
		m.webhookOutcomes,
		m.webhookAttempts,
	)
	return m
}

func (m *Metrics) IncTick() { m.ticksTotal.Inc() }

func (m *Metrics) IncTickSuppressed() { m.tickSuppressed.Inc() }

func (m *Metrics) ObserveTickDuration(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
}

func (m *Metrics) IncPayoutOutcome(outcome string) {
	m.payoutsProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncWebhookOutcome(outcome string) {
	m.webhookOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveWebhookAttempts(attempts int) {
	m.webhookAttempts.Observe(float64(attempts))
}

var Module = fx.Module("metrics",
	fx.Provide(func() prometheus.Registerer { return prometheus.DefaultRegisterer }),
	fx.Provide(New),
)
