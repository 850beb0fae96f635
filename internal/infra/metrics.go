package infra

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "upbit_bot"

// Metrics groups the bot's prometheus collectors. Each instance owns its
// registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	ticks         prometheus.Counter
	ticksSkipped  prometheus.Counter
	tickDuration  prometheus.Histogram
	marketsPerRun prometheus.Gauge
	outcomes      *prometheus.CounterVec
	orders        *prometheus.CounterVec
	errors        *prometheus.CounterVec
	notifyDropped prometheus.Counter
	limiterWait   prometheus.Histogram
	streamUp      prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Number of scheduler ticks executed.",
		}),
		ticksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_skipped_total",
			Help:      "Ticks dropped because the previous tick was still running.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of a full tick.",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 120},
		}),
		marketsPerRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "markets_discovered",
			Help:      "Markets eligible in the last tick.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "strategy_outcomes_total",
			Help:      "Strategy evaluations by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "orders_total",
			Help:      "Orders dispatched by side.",
		}, []string{"side"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Errors by kind.",
		}, []string{"kind"}),
		notifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications dropped because the queue was full or delivery failed.",
		}),
		limiterWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "limiter_wait_seconds",
			Help:      "Time spent waiting for a rate limiter slot.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		streamUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stream_connected",
			Help:      "1 while the ticker websocket is connected.",
		}),
	}

	m.registry.MustRegister(
		m.ticks, m.ticksSkipped, m.tickDuration, m.marketsPerRun, m.outcomes,
		m.orders, m.errors, m.notifyDropped, m.limiterWait, m.streamUp,
	)
	return m
}

// RecordTick records a finished tick.
func (m *Metrics) RecordTick(d time.Duration, markets int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.marketsPerRun.Set(float64(markets))
}

// RecordTickSkipped records a tick dropped by the overlap policy.
func (m *Metrics) RecordTickSkipped() {
	if m == nil {
		return
	}
	m.ticksSkipped.Inc()
}

// RecordOutcome records a strategy evaluation result.
func (m *Metrics) RecordOutcome(strategy, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(strategy, outcome).Inc()
}

// RecordOrder records a dispatched order.
func (m *Metrics) RecordOrder(side string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(side).Inc()
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

// RecordNotifyDropped records a lost notification.
func (m *Metrics) RecordNotifyDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}

// RecordLimiterWait records a rate limiter wait. Its signature matches
// Limiter.Observe.
func (m *Metrics) RecordLimiterWait(_ time.Time, waited time.Duration) {
	if m == nil {
		return
	}
	m.limiterWait.Observe(waited.Seconds())
}

// SetStreamConnected sets the websocket state (true = connected).
func (m *Metrics) SetStreamConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.streamUp.Set(1)
	} else {
		m.streamUp.Set(0)
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
