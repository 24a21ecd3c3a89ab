package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes recorded on wallet_operations_total.
const (
	OutcomeCommitted           = "committed"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeOverflow            = "overflow"
	OutcomeNotFound            = "not_found"
	OutcomeLockTimeout         = "lock_timeout"
	OutcomeError               = "error"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Wallet metrics
	WalletsCreated    prometheus.Counter
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TxRetries         prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics on a dedicated registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		WalletsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_wallets_created_total",
			Help: "Total number of wallets created",
		}),
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_operations_total",
				Help: "Balance operations by type and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_operation_duration_seconds",
				Help:    "Duration of balance operations including lock wait",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		TxRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_tx_retries_total",
			Help: "Transactions retried after a deadlock or serialization failure",
		}),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"group"},
		),
	}
}

// Registry exposes the underlying registry (tests, custom gathering).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, path string, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) IncInFlight() {
	if m != nil {
		m.HTTPInFlight.Inc()
	}
}

func (m *Metrics) DecInFlight() {
	if m != nil {
		m.HTTPInFlight.Dec()
	}
}

func (m *Metrics) IncWalletsCreated() {
	if m != nil {
		m.WalletsCreated.Inc()
	}
}

// ObserveOperation records one finished balance operation.
func (m *Metrics) ObserveOperation(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncTxRetry() {
	if m != nil {
		m.TxRetries.Inc()
	}
}

func (m *Metrics) IncRateLimitHit(group string) {
	if m != nil {
		m.RateLimitHits.WithLabelValues(group).Inc()
	}
}
