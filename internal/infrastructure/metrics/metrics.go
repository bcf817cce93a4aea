package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Optimizer metrics
	Optimizations      *prometheus.CounterVec
	OptimizeDuration   prometheus.Histogram
	SuggestedTransfers prometheus.Histogram
	TransferSavings    prometheus.Histogram

	// Settlement metrics
	Settlements      *prometheus.CounterVec
	SettlementAmount prometheus.Histogram
	ExpensesRecorded prometheus.Counter
	GroupsCreated    prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all Prometheus metrics and registers them with reg. A nil reg
// means prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Optimizer metrics
		Optimizations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosettle_optimizations_total",
				Help: "Total settlement optimizations by outcome",
			},
			[]string{"outcome"},
		),
		OptimizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gosettle_optimize_duration_seconds",
			Help:    "Duration of settlement optimization including the snapshot read",
			Buckets: prometheus.DefBuckets,
		}),
		SuggestedTransfers: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gosettle_optimize_transfers",
			Help:    "Number of transfers suggested per optimization",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 64},
		}),
		TransferSavings: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gosettle_optimize_savings",
			Help:    "Transfers saved compared to pairwise settlement",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 64},
		}),

		// Settlement metrics
		Settlements: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosettle_settlements_total",
				Help: "Settlement state changes by resulting status",
			},
			[]string{"status"},
		),
		SettlementAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gosettle_settlement_amount",
			Help:    "Settlement amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		ExpensesRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "gosettle_expenses_recorded_total",
			Help: "Total number of expenses recorded",
		}),
		GroupsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "gosettle_groups_created_total",
			Help: "Total number of groups created",
		}),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosettle_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gosettle_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "gosettle_http_in_flight_requests",
			Help: "Current number of HTTP requests being served",
		}),

		// Cache metrics
		CacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosettle_cache_requests_total",
				Help: "Optimize cache lookups by result",
			},
			[]string{"result"},
		),

		// Outbox metrics
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "gosettle_outbox_published_total",
			Help: "Total outbox events published",
		}),
		OutboxFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "gosettle_outbox_failed_total",
			Help: "Total outbox events that failed to publish",
		}),

		// Authentication metrics
		AuthAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosettle_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),

		// Rate limiting metrics
		RateLimitHits: f.NewCounter(prometheus.CounterOpts{
			Name: "gosettle_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}
