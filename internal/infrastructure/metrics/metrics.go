package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gobooks"

// Metrics holds all Prometheus metrics. It implements usecase.Recorder.
type Metrics struct {
	// Journal metrics
	JournalPosts     *prometheus.CounterVec
	JournalReversals prometheus.Counter

	// Closing metrics
	Closings *prometheus.CounterVec

	// Report metrics
	ReportDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits *prometheus.CounterVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		JournalPosts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journal_posts_total",
				Help:      "Journal post attempts by result",
			},
			[]string{"result"},
		),
		JournalReversals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_reversals_total",
			Help:      "Total number of reversal entries created",
		}),

		Closings: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "closings_total",
				Help:      "Year-end closing runs by result",
			},
			[]string{"result"},
		),

		ReportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_duration_seconds",
				Help:      "Time to produce a report",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"report", "cache"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),

		AuthFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Rejected bearer tokens by reason",
			},
			[]string{"reason"},
		),
	}
}

// JournalPosted counts a successful post.
func (m *Metrics) JournalPosted(replayed bool) {
	result := "posted"
	if replayed {
		result = "replayed"
	}
	m.JournalPosts.WithLabelValues(result).Inc()
}

// JournalPostFailed counts a rejected post.
func (m *Metrics) JournalPostFailed() {
	m.JournalPosts.WithLabelValues("failed").Inc()
}

// JournalReversed counts a reversal.
func (m *Metrics) JournalReversed() {
	m.JournalReversals.Inc()
}

// YearClosed counts a closing run.
func (m *Metrics) YearClosed(err error) {
	result := "closed"
	if err != nil {
		result = "failed"
	}
	m.Closings.WithLabelValues(result).Inc()
}

// ReportBuilt observes the time spent producing a report.
func (m *Metrics) ReportBuilt(report string, d time.Duration, cached bool) {
	cache := "miss"
	if cached {
		cache = "hit"
	}
	m.ReportDuration.WithLabelValues(report, cache).Observe(d.Seconds())
}
