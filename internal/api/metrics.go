package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// Metrics exposes the server's Prometheus instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	analysesTotal    prometheus.Counter
	recommendations  prometheus.Gauge
	potentialSavings prometheus.Gauge
}

// NewMetrics creates and registers the metric set on its own registry so
// tests can create servers without collector name collisions.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudoptimizer_http_requests_total",
			Help: "HTTP requests processed, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudoptimizer_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		analysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cloudoptimizer_analyses_total",
			Help: "Completed analysis runs served by this process.",
		}),
		recommendations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudoptimizer_recommendations",
			Help: "Recommendation count in the most recent analysis.",
		}),
		potentialSavings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudoptimizer_potential_monthly_savings",
			Help: "Total potential monthly savings in the reporting currency.",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.analysesTotal,
		m.recommendations,
		m.potentialSavings,
	)
	return m
}

// RecordRequest tallies one served request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAnalysis publishes the headline figures of a finished run.
func (m *Metrics) ObserveAnalysis(set *cost.RecommendationSet) {
	m.analysesTotal.Inc()
	m.recommendations.Set(float64(len(set.Recommendations)))
	m.potentialSavings.Set(set.TotalSavings.Float64())
}
