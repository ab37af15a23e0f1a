// Package metrics provides Prometheus instrumentation for Recourse.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric collectors for Recourse.
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	RecommendationsServed  *prometheus.CounterVec
	SimilarityScore        *prometheus.HistogramVec
	ActiveRequests         prometheus.Gauge
	CacheLookups           *prometheus.CounterVec
	ClusterAssignments     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all Recourse metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	// Include default Go and process collectors
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recourse_requests_total",
				Help: "Total HTTP requests by endpoint and status code.",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recourse_request_duration_seconds",
				Help:    "HTTP request latency distribution.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint"},
		),
		RecommendationsServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recourse_recommendations_served_total",
				Help: "Total recommendation items returned.",
			},
			[]string{"endpoint"},
		),
		SimilarityScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recourse_similarity_score",
				Help:    "Top result similarity score per recommendation request.",
				Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.2, 1.5},
			},
			[]string{"endpoint"},
		),
		ActiveRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recourse_active_requests",
				Help: "Number of requests currently being processed.",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recourse_cache_lookups_total",
				Help: "Recommendation cache lookups by outcome (hit/miss).",
			},
			[]string{"outcome"},
		),
		ClusterAssignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recourse_cluster_assignments_total",
				Help: "User profile cluster assignments by cluster id.",
			},
			[]string{"cluster"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RecommendationsServed,
		m.SimilarityScore,
		m.ActiveRequests,
		m.CacheLookups,
		m.ClusterAssignments,
	)

	return m
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a completed request's metrics.
func (m *Metrics) RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records recommendation-specific metrics.
func (m *Metrics) RecordRecommendation(endpoint string, served int, topScore float64, userCluster int) {
	m.RecommendationsServed.WithLabelValues(endpoint).Add(float64(served))
	m.ClusterAssignments.WithLabelValues(strconv.Itoa(userCluster)).Inc()
	if served > 0 {
		m.SimilarityScore.WithLabelValues(endpoint).Observe(topScore)
	}
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

// Middleware returns an HTTP middleware that instruments requests.
func (m *Metrics) Middleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.ActiveRequests.Inc()
		defer m.ActiveRequests.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r)

		m.RecordRequest(endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
