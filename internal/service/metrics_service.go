package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the matching/goal engines.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	matchTotal      *prometheus.CounterVec
	scorerFallbacks prometheus.Counter
	goalRecomputes  prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	matchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lesson_matches_total",
		Help: "Matching attempts by outcome",
	}, []string{"flow", "outcome"})

	scorerFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scorer_fallbacks_total",
		Help: "Times the assisted scorer fell back to the deterministic scorer",
	})

	goalRecomputes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goal_recomputes_total",
		Help: "Goal progress recomputations",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, matchTotal, scorerFallbacks, goalRecomputes, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		matchTotal:      matchTotal,
		scorerFallbacks: scorerFallbacks,
		goalRecomputes:  goalRecomputes,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// IncMatch records a matching attempt outcome for a flow (scheduled/instant).
func (s *MetricsService) IncMatch(flow, outcome string) {
	s.matchTotal.WithLabelValues(flow, outcome).Inc()
}

// IncScorerFallback records one deterministic fallback.
func (s *MetricsService) IncScorerFallback() {
	s.scorerFallbacks.Inc()
}

// IncGoalRecompute records one goal progress recomputation.
func (s *MetricsService) IncGoalRecompute() {
	s.goalRecomputes.Inc()
}
