package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// RecommendationMetrics tracks how recommendations are produced
type RecommendationMetrics struct {
	requests   *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	iterations prometheus.Histogram
	activities *prometheus.CounterVec
}

func NewRecommendationMetrics(registerer prometheus.Registerer, logger *logrus.Logger) *RecommendationMetrics {
	m := &RecommendationMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Recommendation requests by serving strategy",
		}, []string{"strategy"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_fallbacks_total",
			Help: "Popularity fallbacks by reason",
		}, []string{"reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time spent producing recommendations",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recommendation_kmeans_iterations",
			Help:    "K-means iterations per clustering run",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		activities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "user_activity_recorded_total",
			Help: "Recorded shopper activities by type",
		}, []string{"type"}),
	}

	m.requests = registerCollector(registerer, m.requests, logger)
	m.fallbacks = registerCollector(registerer, m.fallbacks, logger)
	m.latency = registerCollector(registerer, m.latency, logger)
	m.iterations = registerCollector(registerer, m.iterations, logger)
	m.activities = registerCollector(registerer, m.activities, logger)

	return m
}

// ObserveRecommendation records a served recommendation result
func (m *RecommendationMetrics) ObserveRecommendation(result *RecommendationResult) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(result.Strategy).Inc()
	m.latency.WithLabelValues(result.Strategy).Observe(result.Latency.Seconds())
	if result.FallbackReason != "" {
		m.fallbacks.WithLabelValues(result.FallbackReason).Inc()
	}
}

func (m *RecommendationMetrics) ObserveIterations(iterations int) {
	if m == nil {
		return
	}
	m.iterations.Observe(float64(iterations))
}

func (m *RecommendationMetrics) ObserveActivity(activityType string) {
	if m == nil {
		return
	}
	m.activities.WithLabelValues(activityType).Inc()
}

// registerCollector registers c and returns it. When an identical collector
// is already registered the existing one is returned so observations reach it.
func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, c T, logger *logrus.Logger) T {
	err := registerer.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	logger.WithError(err).Warn("Failed to register metric")
	return c
}
