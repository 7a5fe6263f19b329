package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// finance/exam domain counters.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	paymentsTotal    prometheus.Counter
	paymentAmount    prometheus.Counter
	resultsComputed  prometheus.Counter
	resultsPublished prometheus.Counter

	cacheOperations *prometheus.CounterVec
	cacheDuration   prometheus.Histogram
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

	paymentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_payments_total",
		Help: "Total number of fee payments collected",
	})

	paymentAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_payment_amount_total",
		Help: "Total monetary amount collected",
	})

	resultsComputed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exam_results_computed_total",
		Help: "Total number of exam results computed",
	})

	resultsPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exam_results_published_total",
		Help: "Total number of exam results published",
	})

	cacheOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_operations_total",
		Help: "Cache lookups partitioned by outcome",
	}, []string{"outcome"})

	cacheDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_operation_duration_seconds",
		Help:    "Duration of cache operations in seconds",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, paymentsTotal, paymentAmount, resultsComputed, resultsPublished, cacheOperations, cacheDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		paymentsTotal:    paymentsTotal,
		paymentAmount:    paymentAmount,
		resultsComputed:  resultsComputed,
		resultsPublished: resultsPublished,
		cacheOperations:  cacheOperations,
		cacheDuration:    cacheDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObservePayment counts one collected payment and its amount.
func (m *MetricsService) ObservePayment(amount float64) {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc()
	m.paymentAmount.Add(amount)
}

// ObserveResultComputed counts one computed exam result.
func (m *MetricsService) ObserveResultComputed() {
	if m == nil {
		return
	}
	m.resultsComputed.Inc()
}

// RecordCacheOperation counts one cache lookup and its latency.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheOperations.WithLabelValues(outcome).Inc()
	m.cacheDuration.Observe(duration.Seconds())
}

// ObserveCacheWrite records cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheDuration.Observe(duration.Seconds())
}

// ObserveResultsPublished counts published exam results.
func (m *MetricsService) ObserveResultsPublished(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.resultsPublished.Add(float64(count))
}
