package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	identifierConflicts *prometheus.CounterVec
	identifierExhausted *prometheus.CounterVec
	identifierIssued    *prometheus.CounterVec
	mailDeliveries      *prometheus.CounterVec
	accountFailures     prometheus.Counter
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	identifierConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identifier_conflicts_total",
		Help: "Unique violations hit while allocating human-readable identifiers",
	}, []string{"kind"})

	identifierExhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identifier_exhausted_total",
		Help: "Identifier allocations that ran out of retries",
	}, []string{"kind"})

	identifierIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identifier_issued_total",
		Help: "Identifiers successfully allocated",
	}, []string{"kind"})

	mailDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_deliveries_total",
		Help: "Outbound email attempts by template and result",
	}, []string{"template", "result"})

	accountFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "account_provisioning_failures_total",
		Help: "Teacher records created without the requested login account",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, identifierConflicts, identifierExhausted,
		identifierIssued, mailDeliveries, accountFailures, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLookups:        cacheLookups,
		identifierConflicts: identifierConflicts,
		identifierExhausted: identifierExhausted,
		identifierIssued:    identifierIssued,
		mailDeliveries:      mailDeliveries,
		accountFailures:     accountFailures,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup counts a cache hit, miss or error.
func (m *MetricsService) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// IdentifierConflict counts a unique violation during allocation.
func (m *MetricsService) IdentifierConflict(kind string) {
	if m == nil {
		return
	}
	m.identifierConflicts.WithLabelValues(kind).Inc()
}

// IdentifierExhausted counts an allocation that gave up.
func (m *MetricsService) IdentifierExhausted(kind string) {
	if m == nil {
		return
	}
	m.identifierExhausted.WithLabelValues(kind).Inc()
}

// IdentifierIssued counts a successful allocation.
func (m *MetricsService) IdentifierIssued(kind string) {
	if m == nil {
		return
	}
	m.identifierIssued.WithLabelValues(kind).Inc()
}

// MailDelivery counts a delivery attempt.
func (m *MetricsService) MailDelivery(template string, ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.mailDeliveries.WithLabelValues(template, result).Inc()
}

// AccountProvisioningFailed counts a partial-success teacher creation.
func (m *MetricsService) AccountProvisioningFailed() {
	if m == nil {
		return
	}
	m.accountFailures.Inc()
}
