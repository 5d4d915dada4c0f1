package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric label values.
const (
	UploadResultSuccess      = "success"
	UploadResultInvalid      = "invalid"
	UploadResultNoLocation   = "no_location"
	UploadResultObjectFailed = "object_upload_failed"
	UploadResultStoreFailed  = "store_failed"
	LocationResultFix        = "fix"
	LocationResultNone       = "none"
	PermissionResultGranted  = "granted"
	PermissionResultRejected = "rejected"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the device agent.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	uploadOutcomes  *prometheus.CounterVec
	uploadDuration  prometheus.Histogram
	locationResults *prometheus.CounterVec
	permissionGates *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
}

// NewMetricsService registers the collectors on a private registry.
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
		Name: "gallery_cache_lookups_total",
		Help: "Gallery cache lookups by result",
	}, []string{"result"})

	uploadOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_outcomes_total",
		Help: "Photo submissions by image origin and result",
	}, []string{"origin", "result"})

	uploadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "upload_duration_seconds",
		Help:    "Time from submit to store confirmation",
		Buckets: prometheus.DefBuckets,
	})

	locationResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "location_requests_total",
		Help: "Single-shot location requests by result",
	}, []string{"result"})

	permissionGates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permission_checks_total",
		Help: "Permission gate decisions by platform and result",
	}, []string{"platform", "result"})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_operation_duration_seconds",
		Help:    "Duration of metadata store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, uploadOutcomes, uploadDuration,
		locationResults, permissionGates, storeDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		uploadOutcomes:  uploadOutcomes,
		uploadDuration:  uploadDuration,
		locationResults: locationResults,
		permissionGates: permissionGates,
		storeDuration:   storeDuration,
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

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheLookup counts a gallery cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordUpload counts one submission outcome. Successful submissions also
// record their duration.
func (m *MetricsService) RecordUpload(origin, result string, duration time.Duration) {
	if m == nil {
		return
	}
	if origin == "" {
		origin = "unknown"
	}
	m.uploadOutcomes.WithLabelValues(origin, result).Inc()
	if result == UploadResultSuccess {
		m.uploadDuration.Observe(duration.Seconds())
	}
}

// RecordLocation counts whether a location request produced a fix.
func (m *MetricsService) RecordLocation(gotFix bool) {
	if m == nil {
		return
	}
	result := LocationResultNone
	if gotFix {
		result = LocationResultFix
	}
	m.locationResults.WithLabelValues(result).Inc()
}

// RecordPermission counts a permission gate decision.
func (m *MetricsService) RecordPermission(platform string, granted bool) {
	if m == nil {
		return
	}
	result := PermissionResultRejected
	if granted {
		result = PermissionResultGranted
	}
	m.permissionGates.WithLabelValues(platform, result).Inc()
}

// ObserveStore records the duration of a metadata store operation.
func (m *MetricsService) ObserveStore(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
