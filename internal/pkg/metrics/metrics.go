package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	listingMutations *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	uploadFailures   prometheus.Counter
	authEvents       *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "findonlu_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "findonlu_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	listingMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "findonlu_listing_mutations_total",
		Help: "Listing creates, updates and deletes by category",
	}, []string{"category", "op"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "findonlu_list_cache_lookups_total",
		Help: "Active-list cache lookups by result",
	}, []string{"category", "result"})

	uploadFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "findonlu_image_upload_failures_total",
		Help: "Image uploads that failed; the listing was posted without an image",
	})

	authEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "findonlu_auth_events_total",
		Help: "Auth state transitions by type",
	}, []string{"type"})

	registry.MustRegister(
		requestDuration, requestTotal, listingMutations, cacheLookups, uploadFailures, authEvents,
		collectors.NewGoCollector(),
	)

	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		listingMutations: listingMutations,
		cacheLookups:     cacheLookups,
		uploadFailures:   uploadFailures,
		authEvents:       authEvents,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	s := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, s).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, s).Inc()
}

// ListingMutation counts op ("create", "update", "delete") for a category.
func (m *Metrics) ListingMutation(category, op string) {
	if m == nil {
		return
	}
	m.listingMutations.WithLabelValues(category, op).Inc()
}

func (m *Metrics) CacheLookup(category string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(category, result).Inc()
}

func (m *Metrics) UploadFailed() {
	if m == nil {
		return
	}
	m.uploadFailures.Inc()
}

func (m *Metrics) AuthEvent(eventType string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(eventType).Inc()
}
