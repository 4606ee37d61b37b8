package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestListingMutationCounter(t *testing.T) {
	m := New()
	m.ListingMutation("thrift", "create")
	m.ListingMutation("thrift", "create")
	m.ListingMutation("lost_found", "delete")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.listingMutations.WithLabelValues("thrift", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.listingMutations.WithLabelValues("lost_found", "delete")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ListingMutation("thrift", "create")
		m.CacheLookup("thrift", true)
		m.UploadFailed()
		m.AuthEvent("signed_in")
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest("GET", "/api/v1/thrift", 200, 5*time.Millisecond)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "findonlu_http_requests_total")
}

func TestAuthEventCounter(t *testing.T) {
	m := New()
	m.AuthEvent("signed_in")
	m.AuthEvent("signed_out")
	m.AuthEvent("signed_in")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues("signed_in")))
}
