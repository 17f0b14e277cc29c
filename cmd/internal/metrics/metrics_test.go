package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.LinkRequested("success")
	m.LinkRequested("success")
	m.LinkRequested("unauthorized")
	m.LinkVerified("invalid_token")

	require.Equal(t, 2.0, testutil.ToFloat64(m.linkRequests.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.linkRequests.WithLabelValues("unauthorized")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("invalid_token")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveHTTP(http.MethodPost, "/api/auth/request-magic-link", http.StatusOK, 20*time.Millisecond)
	m.LinkRequested("success")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.True(t, strings.Contains(body, `jbv_auth_link_requests_total{outcome="success"} 1`), body)
	require.Contains(t, body, `jbv_http_request_duration_seconds_count{class="2xx",method="POST",route="/api/auth/request-magic-link"} 1`)
	require.Contains(t, body, "go_goroutines")
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.LinkRequested("success")
	m.LinkVerified("success")
	m.ObserveHTTP(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatusClass(t *testing.T) {
	t.Parallel()

	cases := map[int]string{200: "2xx", 302: "3xx", 404: "4xx", 503: "5xx", 0: "unknown", 999: "unknown"}
	for in, want := range cases {
		require.Equal(t, want, StatusClass(in), "status=%d", in)
	}
}
