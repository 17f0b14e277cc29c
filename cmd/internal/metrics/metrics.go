// Package metrics owns the service's Prometheus registry.
//
// All recording methods are safe on a nil *Metrics so handlers can run without metrics
// in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jbv"

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	reg *prometheus.Registry

	linkRequests  *prometheus.CounterVec
	verifications *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New builds a registry with Go/process collectors and the service's own metrics.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		linkRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "link_requests_total",
			Help:      "Magic-link requests by outcome code.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "link_verifications_total",
			Help:      "Magic-link verifications by outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "class"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.linkRequests,
		m.verifications,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// LinkRequested counts a request-magic-link outcome ("success", "unauthorized", ...).
func (m *Metrics) LinkRequested(outcome string) {
	if m == nil {
		return
	}
	m.linkRequests.WithLabelValues(outcome).Inc()
}

// LinkVerified counts a verify outcome ("success", "missing_token", "invalid_token", ...).
func (m *Metrics) LinkVerified(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one request. route must be a registered pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, StatusClass(status)).Observe(d.Seconds())
}

// StatusClass maps 404 -> "4xx".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
