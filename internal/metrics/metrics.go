// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers the service's operational metrics.
type Collector struct {
	httpStatus     *prometheus.CounterVec
	loginSuccess   prometheus.Counter
	loginFailure   prometheus.Counter
	authRejections *prometheus.CounterVec
	activeSessions prometheus.Gauge
	totalBooks     prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstore_http_status_total",
			Help: "Responses by HTTP status code.",
		}, []string{"status_code"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstore_login_success_total",
			Help: "Successful logins.",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstore_login_failure_total",
			Help: "Rejected login attempts.",
		}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstore_auth_rejections_total",
			Help: "Requests rejected by the session validator, by reason.",
		}, []string{"reason"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bookstore_active_sessions",
			Help: "Session records currently present in the store.",
		}),
		totalBooks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bookstore_books_total",
			Help: "Books currently in the catalog.",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.loginSuccess,
		c.loginFailure,
		c.authRejections,
		c.activeSessions,
		c.totalBooks,
	)
	return c
}

// RecordHTTPStatus counts a response by status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLogin counts a login attempt.
func (c *Collector) RecordLogin(success bool) {
	if success {
		c.loginSuccess.Inc()
	} else {
		c.loginFailure.Inc()
	}
}

// RecordAuthRejection counts a request the session validator turned away.
func (c *Collector) RecordAuthRejection(reason string) {
	c.authRejections.WithLabelValues(reason).Inc()
}

// SetActiveSessions updates the active-session gauge.
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// SetTotalBooks updates the catalog-size gauge.
func (c *Collector) SetTotalBooks(n int) {
	c.totalBooks.Set(float64(n))
}

// Handler returns the HTTP handler serving Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
