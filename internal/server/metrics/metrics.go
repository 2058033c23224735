// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chantube_http_requests_total",
		Help: "The total number of HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chantube_http_request_duration_seconds",
		Help:    "The HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chantube_registrations_total",
		Help: "The total number of registration attempts",
	}, []string{"status"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chantube_login_attempts_total",
		Help: "The total number of login attempts",
	}, []string{"status"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chantube_token_refresh_total",
		Help: "The total number of refresh token rotations",
	}, []string{"status"})

	MediaUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chantube_media_uploads_total",
		Help: "The total number of media uploads to the object store",
	}, []string{"status"})
)

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
