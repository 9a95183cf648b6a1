// Package metrics exposes Prometheus counters for requests and auth outcomes.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	otpSent      *prometheus.CounterVec
	otpVerified  *prometheus.CounterVec
	signIns      *prometheus.CounterVec
	linked       *prometheus.CounterVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		otpSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_send_total",
				Help: "One-time code send attempts by result",
			},
			[]string{"result"},
		),
		otpVerified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_verify_total",
				Help: "One-time code verification attempts by result",
			},
			[]string{"result"},
		),
		signIns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_sign_in_total",
				Help: "Sign-in attempts by method and result",
			},
			[]string{"method", "result"},
		),
		linked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_identity_link_total",
				Help: "Phone identity resolutions by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveRequest implements logging.RequestObserver
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) OTPSent(result string) {
	if m == nil {
		return
	}
	m.otpSent.WithLabelValues(result).Inc()
}

func (m *Metrics) OTPVerified(result string) {
	if m == nil {
		return
	}
	m.otpVerified.WithLabelValues(result).Inc()
}

func (m *Metrics) SignIn(method, result string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(method, result).Inc()
}

func (m *Metrics) IdentityLinked(outcome string) {
	if m == nil {
		return
	}
	m.linked.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
