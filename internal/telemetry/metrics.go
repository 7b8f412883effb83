package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "hosting_portal"

// Collector holds the portal's Prometheus metrics.
type Collector struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	RateLimited         *prometheus.CounterVec
	SubdomainRequests   *prometheus.CounterVec
	CheckoutTransitions *prometheus.CounterVec
	AuthEvents          *prometheus.CounterVec
	MailFailures        prometheus.Counter
}

// NewCollector returns an unregistered Collector.
func NewCollector() *Collector {
	return &Collector{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status code.",
			}, []string{"route", "method", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			}, []string{"route", "method"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the per-IP limiter, by protection level.",
			}, []string{"level"},
		),
		SubdomainRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "subdomain_requests_total",
				Help:      "Subdomain provisioning attempts by outcome.",
			}, []string{"outcome"},
		),
		CheckoutTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "checkout_transitions_total",
				Help:      "Checkout state transitions by target state.",
			}, []string{"to"},
		),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_events_total",
				Help:      "Authentication events by action and result.",
			}, []string{"action", "result"},
		),
		MailFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "mail_failures_total",
				Help:      "Transactional emails that could not be sent.",
			},
		),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.HTTPRequests, c.HTTPDuration, c.RateLimited, c.SubdomainRequests,
		c.CheckoutTransitions, c.AuthEvents, c.MailFailures,
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}
