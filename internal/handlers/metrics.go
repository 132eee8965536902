package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the HTTP API.
type Metrics struct {
	Requests        *prometheus.CounterVec   // http_requests_total{method,route,status}
	Duration        *prometheus.HistogramVec // http_request_duration_seconds{method,route}
	OrdersCreated   prometheus.Counter
	OrderRejections *prometheus.CounterVec // order_rejections_total{kind}
	PublishFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Count of HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders stored successfully.",
		}),
		OrderRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_rejections_total",
				Help: "Order requests rejected by a business rule, by kind.",
			},
			[]string{"kind"},
		),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_event_publish_failures_total",
			Help: "Order-created events that could not be queued.",
		}),
	}
	reg.MustRegister(m.Requests, m.Duration, m.OrdersCreated, m.OrderRejections, m.PublishFailures)
	return m
}
