// Package metrics holds the prometheus collectors of the store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pulgax"

type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	OrdersCreated     prometheus.Counter
	OrderRejections   *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	Refunds           prometheus.Counter
	RefundedAmount    prometheus.Counter

	Notifications          *prometheus.CounterVec
	NotificationQueueDepth prometheus.Gauge

	ConsistencyIssues *prometheus.GaugeVec
}

// New registers every collector on reg. Tests pass a fresh prometheus.NewRegistry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OrdersCreated: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orders",
				Name:      "created_total",
				Help:      "Orders persisted",
			},
		),
		OrderRejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orders",
				Name:      "rejections_total",
				Help:      "Checkout attempts rejected by pricing or validation, by error code",
			},
			[]string{"code"},
		),
		StatusTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orders",
				Name:      "status_transitions_total",
				Help:      "Order status updates by target status",
			},
			[]string{"status"},
		),
		Refunds: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orders",
				Name:      "refunds_total",
				Help:      "Refunds processed",
			},
		),
		RefundedAmount: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "orders",
				Name:      "refunded_amount_total",
				Help:      "Sum of refunded amounts in EUR",
			},
		),
		Notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "deliveries_total",
				Help:      "Notification deliveries by sink and outcome (sent, skipped, failed, rejected, dropped)",
			},
			[]string{"sink", "outcome"},
		),
		NotificationQueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "queue_depth",
				Help:      "Events waiting for a dispatcher worker",
			},
		),
		ConsistencyIssues: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "consistency_issues",
				Help:      "Issues found by the last consistency check, by severity",
			},
			[]string{"severity"},
		),
	}
}
