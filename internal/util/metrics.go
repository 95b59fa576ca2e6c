package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_orders_created_total",
		Help: "Total number of orders placed",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_order_transitions_total",
		Help: "Order status transitions by target status",
	}, []string{"status"})

	OrderTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_order_transitions_rejected_total",
		Help: "Order status transitions refused because of the current status",
	}, []string{"from", "to"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_order_idempotent_replays_total",
		Help: "Checkout requests answered from a previous idempotency key",
	})

	SalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_sales_recorded_total",
		Help: "Total number of seller-reported sales",
	})

	UnitsSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_units_sold_total",
		Help: "Units sold across all recorded sales",
	})

	BookMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_book_mutations_total",
		Help: "Catalog writes by operation",
	}, []string{"op"})

	WishlistOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_wishlist_ops_total",
		Help: "Wishlist operations by outcome",
	}, []string{"op", "result"})

	StatsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_stats_cache_lookups_total",
		Help: "Stats cache lookups by result",
	}, []string{"scope", "result"})

	StatsComputeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookstore_stats_compute_latency_seconds",
		Help:    "Latency of stats aggregation",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})

	EventsPublishFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_events_publish_failed_total",
		Help: "Domain events that could not be published",
	}, []string{"type"})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_events_consumed_total",
		Help: "Domain events handled by the stats worker",
	}, []string{"type"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_login_attempts_total",
		Help: "Login attempts by role and result",
	}, []string{"role", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
