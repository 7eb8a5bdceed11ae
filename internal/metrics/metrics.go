package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shop_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	OrderStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_order_status_total",
			Help: "Total number of order status transitions applied",
		},
		[]string{"status"},
	)

	ReservationRejectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shop_reservation_rejects_total",
			Help: "Total number of reservations rejected for insufficient stock",
		},
	)

	LowStockGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shop_low_stock_available",
			Help: "Available units for product sizes that dropped below the low-stock threshold",
		},
		[]string{"product_id", "size"},
	)
)
