package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fifty_drive", Name: "orders_created_total", Help: "Orders created"})
	OrdersAccepted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fifty_drive", Name: "orders_accepted_total", Help: "Orders accepted by a driver"})
	OrdersCompleted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fifty_drive", Name: "orders_completed_total", Help: "Orders completed"})
	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fifty_drive", Name: "orders_cancelled_total", Help: "Orders cancelled"})
	AcceptRacesLost = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fifty_drive", Name: "accept_races_lost_total", Help: "Accept calls that lost the race for a pending order"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fifty_drive", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fifty_drive",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
