package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eixo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eixo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Task Metrics
	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eixo_task_completions_total",
			Help: "Total number of task completions",
		},
		[]string{"kind", "late"},
	)

	CompletionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eixo_task_completion_failures_total",
			Help: "Rejected or failed task completions by error kind",
		},
		[]string{"kind"}, // not_found, validation, conflict, internal
	)

	// Ledger Metrics
	PointsAwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eixo_points_awarded_total",
			Help: "Total points credited for completions",
		},
	)

	PointsSpent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eixo_points_spent_total",
			Help: "Total points debited by reward redemptions",
		},
	)

	Redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eixo_reward_redemptions_total",
			Help: "Reward redemption attempts",
		},
		[]string{"status"}, // success, insufficient_funds, rejected
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eixo_notifications_sent_total",
			Help: "Notifications delivered to publishers",
		},
		[]string{"type"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eixo_notifications_failed_total",
			Help: "Notifications that failed to publish",
		},
		[]string{"type"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eixo_websocket_clients",
			Help: "Currently connected WebSocket clients",
		},
	)
)
