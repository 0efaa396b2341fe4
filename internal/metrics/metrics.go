// Package metrics holds the Prometheus collectors for the ledger, HTTP API,
// live connections and backups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointjar_ledger_operations_total",
			Help: "Ledger operations by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: credit, debit, redemption
	)

	LedgerPointsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointjar_ledger_points_total",
			Help: "Absolute number of points moved by successful ledger operations",
		},
		[]string{"kind"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointjar_http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pointjar_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pointjar_rate_limit_rejections_total",
			Help: "Requests rejected by the login rate limiter",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointjar_websocket_connections",
			Help: "Currently open WebSocket connections",
		},
	)

	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointjar_push_deliveries_total",
			Help: "Web push deliveries by outcome",
		},
		[]string{"outcome"}, // sent, expired, failed
	)

	BackupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointjar_backup_runs_total",
			Help: "Backup runs by outcome",
		},
		[]string{"outcome"},
	)

	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointjar_backup_last_success_timestamp_seconds",
			Help: "Unix time of the last successful backup",
		},
	)
)

// RecordLedgerOperation counts one ledger operation. Rejected operations
// (insufficient balance, unknown user) are counted with their outcome label.
func RecordLedgerOperation(kind, outcome string, points int) {
	LedgerOperations.WithLabelValues(kind, outcome).Inc()
	if outcome == "ok" {
		if points < 0 {
			points = -points
		}
		LedgerPointsMoved.WithLabelValues(kind).Add(float64(points))
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordBackup(err error) {
	if err != nil {
		BackupRuns.WithLabelValues("failed").Inc()
		return
	}
	BackupRuns.WithLabelValues("completed").Inc()
	BackupLastSuccess.Set(float64(time.Now().Unix()))
}
