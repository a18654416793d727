// Package metrics defines the Prometheus counters for the background
// workers, exposed on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CirclesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "circle_sweep_completed_total", Help: "Circles transitioned to completed by the sweep job"},
	)
	SweepFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "circle_sweep_failed_total", Help: "Per-circle sweep updates that failed"},
	)
	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "circle_notify_sent_total", Help: "Notification emails delivered"},
	)
	NotificationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "circle_notify_failed_total", Help: "Notification delivery attempts that failed"},
	)
	NotificationsDead = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "circle_notify_dead_total", Help: "Notifications dropped after exhausting attempts"},
	)
)

// Register installs all counters on the default registry.
func Register() {
	prometheus.MustRegister(CirclesSwept, SweepFailures, NotificationsSent, NotificationsFailed, NotificationsDead)
}
