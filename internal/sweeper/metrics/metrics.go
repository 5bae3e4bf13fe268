// Package metrics holds the expiry sweeper's Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DocumentsExpired  prometheus.Counter
	NotificationsSent prometheus.Counter
	PassErrors        *prometheus.CounterVec
	PassDuration      *prometheus.HistogramVec
}

// New creates and registers the sweeper metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		DocumentsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetdocs_sweep_documents_expired_total",
			Help: "Approved documents demoted to expired by the sweeper",
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetdocs_sweep_notifications_sent_total",
			Help: "Near-expiry notifications delivered and stamped",
		}),
		PassErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetdocs_sweep_errors_total",
			Help: "Per-document failures during a sweep pass",
		}, []string{"pass"}),
		PassDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleetdocs_sweep_pass_duration_seconds",
			Help:    "Duration of one sweep pass",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"pass"}),
	}
}

func (m *Metrics) Expired() {
	if m == nil {
		return
	}
	m.DocumentsExpired.Inc()
}

func (m *Metrics) Notified() {
	if m == nil {
		return
	}
	m.NotificationsSent.Inc()
}

func (m *Metrics) PassError(pass string) {
	if m == nil {
		return
	}
	m.PassErrors.WithLabelValues(pass).Inc()
}

func (m *Metrics) ObservePass(pass string, start time.Time) {
	if m == nil {
		return
	}
	m.PassDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds())
}
