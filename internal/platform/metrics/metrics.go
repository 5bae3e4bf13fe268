package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the transport-level Prometheus metrics. Domain modules carry
// their own metrics packages.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers the transport metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleetdocs_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path", "status"}),
	}
}

// ObserveRequest records one request observation.
// Call with time.Now() captured at the start of the request.
func (m *Metrics) ObserveRequest(method, path string, status int, start time.Time) {
	m.RequestDuration.
		WithLabelValues(method, path, strconv.Itoa(status)).
		Observe(time.Since(start).Seconds())
}
