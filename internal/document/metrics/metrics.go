// Package metrics holds the document registry's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts registry operations. Services tolerate a nil *Metrics so
// unit tests skip registration entirely.
type Metrics struct {
	UploadGrantsIssued *prometheus.CounterVec
	ReadGrantsIssued   prometheus.Counter
	ReviewsTotal       *prometheus.CounterVec
}

// New creates and registers the registry metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		UploadGrantsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetdocs_upload_grants_issued_total",
			Help: "Upload grants issued, by document type",
		}, []string{"document_type"}),
		ReadGrantsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetdocs_read_grants_issued_total",
			Help: "Read grants issued for stored documents",
		}),
		ReviewsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetdocs_document_reviews_total",
			Help: "Review decisions applied, by resulting status",
		}, []string{"status"}),
	}
}

func (m *Metrics) GrantIssued(documentType string) {
	if m == nil {
		return
	}
	m.UploadGrantsIssued.WithLabelValues(documentType).Inc()
}

func (m *Metrics) ReadGrantIssued() {
	if m == nil {
		return
	}
	m.ReadGrantsIssued.Inc()
}

func (m *Metrics) ReviewApplied(status string) {
	if m == nil {
		return
	}
	m.ReviewsTotal.WithLabelValues(status).Inc()
}
