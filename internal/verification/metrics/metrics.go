// Package metrics holds the verification aggregator's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecomputesTotal *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
}

// New creates and registers the aggregator metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		RecomputesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetdocs_verification_recomputes_total",
			Help: "Aggregate recomputations, by resulting completeness",
		}, []string{"result"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetdocs_verification_cache_hits_total",
			Help: "Verification status reads served from the cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetdocs_verification_cache_misses_total",
			Help: "Verification status reads computed from the stores",
		}),
	}
}

func (m *Metrics) Recomputed(complete bool) {
	if m == nil {
		return
	}
	result := "incomplete"
	if complete {
		result = "complete"
	}
	m.RecomputesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}
