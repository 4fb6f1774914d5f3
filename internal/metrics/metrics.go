// Package metrics exposes scan pipeline counters on a dedicated Prometheus
// registry so the /metrics endpoint never carries unrelated collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phishguard/phishguard/internal/model"
)

// Metrics bundles the pipeline's collectors.
type Metrics struct {
	registry *prometheus.Registry

	scansTotal     *prometheus.CounterVec
	cacheHitsTotal prometheus.Counter
	dedupedTotal   prometheus.Counter
	degradedTotal  prometheus.Counter
	probeOutcomes  *prometheus.CounterVec
	scanSeconds    prometheus.Histogram
}

// New creates the collector set on its own registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishguard_scans_total",
				Help: "Total number of completed scans by verdict",
			},
			[]string{"result"},
		),
		cacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "phishguard_cache_hits_total",
				Help: "Total number of scans served from the verdict cache",
			},
		),
		dedupedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "phishguard_deduped_scans_total",
				Help: "Total number of requests coalesced onto an in-flight scan",
			},
		),
		degradedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "phishguard_degraded_scans_total",
				Help: "Total number of verdicts produced with zero resolved probes",
			},
		),
		probeOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishguard_probe_outcomes_total",
				Help: "Probe resolutions by kind and terminal status",
			},
			[]string{"kind", "status"},
		),
		scanSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "phishguard_scan_duration_seconds",
				Help:    "End-to-end scan duration distribution in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 30.0},
			},
		),
	}

	collectors := []prometheus.Collector{
		m.scansTotal,
		m.cacheHitsTotal,
		m.dedupedTotal,
		m.degradedTotal,
		m.probeOutcomes,
		m.scanSeconds,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveScan records one completed scan and its probe outcomes.
func (m *Metrics) ObserveScan(v *model.Verdict, outcome *model.Outcome) {
	m.scansTotal.WithLabelValues(v.Result).Inc()
	m.scanSeconds.Observe(float64(v.DurationMS) / 1000)
	if v.Degraded {
		m.degradedTotal.Inc()
	}
	for kind := range outcome.Slots {
		m.probeOutcomes.WithLabelValues(
			model.ProbeKind(kind).String(),
			string(outcome.Slots[kind].Status),
		).Inc()
	}
}

// ObserveCacheHit records one scan served from cache.
func (m *Metrics) ObserveCacheHit() {
	m.cacheHitsTotal.Inc()
}

// ObserveDedup records one request that joined an in-flight scan.
func (m *Metrics) ObserveDedup() {
	m.dedupedTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
