// Package metrics instruments the collectors with Prometheus counters and
// exposes them over the standard text endpoint. All recording methods are
// safe to call on a nil *Metrics, so collectors never have to branch on
// whether metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instrument set shared by all collectors. Per-collector
// series are separated by the "collector" label (conntrack, device, leases).
type Metrics struct {
	registry *prometheus.Registry

	scans        *prometheus.CounterVec
	scanErrors   *prometheus.CounterVec
	parseErrors  *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	localHosts   prometheus.Gauge
	trackedPairs prometheus.Gauge
	leases       prometheus.Gauge
}

// New constructs a Metrics set registered on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nftracker_scans_total",
			Help: "Completed collector scans.",
		}, []string{"collector"}),
		scanErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nftracker_scan_errors_total",
			Help: "Scans abandoned due to a file open or I/O error.",
		}, []string{"collector"}),
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nftracker_parse_errors_total",
			Help: "Input lines skipped due to a parse error.",
		}, []string{"collector"}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nftracker_scan_duration_seconds",
			Help:    "Wall-clock duration of a single collector scan.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"collector"}),
		localHosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nftracker_local_hosts",
			Help: "Local hosts currently present in the connection table.",
		}),
		trackedPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nftracker_tracked_pairs",
			Help: "Local/remote pairs currently present in the connection table.",
		}),
		leases: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nftracker_leases",
			Help: "Leases present in the last successful lease file scan.",
		}),
	}

	registry.MustRegister(
		m.scans,
		m.scanErrors,
		m.parseErrors,
		m.scanDuration,
		m.localHosts,
		m.trackedPairs,
		m.leases,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ScanCompleted records one successful scan and its duration.
func (m *Metrics) ScanCompleted(collector string, seconds float64) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(collector).Inc()
	m.scanDuration.WithLabelValues(collector).Observe(seconds)
}

// ScanFailed records a scan abandoned before completion.
func (m *Metrics) ScanFailed(collector string) {
	if m == nil {
		return
	}
	m.scanErrors.WithLabelValues(collector).Inc()
}

// ParseError records one skipped input line.
func (m *Metrics) ParseError(collector string) {
	if m == nil {
		return
	}
	m.parseErrors.WithLabelValues(collector).Inc()
}

// SetTableSize records the connection table's current shape.
func (m *Metrics) SetTableSize(locals, pairs int) {
	if m == nil {
		return
	}
	m.localHosts.Set(float64(locals))
	m.trackedPairs.Set(float64(pairs))
}

// SetLeaseCount records the size of the latest lease snapshot.
func (m *Metrics) SetLeaseCount(n int) {
	if m == nil {
		return
	}
	m.leases.Set(float64(n))
}
