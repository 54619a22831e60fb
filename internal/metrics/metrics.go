// Package metrics exposes Prometheus instruments for editor operations,
// collection saves and archive runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "area710"

// Metrics groups the instruments. Use New and register once per process.
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	saveDuration *prometheus.HistogramVec
	records      *prometheus.GaugeVec
	archives     *prometheus.CounterVec
}

// New creates the instruments on a fresh registry that also carries the Go
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Editor operations by name and result.",
		}, []string{"operation", "result"}),
		saveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_save_duration_seconds",
			Help:      "Time spent writing a collection file including its backup.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"collection"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records in each collection after the last save.",
		}, []string{"collection"}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_total",
			Help:      "Archive exports by sink and result.",
		}, []string{"sink", "result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations, m.saveDuration, m.records, m.archives,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Operation counts one operation outcome, e.g. "ok" or "not_found". A nil
// receiver is a no-op so callers may run without metrics.
func (m *Metrics) Operation(name, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}

// Saved records a collection save.
func (m *Metrics) Saved(collection string, took time.Duration, count int) {
	if m == nil {
		return
	}
	m.saveDuration.WithLabelValues(collection).Observe(took.Seconds())
	m.records.WithLabelValues(collection).Set(float64(count))
}

// Archived counts one archive delivery.
func (m *Metrics) Archived(sink string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.archives.WithLabelValues(sink, outcome).Inc()
}
