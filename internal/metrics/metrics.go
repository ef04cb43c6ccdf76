// Package metrics holds the Prometheus collectors of a snapmerge run.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snapmerge"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	poolInflight  *prometheus.GaugeVec
	mergeRows     *prometheus.GaugeVec
	storeWrites   *prometheus.CounterVec
	enrichTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Fetches by domain and outcome.",
		}, []string{"domain", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Fetch latency by domain.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"domain"}),
		poolInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_inflight",
			Help:      "Tasks currently running per pool.",
		}, []string{"pool"}),
		mergeRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "merge_rows",
			Help:      "Row counts of the last merge by dataset and stage.",
		}, []string{"dataset", "stage"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Dataset writes by outcome.",
		}, []string{"status"}),
		enrichTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_total",
			Help:      "Enriched rows by outcome.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.poolInflight,
		m.mergeRows,
		m.storeWrites,
		m.enrichTotal,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch records one fetch outcome and its latency.
func (m *Metrics) ObserveFetch(domain string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(domain, status(err)).Inc()
	m.fetchDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
}

// PoolStarted and PoolFinished track in-flight tasks of one pool.
func (m *Metrics) PoolStarted(pool string) {
	if m == nil {
		return
	}
	m.poolInflight.WithLabelValues(pool).Inc()
}

func (m *Metrics) PoolFinished(pool string) {
	if m == nil {
		return
	}
	m.poolInflight.WithLabelValues(pool).Dec()
}

// SetMergeRows records the row count of a dataset at one merge stage
// (next, base, output).
func (m *Metrics) SetMergeRows(dataset, stage string, rows int) {
	if m == nil {
		return
	}
	m.mergeRows.WithLabelValues(dataset, stage).Set(float64(rows))
}

func (m *Metrics) ObserveStoreWrite(err error) {
	if m == nil {
		return
	}
	m.storeWrites.WithLabelValues(status(err)).Inc()
}

// AddEnrich counts enriched rows under a status such as parsed or failed.
func (m *Metrics) AddEnrich(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.enrichTotal.WithLabelValues(status).Add(float64(n))
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
