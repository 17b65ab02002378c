package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nurpe/amc-schedule/internal/batch"
)

const namespace = "amc"

type Metrics struct {
	registry       *prometheus.Registry
	products       *prometheus.CounterVec
	batches        *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	exportsCreated *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		products: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_total",
			Help:      "Products computed, by schedule kind and outcome.",
		}, []string{"kind", "status"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches finished, by schedule kind and outcome.",
		}, []string{"kind", "status"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of finished batches.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by layer and result.",
		}, []string{"layer", "result"}),
		exportsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Export files rendered, by format.",
		}, []string{"format"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.products,
		m.batches,
		m.batchDuration,
		m.cacheLookups,
		m.exportsCreated,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(layer, result).Inc()
}

func (m *Metrics) ExportCreated(format string) {
	m.exportsCreated.WithLabelValues(format).Inc()
}

// Batch returns a recorder labelled with the schedule kind.
func (m *Metrics) Batch(kind string) batch.Recorder {
	return kindRecorder{m: m, kind: kind}
}

type kindRecorder struct {
	m    *Metrics
	kind string
}

func (r kindRecorder) ProductDone(failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	r.m.products.WithLabelValues(r.kind, status).Inc()
}

func (r kindRecorder) BatchDone(status string, elapsed time.Duration) {
	r.m.batches.WithLabelValues(r.kind, status).Inc()
	r.m.batchDuration.WithLabelValues(r.kind).Observe(elapsed.Seconds())
}
