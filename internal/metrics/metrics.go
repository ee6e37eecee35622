package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// Metrics holds the process-wide counters. It is safe for concurrent use by all workers.
type Metrics struct {
	objectsCounted *prometheus.CounterVec
	recordsEmitted *prometheus.CounterVec
	workerFailures *prometheus.CounterVec
	workersRunning prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		objectsCounted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roi_objects_counted_total",
			Help: "Unique objects counted inside a region of interest",
		}, []string{"camera", "class"}),
		recordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roi_records_emitted_total",
			Help: "Aggregation records emitted, including zero-delta heartbeats",
		}, []string{"camera"}),
		workerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roi_worker_failures_total",
			Help: "Camera workers that ended with an error, panic or non-zero exit",
		}, []string{"camera"}),
		workersRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roi_workers_running",
			Help: "Camera workers currently running",
		}),
	}

	m.registry.MustRegister(m.objectsCounted, m.recordsEmitted, m.workerFailures, m.workersRunning)
	return m
}

// Publish accounts for one tick of records.
func (m *Metrics) Publish(records []model.AggregationRecord) {
	for _, rec := range records {
		m.recordsEmitted.WithLabelValues(rec.Camera).Inc()
		if rec.Delta > 0 {
			m.objectsCounted.WithLabelValues(rec.Camera, rec.ClassName).Add(float64(rec.Delta))
		}
	}
}

func (m *Metrics) WorkerStarted() { m.workersRunning.Inc() }

func (m *Metrics) WorkerStopped() { m.workersRunning.Dec() }

func (m *Metrics) WorkerFailed(camera string) {
	m.workerFailures.WithLabelValues(camera).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
