package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// queueLagBuckets spans sub-second pickup through a ten-minute backlog.
var queueLagBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}

// WorkerMetrics instruments the ingest worker. The service name is fixed at
// construction and stamped on every series, so recording sites report only
// what happened to the job.
type WorkerMetrics struct {
	registry *prometheus.Registry

	jobsTotal    *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobsInFlight prometheus.Gauge
	queueLag     prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	stamp := prometheus.Labels{"service": service}

	m := &WorkerMetrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ragchat",
			Subsystem:   "worker",
			Name:        "document_process_total",
			Help:        "Processed ingest jobs by result.",
			ConstLabels: stamp,
		}, []string{"result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "ragchat",
			Subsystem:   "worker",
			Name:        "document_process_duration_seconds",
			Help:        "Ingest job duration in seconds by result.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: stamp,
		}, []string{"result"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ragchat",
			Subsystem:   "worker",
			Name:        "document_process_in_flight",
			Help:        "Ingest jobs currently being processed.",
			ConstLabels: stamp,
		}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "ragchat",
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between job enqueue and processing start.",
			Buckets:     queueLagBuckets,
			ConstLabels: stamp,
		}),
	}

	registry.MustRegister(m.jobsTotal, m.jobDuration, m.jobsInFlight, m.queueLag)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartJob records pickup of a queued job and returns a done callback that
// observes the outcome. lag is how long the job waited in the queue;
// negative lag from clock skew is not observed.
func (m *WorkerMetrics) StartJob(lag time.Duration) func(err error) {
	if lag >= 0 {
		m.queueLag.Observe(lag.Seconds())
	}
	m.jobsInFlight.Inc()

	start := time.Now()
	return func(err error) {
		m.jobsInFlight.Dec()

		result := "success"
		if err != nil {
			result = "error"
		}
		m.jobsTotal.WithLabelValues(result).Inc()
		m.jobDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}
}
