package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// retrievedChunksBuckets covers the realistic per-query source counts for
// the configured top-k of 10 with headroom for probe-expanded queries.
var retrievedChunksBuckets = []float64{0, 1, 2, 3, 5, 8, 13, 21}

// HTTPServerMetrics instruments the API process, covering the HTTP surface
// and the RAG pipeline behind the query endpoints. The service name is
// fixed at construction and stamped on every series.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragRequestsTotal     *prometheus.CounterVec
	ragRetrievalHitTotal *prometheus.CounterVec
	ragNoContextTotal    *prometheus.CounterVec
	ragRetrievedChunks   *prometheus.HistogramVec
	ragDuration          *prometheus.HistogramVec

	ingestDocumentsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	stamp := prometheus.Labels{"service": service}

	m := &HTTPServerMetrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ragchat",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: stamp,
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "ragchat",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: stamp,
		}, []string{"method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ragchat",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: stamp,
		}),
		ragRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ragchat",
			Subsystem:   "rag",
			Name:        "requests_total",
			Help:        "Total answered RAG requests.",
			ConstLabels: stamp,
		}, []string{"endpoint"}),
		ragRetrievalHitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ragchat",
			Subsystem:   "rag",
			Name:        "retrieval_hit_total",
			Help:        "Total RAG requests with at least one retrieved source.",
			ConstLabels: stamp,
		}, []string{"endpoint"}),
		ragNoContextTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ragchat",
			Subsystem:   "rag",
			Name:        "no_context_total",
			Help:        "Total RAG requests without retrieved sources.",
			ConstLabels: stamp,
		}, []string{"endpoint"}),
		ragRetrievedChunks: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "ragchat",
			Subsystem:   "rag",
			Name:        "retrieved_chunks",
			Help:        "Distribution of retrieved chunks per answered RAG request.",
			Buckets:     retrievedChunksBuckets,
			ConstLabels: stamp,
		}, []string{"endpoint"}),
		ragDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "ragchat",
			Subsystem:   "rag",
			Name:        "duration_seconds",
			Help:        "RAG execution duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: stamp,
		}, []string{"endpoint"}),
		ingestDocumentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ragchat",
			Subsystem:   "ingest",
			Name:        "documents_total",
			Help:        "Total ingest submissions by source kind and result.",
			ConstLabels: stamp,
		}, []string{"kind", "result"}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.ragRequestsTotal,
		m.ragRetrievalHitTotal,
		m.ragNoContextTotal,
		m.ragRetrievedChunks,
		m.ragDuration,
		m.ingestDocumentsTotal,
	)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times every request passing through it. Paths with
// identifiers collapse to a template so the label set stays bounded.
func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordRAGObservation accounts one answered query: how many sources fed
// the answer and how long retrieval plus generation took.
func (m *HTTPServerMetrics) RecordRAGObservation(endpoint string, sourceCount int, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(endpoint).Inc()
	m.ragRetrievedChunks.WithLabelValues(endpoint).Observe(float64(sourceCount))
	m.ragDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	if sourceCount > 0 {
		m.ragRetrievalHitTotal.WithLabelValues(endpoint).Inc()
		return
	}
	m.ragNoContextTotal.WithLabelValues(endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordIngest(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	m.ingestDocumentsTotal.WithLabelValues(kind, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
