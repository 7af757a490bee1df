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

const namespace = "nebras"

// HTTPServerMetrics is the API registry. It also observes retrieval
// outcomes for the query use case.
type HTTPServerMetrics struct {
	breakerStates

	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	ragRequestsTotal     *prometheus.CounterVec
	ragRetrievalHitTotal *prometheus.CounterVec
	ragNoMatchTotal      *prometheus.CounterVec
	ragRetrievedChunks   *prometheus.HistogramVec
	ragThreshold         *prometheus.HistogramVec
	ragDuration          *prometheus.HistogramVec
	citationChecksTotal  *prometheus.CounterVec
	generationFailures   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by rate limiting or backpressure.",
		},
		[]string{"service", "reason"},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful RAG requests.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total retrievals with at least one accepted chunk.",
		},
		[]string{"service"},
	)
	ragNoMatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "no_sufficient_matches_total",
			Help:      "Total retrievals where no threshold accepted any chunk.",
		},
		[]string{"service"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of accepted chunks per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	ragThreshold := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "accepted_threshold",
			Help:      "Similarity threshold that produced the retrieved chunks.",
			Buckets:   []float64{0.3, 0.4, 0.5, 0.55, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9},
		},
		[]string{"service"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "RAG execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	citationChecksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "citation_checks_total",
			Help:      "Quoted citations checked against their source chunk.",
		},
		[]string{"service", "outcome"},
	)
	generationFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generation_failures_total",
			Help:      "Answers returned without generated text.",
		},
		[]string{"service"},
	)
	breakers := newBreakerStates(service, "http")

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rejectedTotal,
		ragRequestsTotal,
		ragRetrievalHitTotal,
		ragNoMatchTotal,
		ragRetrievedChunks,
		ragThreshold,
		ragDuration,
		citationChecksTotal,
		generationFailures,
		breakers.gauge,
	)

	return &HTTPServerMetrics{
		breakerStates:        breakers,
		registry:             registry,
		service:              service,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		rejectedTotal:        rejectedTotal,
		ragRequestsTotal:     ragRequestsTotal,
		ragRetrievalHitTotal: ragRetrievalHitTotal,
		ragNoMatchTotal:      ragNoMatchTotal,
		ragRetrievedChunks:   ragRetrievedChunks,
		ragThreshold:         ragThreshold,
		ragDuration:          ragDuration,
		citationChecksTotal:  citationChecksTotal,
		generationFailures:   generationFailures,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

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

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/conversations/"):
		return "/v1/conversations/{conversation_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) RecordRAGRequest(endpoint string, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(m.service, endpoint).Inc()
	m.ragDuration.WithLabelValues(m.service, endpoint).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveRetrieval(threshold float64, matches int, noSufficientMatches bool) {
	m.ragRetrievedChunks.WithLabelValues(m.service).Observe(float64(matches))
	if noSufficientMatches {
		m.ragNoMatchTotal.WithLabelValues(m.service).Inc()
		return
	}
	m.ragRetrievalHitTotal.WithLabelValues(m.service).Inc()
	m.ragThreshold.WithLabelValues(m.service).Observe(threshold)
}

func (m *HTTPServerMetrics) ObserveCitation(verified bool) {
	outcome := "unverified"
	if verified {
		outcome = "verified"
	}
	m.citationChecksTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) ObserveGenerationFailure() {
	m.generationFailures.WithLabelValues(m.service).Inc()
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
