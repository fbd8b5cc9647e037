package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/pngframe/pkg/pngfile"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// registeredTypes bounds the label set of pngframe_chunks_parsed_total.
// Anything else is counted as "other".
var registeredTypes = map[string]bool{
	"IHDR": true, "PLTE": true, "IDAT": true, "IEND": true,
	"tRNS": true, "cHRM": true, "gAMA": true, "iCCP": true, "sBIT": true,
	"sRGB": true, "cICP": true, "mDCv": true, "cLLi": true,
	"tEXt": true, "zTXt": true, "iTXt": true,
	"bKGD": true, "hIST": true, "pHYs": true, "sPLT": true, "eXIf": true,
	"tIME": true, "acTL": true, "fcTL": true, "fdAT": true,
}

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Framing metrics
	chunksParsedTotal *prometheus.CounterVec
	frameErrorsTotal  *prometheus.CounterVec

	// Archive metrics
	archiveOperationsTotal *prometheus.CounterVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pngframe_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pngframe_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pngframe_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		chunksParsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pngframe_chunks_parsed_total",
				Help: "Total number of chunks decoded from uploaded streams",
			},
			[]string{"type"},
		),

		frameErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pngframe_frame_errors_total",
				Help: "Total number of rejected streams by error kind",
			},
			[]string{"kind"},
		),

		archiveOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pngframe_archive_operations_total",
				Help: "Total number of chunk archive operations",
			},
			[]string{"operation", "status"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pngframe_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordChunkParsed counts one decoded chunk
func (m *Metrics) RecordChunkParsed(typ string) {
	if !registeredTypes[typ] {
		typ = "other"
	}
	m.chunksParsedTotal.WithLabelValues(typ).Inc()
}

// RecordSummary counts every chunk of a scanned stream
func (m *Metrics) RecordSummary(summary *pngfile.Summary) {
	if summary == nil {
		return
	}
	for _, c := range summary.Chunks {
		m.RecordChunkParsed(c.Type)
	}
}

// RecordFrameError counts a rejected stream
func (m *Metrics) RecordFrameError(err error) {
	if err == nil {
		return
	}
	m.frameErrorsTotal.WithLabelValues(pngfile.Kind(err)).Inc()
}

// RecordArchiveOperation records a chunk archive operation
func (m *Metrics) RecordArchiveOperation(operation string, success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.archiveOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)
			m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
