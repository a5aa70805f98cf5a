package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satconsole_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "satconsole_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	uploadsEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satconsole_uploads_enqueued_total",
		Help: "Files accepted into the upload queue.",
	})

	uploadsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satconsole_uploads_finished_total",
			Help: "Simulated uploads that reached a terminal status.",
		},
		[]string{"status"},
	)

	uploadsRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satconsole_uploads_removed_total",
		Help: "Uploads removed from the queue.",
	})

	uploadSimulationsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satconsole_upload_simulations_active",
		Help: "Upload simulations with a running ticker.",
	})

	uploadTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satconsole_upload_ticks_total",
		Help: "Progress ticks applied to queued uploads.",
	})

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satconsole_stream_connections_total",
			Help: "SSE connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satconsole_streams_active",
		Help: "Currently open SSE streams.",
	})

	streamMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satconsole_stream_messages_total",
		Help: "SSE data messages sent.",
	})

	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satconsole_stream_bytes_total",
		Help: "Bytes written to SSE streams.",
	})

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satconsole_stream_errors_total",
			Help: "SSE errors by kind.",
		},
		[]string{"kind"},
	)

	propagationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satconsole_propagation_total",
			Help: "SGP4 propagations by outcome.",
		},
		[]string{"outcome"},
	)

	propagationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "satconsole_propagation_duration_seconds",
		Help:    "Duration of a fleet propagation batch.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		uploadsEnqueuedTotal,
		uploadsFinishedTotal,
		uploadsRemovedTotal,
		uploadSimulationsActive,
		uploadTicksTotal,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
		propagationTotal,
		propagationDurationSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Upload queue.

func AddUploadsEnqueued(n int) { uploadsEnqueuedTotal.Add(float64(n)) }
func IncUploadsFinished(status string) { uploadsFinishedTotal.WithLabelValues(status).Inc() }
func IncUploadsRemoved() { uploadsRemovedTotal.Inc() }
func IncUploadSimulations() { uploadSimulationsActive.Inc() }
func DecUploadSimulations() { uploadSimulationsActive.Dec() }
func IncUploadTicks() { uploadTicksTotal.Inc() }

// Streaming.

func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }
func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }
func IncStreamMessages() { streamMessagesTotal.Inc() }
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(kind string) { streamErrorsTotal.WithLabelValues(kind).Inc() }

// RecordPropagation records one fleet propagation batch.
func RecordPropagation(d time.Duration, success, failed int) {
	propagationDurationSeconds.Observe(d.Seconds())
	propagationTotal.WithLabelValues("success").Add(float64(success))
	propagationTotal.WithLabelValues("error").Add(float64(failed))
}

// exactRoutes are served verbatim as the path label.
var exactRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/app.js":                  true,
	"/styles.css":              true,
	"/index.html":              true,
	"/api/v1/uploads":          true,
	"/api/v1/uploads/history":  true,
	"/api/v1/stream/uploads":   true,
	"/api/v1/datasets":         true,
	"/api/v1/datasets/facets":  true,
	"/api/v1/datasets/summary": true,
	"/api/v1/fleet":            true,
	"/api/v1/pipelines":        true,
	"/api/v1/jobs":             true,
	"/api/v1/analytics":        true,
}

// paramRoutes collapse an identifier segment into one label.
var paramRoutes = []struct {
	prefix string
	suffix string
	label  string
}{
	{"/api/v1/uploads/", "", "/api/v1/uploads/{id}"},
	{"/api/v1/fleet/", "/track", "/api/v1/fleet/{id}/track"},
	{"/api/v1/fleet/", "/passes", "/api/v1/fleet/{id}/passes"},
	{"/api/v1/fleet/", "", "/api/v1/fleet/{id}"},
	{"/api/v1/pipelines/", "", "/api/v1/pipelines/{id}"},
}

// normalizeRoute maps a request path onto a bounded set of labels so that
// random IDs and scanner traffic cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}
	for _, r := range paramRoutes {
		rest, ok := strings.CutPrefix(path, r.prefix)
		if !ok {
			continue
		}
		if r.suffix != "" {
			if rest, ok = strings.CutSuffix(rest, r.suffix); !ok {
				continue
			}
		}
		if rest != "" && !strings.Contains(rest, "/") {
			return r.label
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through so SSE handlers still see an http.Flusher.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
