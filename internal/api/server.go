// Package api wires the console's HTTP routes onto the domain packages.
package api

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/satconsole/internal/analytics"
	"github.com/star/satconsole/internal/auth"
	"github.com/star/satconsole/internal/catalog"
	"github.com/star/satconsole/internal/fleet"
	"github.com/star/satconsole/internal/health"
	"github.com/star/satconsole/internal/httputil"
	"github.com/star/satconsole/internal/metrics"
	"github.com/star/satconsole/internal/pipeline"
	"github.com/star/satconsole/internal/stream"
	"github.com/star/satconsole/internal/upload"
)

// Config holds HTTP server settings.
type Config struct {
	Addr           string
	Auth           auth.Config
	TrustProxy     bool
	MaxUploadBytes int64 // Upper bound on a multipart upload body (default: 8 GiB).
}

const (
	defaultMaxUploadBytes = 8 << 30
	maxJSONBodyBytes      = 1 << 20
)

// Deps are the domain services the routes serve.
type Deps struct {
	Queue     *upload.Queue
	Datasets  []catalog.Record
	Fleet     *fleet.Service
	Pipelines *pipeline.Registry
	Analytics *analytics.Service // nil serves no analytics route
	Stream    *stream.Handler
	Web       fs.FS // nil serves no dashboard
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	config     Config
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	s := &Server{config: cfg, deps: deps, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(s.ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/uploads", s.listUploads)
	mux.HandleFunc("POST /api/v1/uploads", s.createUploads)
	mux.HandleFunc("GET /api/v1/uploads/history", s.uploadHistory)
	mux.HandleFunc("GET /api/v1/uploads/{id}", s.getUpload)
	mux.HandleFunc("DELETE /api/v1/uploads/{id}", s.deleteUpload)
	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/uploads", deps.Stream.HandleUploads)
	}

	mux.HandleFunc("GET /api/v1/datasets", s.listDatasets)
	mux.HandleFunc("GET /api/v1/datasets/facets", s.datasetFacets)
	mux.HandleFunc("GET /api/v1/datasets/summary", s.datasetSummary)

	mux.HandleFunc("GET /api/v1/fleet", s.listFleet)
	mux.HandleFunc("GET /api/v1/fleet/{id}", s.getSatellite)
	mux.HandleFunc("GET /api/v1/fleet/{id}/track", s.satelliteTrack)
	mux.HandleFunc("GET /api/v1/fleet/{id}/passes", s.satellitePasses)

	mux.HandleFunc("GET /api/v1/pipelines", s.listPipelines)
	mux.HandleFunc("GET /api/v1/pipelines/{id}", s.getPipeline)
	mux.HandleFunc("GET /api/v1/jobs", s.listJobs)

	if deps.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", s.getAnalytics)
	}

	if deps.Web != nil {
		mux.Handle("GET /", http.FileServerFS(deps.Web))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Minute, // multipart uploads stream whole files
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) ready() error {
	if s.deps.Queue == nil {
		return errors.New("upload queue not configured")
	}
	if s.deps.Queue.Closed() {
		return upload.ErrQueueClosed
	}
	return nil
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush passes through so the SSE stream keeps working behind the logger.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
