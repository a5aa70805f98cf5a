// Package stream implements Server-Sent Events (SSE) streaming of the upload
// queue. Clients connect via GET /api/v1/stream/uploads and receive a full
// queue snapshot whenever the queue changes.
//
// SSE message format:
//
//	data: {"type":"queue_snapshot","t":"2026-02-06T04:00:00.5Z","uploads":[...],"counts":{...}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","interval_ms":500,"max_increment":15,"failure_rate":0,"server_time":"..."}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
// Reconnecting clients receive a fresh metadata message and snapshot on each
// connection, so no replay is needed.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/star/satconsole/internal/httputil"
	"github.com/star/satconsole/internal/metrics"
	"github.com/star/satconsole/internal/upload"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	BandwidthLimit     int           // Bytes per second per stream, 0 disables (default: 1048576).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Use X-Forwarded-For / X-Real-IP for the client IP.
}

// DefaultConfig returns the streaming defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		BandwidthLimit:     1048576,
		KeepaliveInterval:  30 * time.Second,
	}
}

// QueueSource is the part of the upload queue the stream reads.
type QueueSource interface {
	List() []upload.Task
	Subscribe() (<-chan struct{}, func())
	Config() upload.Config
}

// Handler manages SSE streaming connections.
type Handler struct {
	queue   QueueSource
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(queue QueueSource, config Config, logger *slog.Logger) *Handler {
	def := DefaultConfig()
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = def.MaxConcurrentPerIP
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = def.KeepaliveInterval
	}
	return &Handler{
		queue:   queue,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandleUploads serves the SSE upload queue stream.
// GET /api/v1/stream/uploads
func (h *Handler) HandleUploads(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"component", "stream",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"component", "stream",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
	)

	var c *client
	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		attrs := []any{
			"component", "stream",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		}
		if c != nil {
			attrs = append(attrs, "messages_sent", c.messagesSent, "bytes_sent", c.bytesSent)
		}
		h.logger.Info("stream disconnected", attrs...)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	// Subscribe before the first snapshot so no change between the two is lost.
	changes, unsubscribe := h.queue.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "component", "stream", "error", err)
	}

	ctx := r.Context()
	c = &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		limiter: newWriteLimiter(h.config.BandwidthLimit),
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	retryMs := 3000 + rand.IntN(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	cfg := h.queue.Config()
	meta := metadataMessage{
		Type:         "metadata",
		IntervalMs:   cfg.Interval.Milliseconds(),
		MaxIncrement: cfg.MaxIncrement,
		FailureRate:  cfg.FailureRate,
		ServerTime:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.sendJSON(ctx, meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "component", "stream", "remote_ip", ip, "error", err)
		return
	}
	if err := c.sendJSON(ctx, buildSnapshot(h.queue.List(), time.Now())); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "component", "stream", "remote_ip", ip, "error", err)
		return
	}

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-changes:
			if err := c.sendJSON(ctx, buildSnapshot(h.queue.List(), time.Now())); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(ctx); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// buildSnapshot formats the queue into the SSE snapshot payload.
func buildSnapshot(tasks []upload.Task, now time.Time) snapshotMessage {
	counts := map[upload.Status]int{
		upload.StatusQueued:    0,
		upload.StatusUploading: 0,
		upload.StatusCompleted: 0,
		upload.StatusFailed:    0,
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return snapshotMessage{
		Type:    "queue_snapshot",
		T:       now.UTC().Format(time.RFC3339Nano),
		Uploads: tasks,
		Counts:  counts,
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type         string  `json:"type"`
	IntervalMs   int64   `json:"interval_ms"`
	MaxIncrement float64 `json:"max_increment"`
	FailureRate  float64 `json:"failure_rate"`
	ServerTime   string  `json:"server_time"`
}

type snapshotMessage struct {
	Type    string                `json:"type"`
	T       string                `json:"t"`
	Uploads []upload.Task         `json:"uploads"`
	Counts  map[upload.Status]int `json:"counts"`
}
