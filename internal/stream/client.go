package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/star/satconsole/internal/metrics"
)

// writeTimeout bounds each write on a long-lived connection.
const writeTimeout = 30 * time.Second

// client manages a single SSE connection's write operations.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	limiter *rate.Limiter // nil when bandwidth is unlimited
	ip      string
	logger  *slog.Logger

	messagesSent int64
	bytesSent    int64
}

// newWriteLimiter returns a token bucket of bytesPerSec bytes per second
// with a one-second burst, or nil for no limit.
func newWriteLimiter(bytesPerSec int) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
}

// throttle blocks until n bytes may be written. Writes larger than the burst
// wait for a full bucket.
func (c *client) throttle(ctx context.Context, n int) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.WaitN(ctx, min(n, c.limiter.Burst())); err != nil {
		return fmt.Errorf("bandwidth limit: %w", err)
	}
	return nil
}

// sendJSON marshals v as JSON and sends it as an SSE "data:" message.
// SSE format: "data: {json}\n\n"
func (c *client) sendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		metrics.IncStreamErrors("marshal_error")
		return fmt.Errorf("json marshal: %w", err)
	}
	msg := fmt.Sprintf("data: %s\n\n", data)

	if err := c.throttle(ctx, len(msg)); err != nil {
		return err
	}

	// Extend write deadline before each write to prevent timeout on long-lived connections.
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "component", "stream", "error", err)
	}

	n, err := fmt.Fprint(c.w, msg)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.flusher.Flush()
	c.messagesSent++
	c.bytesSent += int64(n)
	metrics.IncStreamMessages()
	metrics.AddStreamBytes(int64(n))

	return nil
}

// sendKeepalive sends an SSE comment line to keep the connection alive.
// SSE comment format: ":\n\n"
func (c *client) sendKeepalive(ctx context.Context) error {
	const keepalive = ":\n\n"
	if err := c.throttle(ctx, len(keepalive)); err != nil {
		return err
	}
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "component", "stream", "error", err)
	}

	n, err := fmt.Fprint(c.w, keepalive)
	if err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}

	c.flusher.Flush()
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(int64(n))

	return nil
}
