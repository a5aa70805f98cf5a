package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/satconsole/internal/upload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func testQueue() *upload.Queue {
	return upload.NewQueue(upload.DefaultConfig(), testLogger(),
		upload.WithRand(func() float64 { return 0.5 }))
}

type sseMessage map[string]any

// parseSSE splits a recorded body into data messages and counts keepalives.
// It fails the test on any line that is not valid SSE for this stream.
func parseSSE(t *testing.T, body string) (msgs []sseMessage, keepalives int) {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
		case line == ":":
			keepalives++
		case strings.HasPrefix(line, "retry: "):
		case strings.HasPrefix(line, "data: "):
			var m sseMessage
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &m))
			msgs = append(msgs, m)
		default:
			t.Errorf("unexpected SSE line: %q", line)
		}
	}
	return msgs, keepalives
}

// serve runs the handler until cancel is called and returns the recorder
// once the handler has exited.
func serve(h *Handler, remoteAddr string) (w *httptest.ResponseRecorder, cancel func()) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/uploads", nil)
	req.RemoteAddr = remoteAddr
	ctx, stop := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	w = httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.HandleUploads(w, req)
	}()
	return w, func() {
		stop()
		<-done
	}
}

func TestStreamSnapshots(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := testQueue()
		defer q.Close()
		h := NewHandler(q, DefaultConfig(), testLogger())

		w, cancel := serve(h, "127.0.0.1:12345")
		synctest.Wait()

		_, err := q.Enqueue([]upload.File{{Name: "x.hdf", SizeBytes: 2400000000}})
		require.NoError(t, err)

		// Two ticks at 500ms and 1000ms.
		time.Sleep(1100 * time.Millisecond)
		synctest.Wait()
		cancel()

		resp := w.Result()
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
		assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
		assert.Contains(t, w.Body.String(), "retry: ")

		msgs, _ := parseSSE(t, w.Body.String())
		require.GreaterOrEqual(t, len(msgs), 3)

		meta := msgs[0]
		assert.Equal(t, "metadata", meta["type"])
		assert.Equal(t, float64(500), meta["interval_ms"])
		assert.Equal(t, float64(15), meta["max_increment"])

		initial := msgs[1]
		assert.Equal(t, "queue_snapshot", initial["type"])
		assert.Empty(t, initial["uploads"])

		last := msgs[len(msgs)-1]
		uploads := last["uploads"].([]any)
		require.Len(t, uploads, 1)
		task := uploads[0].(map[string]any)
		assert.Equal(t, "HDF", task["extension"])
		assert.Equal(t, "uploading", task["status"])
		assert.InDelta(t, 15.0, task["progress"], 1e-9)

		counts := last["counts"].(map[string]any)
		assert.Equal(t, float64(1), counts["uploading"])
		assert.Equal(t, float64(0), counts["completed"])
	})
}

func TestStreamKeepalive(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := testQueue()
		defer q.Close()
		cfg := DefaultConfig()
		cfg.KeepaliveInterval = time.Second
		h := NewHandler(q, cfg, testLogger())

		w, cancel := serve(h, "127.0.0.1:12345")
		time.Sleep(2500 * time.Millisecond)
		synctest.Wait()
		cancel()

		msgs, keepalives := parseSSE(t, w.Body.String())
		assert.Equal(t, 2, keepalives)
		assert.Len(t, msgs, 2, "metadata and initial snapshot only")
	})
}

// TestStreamUnsubscribes verifies a closed stream stops listening to the
// queue, so later changes never touch its recorder.
func TestStreamUnsubscribes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := testQueue()
		defer q.Close()
		h := NewHandler(q, DefaultConfig(), testLogger())

		w, cancel := serve(h, "127.0.0.1:12345")
		synctest.Wait()
		cancel()
		before := w.Body.Len()

		_, err := q.Enqueue([]upload.File{{Name: "late.tif", SizeBytes: 1}})
		require.NoError(t, err)
		time.Sleep(time.Second)
		synctest.Wait()

		assert.Equal(t, before, w.Body.Len())
		assert.Equal(t, 0, h.limiter.count("127.0.0.1"))
	})
}

func TestRateLimitHTTPResponse(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := testQueue()
		defer q.Close()
		cfg := DefaultConfig()
		cfg.MaxConcurrentPerIP = 1
		h := NewHandler(q, cfg, testLogger())

		_, cancel := serve(h, "10.0.0.1:12345")
		synctest.Wait()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/uploads", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		w := httptest.NewRecorder()
		h.HandleUploads(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))

		cancel()
	})
}

func TestBuildSnapshot(t *testing.T) {
	now := time.Date(2026, 2, 6, 4, 0, 0, 500000000, time.UTC)
	tasks := []upload.Task{
		{ID: "a", Status: upload.StatusCompleted, Progress: 100},
		{ID: "b", Status: upload.StatusUploading, Progress: 40},
		{ID: "c", Status: upload.StatusUploading, Progress: 10},
	}

	msg := buildSnapshot(tasks, now)

	assert.Equal(t, "queue_snapshot", msg.Type)
	assert.Equal(t, "2026-02-06T04:00:00.5Z", msg.T)
	assert.Len(t, msg.Uploads, 3)
	assert.Equal(t, map[upload.Status]int{
		upload.StatusQueued:    0,
		upload.StatusUploading: 2,
		upload.StatusCompleted: 1,
		upload.StatusFailed:    0,
	}, msg.Counts)
}

func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.acquire("10.0.0.1"), "acquire %d should succeed", i+1)
	}
	assert.False(t, limiter.acquire("10.0.0.1"), "acquire beyond limit should fail")
	assert.True(t, limiter.acquire("10.0.0.2"), "different IP should not be rate limited")

	limiter.release("10.0.0.1")
	assert.True(t, limiter.acquire("10.0.0.1"), "acquire after release should succeed")

	assert.Equal(t, 3, limiter.count("10.0.0.1"))
	assert.Equal(t, 1, limiter.count("10.0.0.2"))
}

func TestRateLimitingGlobalCap(t *testing.T) {
	limiter := newStreamLimiter(5)
	limiter.maxTotal = 2

	assert.True(t, limiter.acquire("10.0.0.1"))
	assert.True(t, limiter.acquire("10.0.0.2"))
	assert.False(t, limiter.acquire("10.0.0.3"))
}

func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") {
				defer limiter.release("10.0.0.1")
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, limiter.count("10.0.0.1"))
}

func TestWriteLimiter(t *testing.T) {
	assert.Nil(t, newWriteLimiter(0))
	assert.Nil(t, newWriteLimiter(-1))

	l := newWriteLimiter(2048)
	require.NotNil(t, l)
	assert.Equal(t, 2048, l.Burst())
}

// TestThrottleOversizedWrite verifies a message larger than the burst still
// goes out instead of failing WaitN.
func TestThrottleOversizedWrite(t *testing.T) {
	c := &client{limiter: newWriteLimiter(16)}
	require.NoError(t, c.throttle(context.Background(), 1000))
}
