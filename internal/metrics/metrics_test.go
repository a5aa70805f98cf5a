package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/app.js", "/app.js"},
		{"/api/v1/uploads", "/api/v1/uploads"},
		{"/api/v1/uploads/history", "/api/v1/uploads/history"},
		{"/api/v1/stream/uploads", "/api/v1/stream/uploads"},
		{"/api/v1/datasets", "/api/v1/datasets"},
		{"/api/v1/datasets/facets", "/api/v1/datasets/facets"},
		{"/api/v1/fleet", "/api/v1/fleet"},
		{"/api/v1/jobs", "/api/v1/jobs"},
		{"/api/v1/analytics", "/api/v1/analytics"},

		// Identifiers collapse to one label per resource.
		{"/api/v1/uploads/0192b3c4-aaaa-7bbb-8ccc-123456789abc", "/api/v1/uploads/{id}"},
		{"/api/v1/fleet/SAT-001", "/api/v1/fleet/{id}"},
		{"/api/v1/fleet/SAT-001/track", "/api/v1/fleet/{id}/track"},
		{"/api/v1/fleet/SAT-001/passes", "/api/v1/fleet/{id}/passes"},
		{"/api/v1/pipelines/PIPELINE-004", "/api/v1/pipelines/{id}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/.env", "other"},
		{"/api/v1/uploads/", "other"},
		{"/api/v1/fleet/SAT-001/extra", "other"},
		{"/api/v1/fleet//track", "other"},
		{"/api/v2/something", "other"},
		{"/api/v1/jobs/JOB-001", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique upload IDs produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/api/v1/uploads/" + string(rune('a'+i%26)) + string(rune('0'+i/26)))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}

// TestMiddlewareKeepsFlusher verifies the wrapped writer still streams.
func TestMiddlewareKeepsFlusher(t *testing.T) {
	var flushable bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/stream/uploads", nil))

	if !flushable {
		t.Error("wrapped writer does not implement http.Flusher")
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}
