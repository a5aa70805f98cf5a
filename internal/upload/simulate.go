package upload

import (
	"context"
	"time"

	"github.com/star/satconsole/internal/metrics"
)

// simulate drives one task until it reaches a terminal status or ctx is
// cancelled. Ticks for a task are handled sequentially by this goroutine.
func (q *Queue) simulate(ctx context.Context, id string) {
	defer q.wg.Done()
	defer metrics.DecUploadSimulations()

	ticker := time.NewTicker(q.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := q.tick(id); done {
				return
			}
		}
	}
}

// tick advances the task by one random step. It returns true when the
// simulation should stop, either because the task finished or because it
// is no longer in the queue.
func (q *Queue) tick(id string) bool {
	q.mu.Lock()
	i := q.indexOf(id)
	if i < 0 {
		q.mu.Unlock()
		return true
	}
	e := q.entries[i]
	t := &e.task

	if q.config.FailureRate > 0 && q.rand() < q.config.FailureRate {
		t.Status = StatusFailed
	} else {
		t.Progress = min(t.Progress+q.rand()*q.config.MaxIncrement, 100)
		if t.Progress >= 100 {
			t.Status = StatusCompleted
		} else {
			t.Status = StatusUploading
		}
	}
	t.UpdatedAt = time.Now().UTC()

	snapshot := *t
	if snapshot.Status.Terminal() {
		e.cancel()
	}
	q.mu.Unlock()

	metrics.IncUploadTicks()
	q.notify()

	if !snapshot.Status.Terminal() {
		return false
	}

	metrics.IncUploadsFinished(string(snapshot.Status))
	q.logger.Info("upload finished",
		"component", "upload",
		"upload_id", snapshot.ID,
		"status", string(snapshot.Status),
		"progress", snapshot.Progress,
		"duration_ms", snapshot.UpdatedAt.Sub(snapshot.CreatedAt).Milliseconds(),
	)
	return true
}
