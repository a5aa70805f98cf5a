package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/star/satconsole/internal/tle"
)

type propagateJob struct {
	element    tle.Element
	targetTime time.Time
	prop       *SGP4Propagator // nil when not cached
}

type propagateResult struct {
	point   GroundPoint
	err     error
	noradID int
}

// WorkerPool manages a fixed number of goroutines for parallel SGP4 propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateBatch propagates every element to targetTime. Elements with a
// propagator in props reuse it; the rest are initialized per call. Failed
// satellites are logged and skipped. Returns the points plus success and
// error counts.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, elements []tle.Element, targetTime time.Time, props map[int]*SGP4Propagator) ([]GroundPoint, int, int) {
	if len(elements) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	var wg sync.WaitGroup
	for range wp.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, e := range elements {
			job := propagateJob{element: e, targetTime: targetTime, prop: props[e.NORADID]}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	points := make([]GroundPoint, 0, len(elements))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"component", "propagation",
				"norad_id", result.noradID,
				"error", result.err,
			)
			continue
		}
		successCount++
		points = append(points, result.point)
	}

	return points, successCount, errorCount
}

func propagateSingle(job propagateJob) propagateResult {
	id := job.element.NORADID
	prop := job.prop
	if prop == nil {
		var err error
		prop, err = NewSGP4Propagator(job.element.Line1, job.element.Line2, id)
		if err != nil {
			return propagateResult{noradID: id, err: err}
		}
	}

	point, err := prop.SubPoint(job.targetTime)
	if err != nil {
		return propagateResult{noradID: id, err: err}
	}
	return propagateResult{noradID: id, point: point}
}
