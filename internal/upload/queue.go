package upload

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/star/satconsole/internal/metrics"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("upload queue is closed")

// Config holds simulation tuning loaded from configuration.
type Config struct {
	Interval     time.Duration // Tick interval per task (default: 500ms).
	MaxIncrement float64       // Upper bound of the per-tick progress step, exclusive (default: 15).
	FailureRate  float64       // Per-tick probability of failing the upload (default: 0).
}

// DefaultConfig returns the reference simulation settings.
func DefaultConfig() Config {
	return Config{
		Interval:     500 * time.Millisecond,
		MaxIncrement: 15,
		FailureRate:  0,
	}
}

// Option customizes a Queue.
type Option func(*Queue)

// WithRand replaces the uniform [0,1) source used for increments and the
// failure draw. The function is only called with the queue lock held.
func WithRand(fn func() float64) Option {
	return func(q *Queue) { q.rand = fn }
}

// WithIDGenerator replaces the task ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(q *Queue) { q.newID = fn }
}

// entry pairs a task with the cancel func of its simulation.
type entry struct {
	task   Task
	cancel context.CancelFunc
}

// Queue is the ordered collection of tracked uploads.
// Safe for concurrent use by multiple goroutines.
type Queue struct {
	mu      sync.Mutex
	entries []*entry // insertion order
	closed  bool

	config Config
	rand   func() float64
	newID  func() string
	logger *slog.Logger

	wg sync.WaitGroup // running simulations

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// NewQueue creates an empty queue.
func NewQueue(config Config, logger *slog.Logger, opts ...Option) *Queue {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.MaxIncrement <= 0 {
		config.MaxIncrement = def.MaxIncrement
	}
	config.FailureRate = min(max(config.FailureRate, 0), 1)

	q := &Queue{
		config: config,
		rand:   rand.Float64,
		newID:  newTaskID,
		logger: logger,
		subs:   make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// newTaskID returns a time-ordered UUID so IDs sort by creation.
func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Config returns the simulation settings in effect.
func (q *Queue) Config() Config {
	return q.config
}

// Enqueue appends one queued task per file, in order, and starts a
// simulation for each. It never blocks on the simulations.
func (q *Queue) Enqueue(files []File) ([]Task, error) {
	now := time.Now().UTC()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}

	created := make([]Task, 0, len(files))
	for _, f := range files {
		ctx, cancel := context.WithCancel(context.Background())
		e := &entry{
			task:   newTask(q.newID(), f, now),
			cancel: cancel,
		}
		q.entries = append(q.entries, e)
		created = append(created, e.task)

		q.wg.Add(1)
		metrics.IncUploadSimulations()
		go q.simulate(ctx, e.task.ID)
	}
	q.mu.Unlock()

	if len(created) == 0 {
		return created, nil
	}

	metrics.AddUploadsEnqueued(len(created))
	for _, t := range created {
		q.logger.Info("upload queued",
			"component", "upload",
			"upload_id", t.ID,
			"name", t.Name,
			"size_bytes", t.SizeBytes,
			"extension", t.Extension,
		)
	}
	q.notify()
	return created, nil
}

// Remove deletes the task with the given ID and stops its simulation.
// Unknown IDs are ignored. Reports whether a task was removed.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	i := q.indexOf(id)
	if i < 0 {
		q.mu.Unlock()
		return false
	}
	e := q.entries[i]
	q.entries = slices.Delete(q.entries, i, i+1)
	q.mu.Unlock()

	e.cancel()
	metrics.IncUploadsRemoved()
	q.logger.Info("upload removed",
		"component", "upload",
		"upload_id", id,
		"status", string(e.task.Status),
		"progress", e.task.Progress,
	)
	q.notify()
	return true
}

// List returns a copy of every task in insertion order.
func (q *Queue) List() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Task, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.task
	}
	return out
}

// Get returns a copy of one task.
func (q *Queue) Get(id string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(id)
	if i < 0 {
		return Task{}, false
	}
	return q.entries[i].task, true
}

// Len returns the number of tracked tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Subscribe registers for change notifications. A value is sent on the
// returned channel after every enqueue, tick or removal; notifications that
// arrive while one is pending are coalesced. The cancel func must be called
// to release the subscription.
func (q *Queue) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	q.subMu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch
	q.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.subMu.Lock()
			delete(q.subs, id)
			q.subMu.Unlock()
		})
	}
}

// Close stops every running simulation and waits for them to exit.
// Tasks stay listable; further Enqueue calls fail with ErrQueueClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, e := range q.entries {
		e.cancel()
	}
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("upload queue closed", "component", "upload")
}

// indexOf returns the position of id in entries, or -1. Caller must hold mu.
func (q *Queue) indexOf(id string) int {
	return slices.IndexFunc(q.entries, func(e *entry) bool { return e.task.ID == id })
}

func (q *Queue) notify() {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
