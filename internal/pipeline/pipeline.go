// Package pipeline holds the read-only view of the processing pipelines.
package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned for an unknown pipeline ID.
var ErrNotFound = errors.New("pipeline not found")

// Status is the state of a pipeline.
type Status string

const (
	StatusRunning   Status = "running"
	StatusQueued    Status = "queued"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
)

// StepStatus is the state of one step within a pipeline.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Priority orders pipelines for the scheduler display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Step is one stage of a pipeline. Duration is empty until the step has
// started.
type Step struct {
	Name     string     `json:"name"`
	Status   StepStatus `json:"status"`
	Duration string     `json:"duration,omitempty"`
}

// Pipeline is one processing job and its ordered steps.
type Pipeline struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	Progress  int      `json:"progress"`
	ETA       string   `json:"eta"`
	Priority  Priority `json:"priority"`
	StartTime string   `json:"start_time"`
	Steps     []Step   `json:"steps"`
	// Elapsed is the sum of the step durations reported so far.
	Elapsed string `json:"elapsed"`
}

func steps(pairs ...string) []Step {
	out := make([]Step, 0, len(pairs)/3)
	for i := 0; i+2 < len(pairs); i += 3 {
		out = append(out, Step{Name: pairs[i], Status: StepStatus(pairs[i+1]), Duration: pairs[i+2]})
	}
	return out
}

var seed = []Pipeline{
	{
		ID: "PIPELINE-001", Name: "Ocean Color Processing", Status: StatusRunning, Progress: 67,
		ETA: "8 min", Priority: PriorityHigh, StartTime: "14:23:15 UTC",
		Steps: steps(
			"Data Ingestion", "completed", "2.3s",
			"Quality Check", "completed", "5.7s",
			"Atmospheric Correction", "running", "45.2s",
			"Calibration", "pending", "",
			"Product Generation", "pending", "",
			"Quality Validation", "pending", "",
		),
	},
	{
		ID: "PIPELINE-002", Name: "Multispectral Analysis", Status: StatusQueued, Progress: 0,
		ETA: "15 min", Priority: PriorityMedium, StartTime: "Queued",
		Steps: steps(
			"Data Loading", "pending", "",
			"Band Registration", "pending", "",
			"Radiometric Correction", "pending", "",
			"Geometric Correction", "pending", "",
			"Classification", "pending", "",
			"Export", "pending", "",
		),
	},
	{
		ID: "PIPELINE-003", Name: "Cloud Detection", Status: StatusCompleted, Progress: 100,
		ETA: "Completed", Priority: PriorityLow, StartTime: "13:45:22 UTC",
		Steps: steps(
			"Image Preprocessing", "completed", "3.1s",
			"Feature Extraction", "completed", "12.4s",
			"ML Classification", "completed", "28.7s",
			"Post-processing", "completed", "4.2s",
			"Mask Generation", "completed", "1.8s",
			"Validation", "completed", "2.3s",
		),
	},
	{
		ID: "PIPELINE-004", Name: "Fire Detection Alert", Status: StatusFailed, Progress: 45,
		ETA: "Failed", Priority: PriorityHigh, StartTime: "12:15:08 UTC",
		Steps: steps(
			"Thermal Band Analysis", "completed", "5.2s",
			"Hotspot Detection", "completed", "8.9s",
			"False Positive Filter", "failed", "",
			"Alert Generation", "pending", "",
			"Notification", "pending", "",
		),
	},
}

// Registry serves the seeded pipelines and the job board.
type Registry struct {
	pipelines []Pipeline
	jobs      []Job
}

// NewRegistry builds the registry, validating every step duration and job.
func NewRegistry() (*Registry, error) {
	out := make([]Pipeline, len(seed))
	for i, p := range seed {
		elapsed, err := totalDuration(p.Steps)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", p.ID, err)
		}
		p.Steps = append([]Step(nil), p.Steps...)
		p.Elapsed = elapsed.String()
		out[i] = p
	}
	if err := validJobs(seedJobs); err != nil {
		return nil, err
	}
	return &Registry{pipelines: out, jobs: append([]Job(nil), seedJobs...)}, nil
}

func totalDuration(steps []Step) (time.Duration, error) {
	var total time.Duration
	for _, s := range steps {
		if s.Duration == "" {
			continue
		}
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return 0, fmt.Errorf("step %q: %w", s.Name, err)
		}
		total += d
	}
	return total, nil
}

// List returns a copy of every pipeline in registry order.
func (r *Registry) List() []Pipeline {
	out := make([]Pipeline, len(r.pipelines))
	for i, p := range r.pipelines {
		out[i] = clone(p)
	}
	return out
}

// Get returns one pipeline by ID.
func (r *Registry) Get(id string) (Pipeline, error) {
	for _, p := range r.pipelines {
		if p.ID == id {
			return clone(p), nil
		}
	}
	return Pipeline{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

func clone(p Pipeline) Pipeline {
	p.Steps = append([]Step(nil), p.Steps...)
	return p
}
