package pipeline

import "fmt"

// Job is one processing job on the dashboard's job board.
type Job struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Progress int      `json:"progress"`
	ETA      string   `json:"eta"`
	Priority Priority `json:"priority"`
}

var seedJobs = []Job{
	{ID: "JOB-001", Type: "Image Processing", Progress: 87, ETA: "5 min", Priority: PriorityHigh},
	{ID: "JOB-002", Type: "Data Compression", Progress: 45, ETA: "12 min", Priority: PriorityMedium},
	{ID: "JOB-003", Type: "Quality Check", Progress: 100, ETA: "Complete", Priority: PriorityLow},
	{ID: "JOB-004", Type: "Calibration", Progress: 23, ETA: "18 min", Priority: PriorityHigh},
}

func validJobs(jobs []Job) error {
	for _, j := range jobs {
		if j.Progress < 0 || j.Progress > 100 {
			return fmt.Errorf("job %s: progress %d out of range", j.ID, j.Progress)
		}
		if !j.Priority.Valid() {
			return fmt.Errorf("job %s: unknown priority %q", j.ID, j.Priority)
		}
	}
	return nil
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Jobs returns the job board in registry order. A non-empty priority keeps
// only the jobs with that priority.
func (r *Registry) Jobs(priority Priority) []Job {
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if priority == "" || j.Priority == priority {
			out = append(out, j)
		}
	}
	return out
}
