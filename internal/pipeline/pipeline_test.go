package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	all := reg.List()
	require.Len(t, all, 4)
	assert.Equal(t, "PIPELINE-001", all[0].ID)
	assert.Equal(t, StatusFailed, all[3].Status)
}

func TestElapsed(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		id   string
		want string
	}{
		{"PIPELINE-001", "53.2s"},
		{"PIPELINE-002", "0s"},
		{"PIPELINE-003", "52.5s"},
		{"PIPELINE-004", "14.1s"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, err := reg.Get(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Elapsed)
		})
	}
}

func TestGet(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	p, err := reg.Get("PIPELINE-004")
	require.NoError(t, err)
	assert.Equal(t, "Fire Detection Alert", p.Name)
	require.Len(t, p.Steps, 5)
	assert.Equal(t, StepFailed, p.Steps[2].Status)
	assert.Empty(t, p.Steps[2].Duration)

	_, err = reg.Get("PIPELINE-999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCopiesAreIndependent(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	p, err := reg.Get("PIPELINE-001")
	require.NoError(t, err)
	p.Steps[0].Name = "changed"

	again, err := reg.Get("PIPELINE-001")
	require.NoError(t, err)
	assert.Equal(t, "Data Ingestion", again.Steps[0].Name)
}

func TestJobs(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		priority Priority
		want     []string
	}{
		{"", []string{"JOB-001", "JOB-002", "JOB-003", "JOB-004"}},
		{PriorityHigh, []string{"JOB-001", "JOB-004"}},
		{PriorityMedium, []string{"JOB-002"}},
		{PriorityLow, []string{"JOB-003"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			var ids []string
			for _, j := range reg.Jobs(tt.priority) {
				ids = append(ids, j.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	jobs := reg.Jobs("")
	assert.Equal(t, "Quality Check", jobs[2].Type)
	assert.Equal(t, 100, jobs[2].Progress)
	assert.Equal(t, "Complete", jobs[2].ETA)

	jobs[0].Progress = 0
	assert.Equal(t, 87, reg.Jobs("")[0].Progress)
}

func TestValidJobs(t *testing.T) {
	assert.NoError(t, validJobs(seedJobs))
	assert.ErrorContains(t, validJobs([]Job{{ID: "JOB-X", Progress: 101, Priority: PriorityLow}}), "progress 101")
	assert.ErrorContains(t, validJobs([]Job{{ID: "JOB-Y", Progress: 5, Priority: "urgent"}}), `unknown priority "urgent"`)
}
