// Package upload simulates the file-upload queue shown on the console.
//
// Every queued file is tracked as a Task whose progress is advanced by its
// own ticker. No bytes are transferred: the simulation only models the
// status and percentage a real transfer would report.
package upload

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the lifecycle state of an upload.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further progress is expected for s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// unknownExtension labels files whose name carries no extension.
const unknownExtension = "Unknown"

// File describes one file handed to Enqueue. Only the name and size are
// known; the content never reaches the queue.
type File struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Satellite string `json:"satellite,omitempty"`
	DataType  string `json:"data_type,omitempty"`
}

// Task is a snapshot of one tracked upload.
type Task struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	SizeLabel string    `json:"size_label"`
	Extension string    `json:"extension"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	Satellite string    `json:"satellite,omitempty"`
	DataType  string    `json:"data_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Extension returns the upper-cased extension of name, or "Unknown" when the
// name has none.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return unknownExtension
	}
	return strings.ToUpper(name[i+1:])
}

// SizeLabel formats a byte count the way the console displays it (base 1024).
func SizeLabel(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

func newTask(id string, f File, now time.Time) Task {
	return Task{
		ID:        id,
		Name:      f.Name,
		SizeBytes: f.SizeBytes,
		SizeLabel: SizeLabel(f.SizeBytes),
		Extension: Extension(f.Name),
		Status:    StatusQueued,
		Progress:  0,
		Satellite: f.Satellite,
		DataType:  f.DataType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
