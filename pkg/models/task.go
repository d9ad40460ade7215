package models

import "time"

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusPaused     TaskStatus = "paused"
	StatusCorrection TaskStatus = "correction"
	StatusCompleted  TaskStatus = "completed"
	StatusQC         TaskStatus = "qc"
	StatusFinalized  TaskStatus = "finalized"
)

// AllStatuses lists every task status in workflow order.
var AllStatuses = []TaskStatus{
	StatusPending,
	StatusInProgress,
	StatusPaused,
	StatusCorrection,
	StatusCompleted,
	StatusQC,
	StatusFinalized,
}

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Task is a unit of work assigned to one operator within one project.
// TotalTimeSpent holds the active seconds accounted for as of the last
// checkpoint; a live timer session adds to it only at read time.
type Task struct {
	ID             string     `yaml:"id" json:"id" cbor:"id"`
	Title          string     `yaml:"title" json:"title" cbor:"title"`
	Description    string     `yaml:"description,omitempty" json:"description,omitempty" cbor:"description,omitempty"`
	Status         TaskStatus `yaml:"status" json:"status" cbor:"status"`
	TotalTimeSpent int64      `yaml:"total_time_spent" json:"total_time_spent" cbor:"total_time_spent"`
	AssignedTo     string     `yaml:"assigned_to" json:"assigned_to" cbor:"assigned_to"`
	ProjectID      string     `yaml:"project_id" json:"project_id" cbor:"project_id"`
	CreatedBy      string     `yaml:"created_by,omitempty" json:"created_by,omitempty" cbor:"created_by,omitempty"`
	CreatedAt      time.Time  `yaml:"created_at" json:"created_at" cbor:"created_at"`
	UpdatedAt      time.Time  `yaml:"updated_at" json:"updated_at" cbor:"updated_at"`
	CompletedAt    *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty" cbor:"completed_at,omitempty"`
	Version        int64      `yaml:"version" json:"version" cbor:"version"`
}

// TaskFilter selects tasks by assignee, project scope and status.
// All specified fields use AND logic. A nil ProjectIDs slice means no
// project restriction; an empty non-nil slice matches nothing.
type TaskFilter struct {
	AssignedTo string
	ProjectIDs []string
	Statuses   []TaskStatus
}
