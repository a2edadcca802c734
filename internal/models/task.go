package models

import "time"

// TaskStatus represents the lifecycle state of a single workflow execution
// attempt. Pending is the only initial state; completed and failed are
// terminal.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is one execution attempt of a workflow.
type Task struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id,omitempty"`
	PlatformID string     `json:"platform_id,omitempty"`
	Status     TaskStatus `json:"status"`
	Detail     string     `json:"detail,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a task in status s may move to next.
// The only legal moves are pending -> completed and pending -> failed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s.Terminal() {
		return false
	}
	return next == TaskStatusCompleted || next == TaskStatusFailed
}

// TaskFilter narrows task listings. Zero-valued fields are ignored; set
// fields are AND-combined.
type TaskFilter struct {
	WorkflowID string
	PlatformID string
	Status     TaskStatus
}

// Matches reports whether t satisfies every set field of the filter.
func (f TaskFilter) Matches(t *Task) bool {
	if f.WorkflowID != "" && t.WorkflowID != f.WorkflowID {
		return false
	}
	if f.PlatformID != "" && t.PlatformID != f.PlatformID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}
