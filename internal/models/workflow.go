package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusInactive WorkflowStatus = "inactive"
	WorkflowStatusError    WorkflowStatus = "error"
)

// StepType identifies the role of a workflow step.
type StepType string

const (
	StepTypeTrigger StepType = "trigger"
	StepTypeFilter  StepType = "filter"
	StepTypeAction  StepType = "action"
)

// WorkflowStep is one declarative step in a workflow. Steps execute in the
// order they are stored.
type WorkflowStep struct {
	Type   StepType               `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// WorkflowStats accumulates run outcomes for a workflow.
// Invariant: Successes+Failures <= Runs.
type WorkflowStats struct {
	Runs      int `json:"runs"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// Workflow is a user-defined automation bound to a single platform.
type Workflow struct {
	ID          string         `json:"id"`
	PlatformID  string         `json:"platform_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Status      WorkflowStatus `json:"status"`
	Steps       []WorkflowStep `json:"steps"`
	LastRun     *time.Time     `json:"last_run,omitempty"`
	NextRun     *time.Time     `json:"next_run,omitempty"`
	Revenue     Cents          `json:"revenue_cents"`
	Stats       WorkflowStats  `json:"stats"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// InitialRunDelay is how far in the future a freshly created workflow is
// scheduled to first run.
const InitialRunDelay = 15 * time.Minute

// SuccessRate derives the 0-100 success percentage from the stored stats.
// It is never stored, so it cannot drift from the counters it is computed
// from. Zero runs yields 0.
func (w *Workflow) SuccessRate() float64 {
	if w.Stats.Runs == 0 {
		return 0
	}
	return float64(w.Stats.Successes) / float64(w.Stats.Runs) * 100
}

// StatsConsistent reports whether the recorded outcomes fit inside the run
// count.
func (w *Workflow) StatsConsistent() bool {
	return w.Stats.Successes+w.Stats.Failures <= w.Stats.Runs
}

// WorkflowUpdate carries the mutable subset of a workflow definition. Rollup
// fields (stats, revenue, lastRun) are deliberately absent; they change only
// through run results.
type WorkflowUpdate struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *WorkflowStatus `json:"status,omitempty"`
	Steps       []WorkflowStep  `json:"steps,omitempty"`
	NextRun     *time.Time      `json:"next_run,omitempty"`
}
