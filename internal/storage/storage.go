// Package storage defines the persistence boundary for the core entities.
// Every other component mutates and queries platforms, workflows, tasks,
// activities and earnings exclusively through these interfaces.
//
// Absence is not an error: Get returns (nil, nil) and Delete returns
// (false, nil) when the id never existed. Callers translate that into a
// 404 at the HTTP boundary. Stores never append activities on their own;
// the mutate-then-log convention belongs to the caller.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/wolfauto/marketer/internal/models"
)

var (
	// ErrTerminalTask is returned when a status update targets a task that
	// already reached completed or failed.
	ErrTerminalTask = errors.New("task already in terminal state")

	// ErrDuplicateName is returned when a platform create or rename collides
	// with an existing name (case-insensitive).
	ErrDuplicateName = errors.New("platform name already in use")

	// ErrPlatformMissing is returned when a workflow references a platform
	// id that does not exist.
	ErrPlatformMissing = errors.New("platform does not exist")
)

// PlatformStore persists platform connection records.
type PlatformStore interface {
	ListPlatforms(ctx context.Context) ([]models.Platform, error)
	GetPlatform(ctx context.Context, id string) (*models.Platform, error)
	GetPlatformByName(ctx context.Context, name string) (*models.Platform, error)
	CreatePlatform(ctx context.Context, p models.Platform) (*models.Platform, error)
	UpdatePlatform(ctx context.Context, id string, upd models.PlatformUpdate) (*models.Platform, error)
	DeletePlatform(ctx context.Context, id string) (bool, error)
}

// WorkflowStore persists workflow definitions and their rollup counters.
type WorkflowStore interface {
	ListWorkflows(ctx context.Context) ([]models.Workflow, error)
	ListWorkflowsByPlatform(ctx context.Context, platformID string) ([]models.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, w models.Workflow) (*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, upd models.WorkflowUpdate) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) (bool, error)

	// ApplyRunResult folds one finished run into the workflow's rollup
	// fields in a single atomic step: runs+1, the matching outcome counter
	// +1, revenue accumulated, lastRun stamped and nextRun replaced when
	// provided. Two concurrent completions must both land.
	ApplyRunResult(ctx context.Context, id string, success bool, revenue models.Cents, lastRun time.Time, nextRun *time.Time) (*models.Workflow, error)

	// ClaimDueWorkflows atomically claims every active workflow whose
	// nextRun is at or before now, pushing nextRun forward by reschedule so
	// no other scheduler instance picks the same workflow up.
	ClaimDueWorkflows(ctx context.Context, now time.Time, reschedule time.Duration) ([]models.Workflow, error)
}

// TaskStore persists workflow execution attempts.
type TaskStore interface {
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, t models.Task) (*models.Task, error)

	// UpdateTaskStatus moves a task through its lifecycle, refreshing
	// updatedAt. Moving out of a terminal state returns ErrTerminalTask.
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, detail string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
}

// ActivityStore is the append-only audit trail.
type ActivityStore interface {
	// LogActivity stamps id and timestamp server-side; any caller-supplied
	// timestamp is ignored.
	LogActivity(ctx context.Context, a models.Activity) (*models.Activity, error)
	ListActivities(ctx context.Context, limit int, activityType models.ActivityType, platformID string) ([]models.Activity, error)
	DeleteActivitiesOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// EarningStore is the platform earnings ledger. Reporting reads it; the
// engine appends to it.
type EarningStore interface {
	AddEarning(ctx context.Context, e models.PlatformEarning) (*models.PlatformEarning, error)
	ListEarnings(ctx context.Context, platformID string, from, to time.Time) ([]models.PlatformEarning, error)
}

// WalletStore tracks the withdrawable balance and payout history.
type WalletStore interface {
	Balance(ctx context.Context) (models.Cents, error)
	AdjustBalance(ctx context.Context, delta models.Cents) (models.Cents, error)
	AddWithdrawal(ctx context.Context, w models.Withdrawal) (*models.Withdrawal, error)
	ListWithdrawalsSince(ctx context.Context, since time.Time) ([]models.Withdrawal, error)
}

// InferenceLogStore records external model calls made by the matcher.
type InferenceLogStore interface {
	CreateInferenceLog(ctx context.Context, log models.InferenceLog) error
	ListInferenceLogs(ctx context.Context, limit int) ([]models.InferenceLog, error)
}

// Store bundles every entity store behind one value, which is what the
// router and engine are wired with.
type Store interface {
	PlatformStore
	WorkflowStore
	TaskStore
	ActivityStore
	EarningStore
	WalletStore
	InferenceLogStore
}
