package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/storage"
)

// TaskRepository persists workflow execution attempts.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, workflow_id, platform_id, status, detail, created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	var workflowID, platformID, detail sql.NullString

	err := row.Scan(&t.ID, &workflowID, &platformID, &t.Status, &detail, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.WorkflowID = workflowID.String
	t.PlatformID = platformID.String
	t.Detail = detail.String
	return &t, nil
}

func (r *TaskRepository) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.WorkflowID != "" {
		query += fmt.Sprintf(" AND workflow_id = $%d", argPos)
		args = append(args, filter.WorkflowID)
		argPos++
	}
	if filter.PlatformID != "" {
		query += fmt.Sprintf(" AND platform_id = $%d", argPos)
		args = append(args, filter.PlatformID)
		argPos++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (r *TaskRepository) CreateTask(ctx context.Context, t models.Task) (*models.Task, error) {
	t.ID = uuid.New().String()
	t.Status = models.TaskStatusPending
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO tasks (id, workflow_id, platform_id, status, detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, nullString(t.WorkflowID), nullString(t.PlatformID), t.Status, nullString(t.Detail), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &t, nil
}

// UpdateTaskStatus transitions a task, guarding the terminal-state invariant
// in the WHERE clause so a concurrent completion cannot be overwritten.
func (r *TaskRepository) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, detail string) (*models.Task, error) {
	query := `
		UPDATE tasks
		SET status = $2,
		    detail = COALESCE(NULLIF($3, ''), detail),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + taskColumns + `
	`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, id, status, detail))
	if err == nil {
		return t, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	// No pending row matched: either the id is unknown or the task is
	// already terminal.
	existing, lookupErr := r.GetTask(ctx, id)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if existing == nil {
		return nil, nil
	}
	return nil, storage.ErrTerminalTask
}

func (r *TaskRepository) DeleteTask(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}
