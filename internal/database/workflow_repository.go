package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/storage"
)

const foreignKeyViolation = "23503"

// WorkflowRepository persists workflow definitions and rollup counters.
// Rollup mutation goes through ApplyRunResult only, as a single UPDATE with
// the arithmetic done in SQL so concurrent task completions cannot drop
// increments.
type WorkflowRepository struct {
	db *sql.DB
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const workflowColumns = `id, platform_id, name, description, status, steps, last_run, next_run, revenue_cents, runs, successes, failures, created_at, updated_at`

func scanWorkflow(row interface{ Scan(...interface{}) error }) (*models.Workflow, error) {
	var w models.Workflow
	var description sql.NullString
	var lastRun, nextRun sql.NullTime
	var stepsJSON []byte

	err := row.Scan(
		&w.ID,
		&w.PlatformID,
		&w.Name,
		&description,
		&w.Status,
		&stepsJSON,
		&lastRun,
		&nextRun,
		&w.Revenue,
		&w.Stats.Runs,
		&w.Stats.Successes,
		&w.Stats.Failures,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Description = description.String
	if lastRun.Valid {
		w.LastRun = &lastRun.Time
	}
	if nextRun.Valid {
		w.NextRun = &nextRun.Time
	}
	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &w.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}
	return &w, nil
}

func (r *WorkflowRepository) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	return r.list(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at`)
}

func (r *WorkflowRepository) ListWorkflowsByPlatform(ctx context.Context, platformID string) ([]models.Workflow, error) {
	return r.list(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE platform_id = $1 ORDER BY created_at`, platformID)
}

func (r *WorkflowRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := []models.Workflow{}
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, *w)
	}
	return workflows, rows.Err()
}

func (r *WorkflowRepository) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	w, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return w, nil
}

func (r *WorkflowRepository) CreateWorkflow(ctx context.Context, w models.Workflow) (*models.Workflow, error) {
	w.ID = uuid.New().String()
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	if w.Status == "" {
		w.Status = models.WorkflowStatusActive
	}
	if w.NextRun == nil {
		next := now.Add(models.InitialRunDelay)
		w.NextRun = &next
	}
	w.LastRun = nil
	w.Revenue = 0
	w.Stats = models.WorkflowStats{}

	stepsJSON, err := json.Marshal(w.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO workflows (id, platform_id, name, description, status, steps, last_run, next_run, revenue_cents, runs, successes, failures, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		w.ID, w.PlatformID, w.Name, nullString(w.Description), w.Status, stepsJSON,
		nil, nullTime(w.NextRun), 0, 0, 0, 0, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == foreignKeyViolation {
			return nil, storage.ErrPlatformMissing
		}
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	return &w, nil
}

func (r *WorkflowRepository) UpdateWorkflow(ctx context.Context, id string, upd models.WorkflowUpdate) (*models.Workflow, error) {
	current, err := r.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if upd.Name != nil {
		current.Name = *upd.Name
	}
	if upd.Description != nil {
		current.Description = *upd.Description
	}
	if upd.Status != nil {
		current.Status = *upd.Status
	}
	if upd.Steps != nil {
		current.Steps = upd.Steps
	}
	if upd.NextRun != nil {
		t := *upd.NextRun
		current.NextRun = &t
	}
	current.UpdatedAt = time.Now()

	stepsJSON, err := json.Marshal(current.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		UPDATE workflows
		SET name = $2, description = $3, status = $4, steps = $5, next_run = $6, updated_at = $7
		WHERE id = $1
	`

	_, err = r.db.ExecContext(ctx, query,
		id, current.Name, nullString(current.Description), current.Status, stepsJSON,
		nullTime(current.NextRun), current.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}
	return current, nil
}

func (r *WorkflowRepository) DeleteWorkflow(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete workflow: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *WorkflowRepository) ApplyRunResult(ctx context.Context, id string, success bool, revenue models.Cents, lastRun time.Time, nextRun *time.Time) (*models.Workflow, error) {
	query := `
		UPDATE workflows
		SET runs = runs + 1,
		    successes = successes + CASE WHEN $2 THEN 1 ELSE 0 END,
		    failures = failures + CASE WHEN $2 THEN 0 ELSE 1 END,
		    revenue_cents = revenue_cents + $3,
		    last_run = $4,
		    next_run = COALESCE($5, next_run),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + workflowColumns + `
	`

	w, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id, success, int64(revenue), lastRun, nullTime(nextRun)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply run result: %w", err)
	}
	return w, nil
}

// ClaimDueWorkflows atomically claims due workflows with SKIP LOCKED so
// only one instance picks each up, even with several server replicas.
func (r *WorkflowRepository) ClaimDueWorkflows(ctx context.Context, now time.Time, reschedule time.Duration) ([]models.Workflow, error) {
	query := `
		UPDATE workflows
		SET next_run = $1::timestamptz + ($2 || ' minutes')::interval,
		    updated_at = NOW()
		WHERE id IN (
			SELECT id
			FROM workflows
			WHERE status = 'active'
			  AND next_run IS NOT NULL
			  AND next_run <= $1
			ORDER BY next_run ASC
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + workflowColumns + `
	`

	minutes := int(reschedule.Minutes())
	rows, err := r.db.QueryContext(ctx, query, now, minutes)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due workflows: %w", err)
	}
	defer rows.Close()

	var claimed []models.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		claimed = append(claimed, *w)
	}
	return claimed, rows.Err()
}
