package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfauto/marketer/internal/models"
)

// ActivityRepository is the append-only audit trail. Rows are never updated;
// the only delete surface is the retention sweep.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// LogActivity stores a new entry, stamping id and timestamp server-side.
// Caller-supplied timestamps are deliberately ignored.
func (r *ActivityRepository) LogActivity(ctx context.Context, a models.Activity) (*models.Activity, error) {
	a.ID = uuid.New().String()
	a.Timestamp = time.Now()

	var dataJSON []byte
	var err error
	if a.Data != nil {
		dataJSON, err = json.Marshal(a.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}
	}

	query := `
		INSERT INTO activities (id, timestamp, type, title, description, workflow_id, platform_id, task_id, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Timestamp, a.Type, a.Title, nullString(a.Description),
		nullString(a.WorkflowID), nullString(a.PlatformID), nullString(a.TaskID), dataJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to log activity: %w", err)
	}
	return &a, nil
}

// ListActivities returns the most recent entries, newest first.
func (r *ActivityRepository) ListActivities(ctx context.Context, limit int, activityType models.ActivityType, platformID string) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, timestamp, type, title, description, workflow_id, platform_id, task_id, data
		FROM activities
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

	if activityType != "" {
		query += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, activityType)
		argPos++
	}
	if platformID != "" {
		query += fmt.Sprintf(" AND platform_id = $%d", argPos)
		args = append(args, platformID)
		argPos++
	}
	query += " ORDER BY timestamp DESC"
	query += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		var description, workflowID, platformIDCol, taskID sql.NullString
		var dataJSON []byte

		err := rows.Scan(&a.ID, &a.Timestamp, &a.Type, &a.Title, &description, &workflowID, &platformIDCol, &taskID, &dataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Description = description.String
		a.WorkflowID = workflowID.String
		a.PlatformID = platformIDCol.String
		a.TaskID = taskID.String
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &a.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal data: %w", err)
			}
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// DeleteActivitiesOlderThan removes entries older than the given age.
func (r *ActivityRepository) DeleteActivitiesOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	result, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old activities: %w", err)
	}
	return result.RowsAffected()
}
