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

const uniqueViolation = "23505"

// PlatformRepository persists platform connection records in Postgres.
type PlatformRepository struct {
	db *sql.DB
}

// NewPlatformRepository creates a new platform repository.
func NewPlatformRepository(db *sql.DB) *PlatformRepository {
	return &PlatformRepository{db: db}
}

const platformColumns = `id, name, type, api_key, api_secret, status, health_status, last_synced, settings, created_at, updated_at`

func scanPlatform(row interface{ Scan(...interface{}) error }) (*models.Platform, error) {
	var p models.Platform
	var apiKey, apiSecret sql.NullString
	var lastSynced sql.NullTime
	var settingsJSON []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Type,
		&apiKey,
		&apiSecret,
		&p.Status,
		&p.HealthStatus,
		&lastSynced,
		&settingsJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.APIKey = apiKey.String
	p.APISecret = apiSecret.String
	if lastSynced.Valid {
		p.LastSynced = &lastSynced.Time
	}
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &p.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	return &p, nil
}

func (r *PlatformRepository) ListPlatforms(ctx context.Context) ([]models.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM platforms ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	defer rows.Close()

	platforms := []models.Platform{}
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan platform: %w", err)
		}
		platforms = append(platforms, *p)
	}
	return platforms, rows.Err()
}

func (r *PlatformRepository) GetPlatform(ctx context.Context, id string) (*models.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM platforms WHERE id = $1`

	p, err := scanPlatform(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform: %w", err)
	}
	return p, nil
}

func (r *PlatformRepository) GetPlatformByName(ctx context.Context, name string) (*models.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM platforms WHERE LOWER(name) = LOWER($1)`

	p, err := scanPlatform(r.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform by name: %w", err)
	}
	return p, nil
}

func (r *PlatformRepository) CreatePlatform(ctx context.Context, p models.Platform) (*models.Platform, error) {
	p.ID = uuid.New().String()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.PlatformStatusDisconnected
	}
	if p.HealthStatus == "" {
		p.HealthStatus = models.HealthStatusHealthy
	}

	var settingsJSON []byte
	var err error
	if p.Settings != nil {
		settingsJSON, err = json.Marshal(p.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal settings: %w", err)
		}
	}

	query := `
		INSERT INTO platforms (id, name, type, api_key, api_secret, status, health_status, last_synced, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Type, nullString(p.APIKey), nullString(p.APISecret),
		p.Status, p.HealthStatus, nullTime(p.LastSynced), settingsJSON, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return nil, storage.ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create platform: %w", err)
	}
	return &p, nil
}

func (r *PlatformRepository) UpdatePlatform(ctx context.Context, id string, upd models.PlatformUpdate) (*models.Platform, error) {
	current, err := r.GetPlatform(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if upd.Name != nil {
		current.Name = *upd.Name
	}
	if upd.Type != nil {
		current.Type = *upd.Type
	}
	if upd.APIKey != nil {
		current.APIKey = *upd.APIKey
	}
	if upd.APISecret != nil {
		current.APISecret = *upd.APISecret
	}
	if upd.Status != nil {
		current.Status = *upd.Status
	}
	if upd.HealthStatus != nil {
		current.HealthStatus = *upd.HealthStatus
	}
	if upd.LastSynced != nil {
		t := *upd.LastSynced
		current.LastSynced = &t
	}
	if upd.Settings != nil {
		current.Settings = upd.Settings
	}
	current.UpdatedAt = time.Now()

	var settingsJSON []byte
	if current.Settings != nil {
		settingsJSON, err = json.Marshal(current.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal settings: %w", err)
		}
	}

	query := `
		UPDATE platforms
		SET name = $2, type = $3, api_key = $4, api_secret = $5, status = $6,
		    health_status = $7, last_synced = $8, settings = $9, updated_at = $10
		WHERE id = $1
	`

	_, err = r.db.ExecContext(ctx, query,
		id, current.Name, current.Type, nullString(current.APIKey), nullString(current.APISecret),
		current.Status, current.HealthStatus, nullTime(current.LastSynced), settingsJSON, current.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return nil, storage.ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to update platform: %w", err)
	}
	return current, nil
}

func (r *PlatformRepository) DeletePlatform(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM platforms WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete platform: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
