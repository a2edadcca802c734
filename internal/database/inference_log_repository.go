package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfauto/marketer/internal/models"
)

// InferenceLogRepository records external model calls made by the matcher.
type InferenceLogRepository struct {
	db *sql.DB
}

// NewInferenceLogRepository creates a new inference log repository.
func NewInferenceLogRepository(db *sql.DB) *InferenceLogRepository {
	return &InferenceLogRepository{db: db}
}

func (r *InferenceLogRepository) CreateInferenceLog(ctx context.Context, log models.InferenceLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO inference_logs (id, provider, model, operation, tokens_used, latency_ms, status, error_message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.Provider, log.Model, log.Operation, log.TokensUsed,
		log.LatencyMs, log.Status, log.ErrorMessage, nullString(log.Metadata), log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inference log: %w", err)
	}
	return nil
}

func (r *InferenceLogRepository) ListInferenceLogs(ctx context.Context, limit int) ([]models.InferenceLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, provider, model, operation, tokens_used, latency_ms, status, error_message, metadata, created_at
		FROM inference_logs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list inference logs: %w", err)
	}
	defer rows.Close()

	logs := []models.InferenceLog{}
	for rows.Next() {
		var log models.InferenceLog
		var metadata sql.NullString
		err := rows.Scan(&log.ID, &log.Provider, &log.Model, &log.Operation, &log.TokensUsed,
			&log.LatencyMs, &log.Status, &log.ErrorMessage, &metadata, &log.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inference log: %w", err)
		}
		log.Metadata = metadata.String
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
