package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfauto/marketer/internal/models"
)

// EarningRepository is the per-platform earnings ledger.
type EarningRepository struct {
	db *sql.DB
}

// NewEarningRepository creates a new earning repository.
func NewEarningRepository(db *sql.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

func (r *EarningRepository) AddEarning(ctx context.Context, e models.PlatformEarning) (*models.PlatformEarning, error) {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now()
	if e.Date.IsZero() {
		e.Date = e.CreatedAt
	}

	query := `
		INSERT INTO platform_earnings (id, platform_id, date, amount_cents, commissions_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query, e.ID, e.PlatformID, e.Date, int64(e.Amount), int64(e.Commissions), e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add earning: %w", err)
	}
	return &e, nil
}

func (r *EarningRepository) ListEarnings(ctx context.Context, platformID string, from, to time.Time) ([]models.PlatformEarning, error) {
	query := `
		SELECT id, platform_id, date, amount_cents, commissions_cents, created_at
		FROM platform_earnings
		WHERE date >= $1 AND date <= $2
	`
	args := []interface{}{from, to}

	if platformID != "" {
		query += " AND platform_id = $3"
		args = append(args, platformID)
	}
	query += " ORDER BY date"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	defer rows.Close()

	earnings := []models.PlatformEarning{}
	for rows.Next() {
		var e models.PlatformEarning
		if err := rows.Scan(&e.ID, &e.PlatformID, &e.Date, &e.Amount, &e.Commissions, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earning: %w", err)
		}
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}
