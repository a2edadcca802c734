package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfauto/marketer/internal/models"
)

// WalletRepository tracks the withdrawable balance (a single ledger row)
// and the payout history.
type WalletRepository struct {
	db *sql.DB
}

// NewWalletRepository creates a new wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Balance(ctx context.Context) (models.Cents, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `SELECT balance_cents FROM wallet WHERE id = 1`).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return models.Cents(balance), nil
}

// AdjustBalance applies the delta atomically in SQL and returns the new
// balance, so concurrent adjustments cannot lose updates.
func (r *WalletRepository) AdjustBalance(ctx context.Context, delta models.Cents) (models.Cents, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE wallet SET balance_cents = balance_cents + $1 WHERE id = 1 RETURNING balance_cents`,
		int64(delta),
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return models.Cents(balance), nil
}

func (r *WalletRepository) AddWithdrawal(ctx context.Context, w models.Withdrawal) (*models.Withdrawal, error) {
	w.ID = uuid.New().String()
	if w.RequestedAt.IsZero() {
		w.RequestedAt = time.Now()
	}

	query := `
		INSERT INTO withdrawals (id, amount_cents, method, status, requested_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, w.ID, int64(w.Amount), w.Method, w.Status, w.RequestedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add withdrawal: %w", err)
	}
	return &w, nil
}

func (r *WalletRepository) ListWithdrawalsSince(ctx context.Context, since time.Time) ([]models.Withdrawal, error) {
	query := `
		SELECT id, amount_cents, method, status, requested_at
		FROM withdrawals
		WHERE requested_at >= $1
		ORDER BY requested_at
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := []models.Withdrawal{}
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.ID, &w.Amount, &w.Method, &w.Status, &w.RequestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}
