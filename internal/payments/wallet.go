// Package payments handles the withdrawable wallet: balance queries and
// withdrawal requests under the daily payout limit. Gateway settlement is an
// injected interface so the service stays testable.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/storage"
)

// DailyWithdrawalLimit caps payouts per rolling calendar day at $500.
const DailyWithdrawalLimit models.Cents = 50000

// ErrInsufficientBalance rejects withdrawals above the current balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// LimitError rejects a withdrawal that would exceed the daily limit. It
// carries how much can still be withdrawn today so the API can surface it.
type LimitError struct {
	Remaining models.Cents
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("daily withdrawal limit reached, %s remaining today", e.Remaining.String())
}

// Gateway settles an approved withdrawal with the payment provider.
type Gateway interface {
	Payout(ctx context.Context, amount models.Cents, method string) error
}

// NoopGateway approves every payout without calling anywhere. Used in
// development and tests.
type NoopGateway struct{}

func (NoopGateway) Payout(ctx context.Context, amount models.Cents, method string) error {
	return nil
}

// Service validates and executes withdrawals against the wallet store.
type Service struct {
	store   storage.Store
	gateway Gateway
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a wallet service.
func NewService(store storage.Store, gateway Gateway, logger *slog.Logger) *Service {
	return &Service{store: store, gateway: gateway, logger: logger, now: time.Now}
}

// SetClock overrides the service clock. Test use only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Balance returns the current withdrawable balance.
func (s *Service) Balance(ctx context.Context) (models.Cents, error) {
	return s.store.Balance(ctx)
}

// RemainingToday returns how much can still be withdrawn before the daily
// limit trips.
func (s *Service) RemainingToday(ctx context.Context) (models.Cents, error) {
	withdrawn, err := s.withdrawnToday(ctx)
	if err != nil {
		return 0, err
	}
	if withdrawn >= DailyWithdrawalLimit {
		return 0, nil
	}
	return DailyWithdrawalLimit - withdrawn, nil
}

// Withdraw validates the request against the balance and daily limit, then
// settles and records it. A rejected request leaves the balance untouched.
func (s *Service) Withdraw(ctx context.Context, amount models.Cents, method string) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %s", amount.String())
	}

	balance, err := s.store.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if amount > balance {
		return nil, ErrInsufficientBalance
	}

	withdrawn, err := s.withdrawnToday(ctx)
	if err != nil {
		return nil, err
	}
	if withdrawn+amount > DailyWithdrawalLimit {
		remaining := DailyWithdrawalLimit - withdrawn
		if remaining < 0 {
			remaining = 0
		}
		return nil, &LimitError{Remaining: remaining}
	}

	if err := s.gateway.Payout(ctx, amount, method); err != nil {
		return nil, fmt.Errorf("gateway payout: %w", err)
	}

	if _, err := s.store.AdjustBalance(ctx, -amount); err != nil {
		return nil, fmt.Errorf("debit balance: %w", err)
	}

	w, err := s.store.AddWithdrawal(ctx, models.Withdrawal{
		Amount:      amount,
		Method:      method,
		Status:      "completed",
		RequestedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("record withdrawal: %w", err)
	}

	s.logger.Info("withdrawal completed", "amount", amount.String(), "method", method)
	return w, nil
}

// withdrawnToday sums completed withdrawals since local midnight.
func (s *Service) withdrawnToday(ctx context.Context) (models.Cents, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	withdrawals, err := s.store.ListWithdrawalsSince(ctx, midnight)
	if err != nil {
		return 0, fmt.Errorf("list withdrawals: %w", err)
	}

	var total models.Cents
	for _, w := range withdrawals {
		total += w.Amount
	}
	return total, nil
}
