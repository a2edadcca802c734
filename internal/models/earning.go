package models

import "time"

// PlatformEarning is one dated row in the per-platform earnings ledger.
// Reporting reads these; only the workflow engine writes them, when an
// action step records revenue.
type PlatformEarning struct {
	ID          string    `json:"id"`
	PlatformID  string    `json:"platform_id"`
	Date        time.Time `json:"date"`
	Amount      Cents     `json:"amount_cents"`
	Commissions Cents     `json:"commissions_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// Withdrawal is a user-initiated payout request from the wallet.
type Withdrawal struct {
	ID          string    `json:"id"`
	Amount      Cents     `json:"amount_cents"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}
