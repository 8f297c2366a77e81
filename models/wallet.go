package models

import "time"

// Wallet mirrors the ledger collaborator's balance view for one user.
type Wallet struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Credits   int       `json:"credits" db:"credits"`
	XP        int64     `json:"xp" db:"xp"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LedgerEntry records one applied delta under its idempotency key.
type LedgerEntry struct {
	ID             int       `json:"id" db:"id"`
	UserID         int       `json:"user_id" db:"user_id"`
	IdempotencyKey string    `json:"idempotency_key" db:"idempotency_key"`
	CreditDelta    int       `json:"credit_delta" db:"credit_delta"`
	XPDelta        int64     `json:"xp_delta" db:"xp_delta"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
