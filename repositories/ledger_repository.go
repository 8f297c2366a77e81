package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fitclash/tournament-core/models"
)

var ErrWalletNotFound = errors.New("wallet not found")

// LedgerRepository is the Postgres-backed implementation of the credit/XP
// ledger collaborator. ApplyDelta locks the wallet row before mutating it so
// concurrent distributions for the same participant serialize, and keys every
// write with an idempotency key so a retried call returns the balance the
// first call produced.
type LedgerRepository interface {
	ApplyDelta(ctx context.Context, exec SQLExecutor, userID int, creditDelta int, xpDelta int64, idempotencyKey string) (*models.Wallet, error)
	GetWallet(ctx context.Context, exec SQLExecutor, userID int) (*models.Wallet, error)
}

type postgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) LedgerRepository {
	return &postgresLedgerRepository{db: db}
}

func (r *postgresLedgerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLedgerRepository) ApplyDelta(ctx context.Context, exec SQLExecutor, userID int, creditDelta int, xpDelta int64, idempotencyKey string) (*models.Wallet, error) {
	executor := r.getExecutor(exec)

	wallet, err := r.lockWallet(ctx, executor, userID)
	if err != nil {
		return nil, err
	}

	var existingID int
	err = executor.QueryRowContext(ctx,
		`SELECT id FROM ledger_entries WHERE idempotency_key = $1`, idempotencyKey,
	).Scan(&existingID)
	if err == nil {
		// Already applied; current balance already includes this delta.
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err := executor.ExecContext(ctx,
		`INSERT INTO ledger_entries (user_id, idempotency_key, credit_delta, xp_delta) VALUES ($1, $2, $3, $4)`,
		userID, idempotencyKey, creditDelta, xpDelta,
	); err != nil {
		if isUniqueViolation(err) {
			return wallet, nil
		}
		return nil, fmt.Errorf("failed to record ledger entry %s: %w", idempotencyKey, err)
	}

	wallet.Credits += creditDelta
	wallet.XP += xpDelta
	wallet.UpdatedAt = time.Now()
	if _, err := executor.ExecContext(ctx,
		`UPDATE wallets SET credits = $1, xp = $2, updated_at = $3 WHERE user_id = $4`,
		wallet.Credits, wallet.XP, wallet.UpdatedAt, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to update wallet for user %d: %w", userID, err)
	}
	return wallet, nil
}

// lockWallet fetches the wallet FOR UPDATE, creating it on first touch.
func (r *postgresLedgerRepository) lockWallet(ctx context.Context, executor SQLExecutor, userID int) (*models.Wallet, error) {
	if _, err := executor.ExecContext(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet for user %d: %w", userID, err)
	}

	wallet := &models.Wallet{}
	err := executor.QueryRowContext(ctx,
		`SELECT id, user_id, credits, xp, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&wallet.ID, &wallet.UserID, &wallet.Credits, &wallet.XP, &wallet.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *postgresLedgerRepository) GetWallet(ctx context.Context, exec SQLExecutor, userID int) (*models.Wallet, error) {
	executor := r.getExecutor(exec)
	wallet := &models.Wallet{}
	err := executor.QueryRowContext(ctx,
		`SELECT id, user_id, credits, xp, updated_at FROM wallets WHERE user_id = $1`, userID,
	).Scan(&wallet.ID, &wallet.UserID, &wallet.Credits, &wallet.XP, &wallet.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return wallet, nil
}
