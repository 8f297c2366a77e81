package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fitclash/tournament-core/models"
)

var ErrRewardRecordNotFound = errors.New("reward record not found")

type RewardRepository interface {
	// InsertIfAbsent writes the record unless its idempotency key already
	// exists. Returns the stored record and whether this call created it.
	// Existing records are returned as-is: distribution never updates a
	// reward in place.
	InsertIfAbsent(ctx context.Context, exec SQLExecutor, rec *models.RewardRecord) (*models.RewardRecord, bool, error)
	GetByKey(ctx context.Context, exec SQLExecutor, idempotencyKey string) (*models.RewardRecord, error)
	ListBySource(ctx context.Context, exec SQLExecutor, sourceType string, sourceID int) ([]*models.RewardRecord, error)
	ListByParticipant(ctx context.Context, exec SQLExecutor, participantID int) ([]*models.RewardRecord, error)
}

type postgresRewardRepository struct {
	db *sql.DB
}

func NewPostgresRewardRepository(db *sql.DB) RewardRepository {
	return &postgresRewardRepository{db: db}
}

func (r *postgresRewardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const rewardColumns = `
	id, idempotency_key, source_type, source_id, participant_id, kind,
	credit_amount, xp_amount, skill, skill_delta, badge, created_at`

func (r *postgresRewardRepository) InsertIfAbsent(ctx context.Context, exec SQLExecutor, rec *models.RewardRecord) (*models.RewardRecord, bool, error) {
	executor := r.getExecutor(exec)

	// ON CONFLICT DO NOTHING + re-read keeps this safe even when two
	// distributions race past the tournament row lock: the unique constraint
	// is the second line of defense.
	query := `
		INSERT INTO reward_records (
			idempotency_key, source_type, source_id, participant_id, kind,
			credit_amount, xp_amount, skill, skill_delta, badge
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		rec.IdempotencyKey, rec.SourceType, rec.SourceID, rec.ParticipantID, rec.Kind,
		rec.CreditAmount, rec.XPAmount, rec.Skill, rec.SkillDelta, rec.Badge,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert reward record %s: %w", rec.IdempotencyKey, err)
	}

	existing, err := r.GetByKey(ctx, executor, rec.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *postgresRewardRepository) scanReward(row interface{ Scan(...interface{}) error }) (*models.RewardRecord, error) {
	rec := &models.RewardRecord{}
	err := row.Scan(
		&rec.ID, &rec.IdempotencyKey, &rec.SourceType, &rec.SourceID, &rec.ParticipantID,
		&rec.Kind, &rec.CreditAmount, &rec.XPAmount, &rec.Skill, &rec.SkillDelta,
		&rec.Badge, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRewardRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *postgresRewardRepository) GetByKey(ctx context.Context, exec SQLExecutor, idempotencyKey string) (*models.RewardRecord, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + rewardColumns + ` FROM reward_records WHERE idempotency_key = $1`
	return r.scanReward(executor.QueryRowContext(ctx, query, idempotencyKey))
}

func (r *postgresRewardRepository) ListBySource(ctx context.Context, exec SQLExecutor, sourceType string, sourceID int) ([]*models.RewardRecord, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + rewardColumns + ` FROM reward_records WHERE source_type = $1 AND source_id = $2 ORDER BY id ASC`
	return r.listRewards(ctx, executor, query, sourceType, sourceID)
}

func (r *postgresRewardRepository) ListByParticipant(ctx context.Context, exec SQLExecutor, participantID int) ([]*models.RewardRecord, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + rewardColumns + ` FROM reward_records WHERE participant_id = $1 ORDER BY id DESC`
	return r.listRewards(ctx, executor, query, participantID)
}

func (r *postgresRewardRepository) listRewards(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.RewardRecord, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.RewardRecord, 0)
	for rows.Next() {
		rec, scanErr := r.scanReward(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
