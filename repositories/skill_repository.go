package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fitclash/tournament-core/models"
)

var ErrSkillRatingNotFound = errors.New("skill rating not found")

type SkillRepository interface {
	// GetForUpdate reads the current rating under a row lock. Sequential
	// tournaments chain EMA state, so the update must start from the value
	// as it stands inside this transaction, not a stale read.
	GetForUpdate(ctx context.Context, exec SQLExecutor, userID int, skill string) (*models.SkillRating, error)
	Upsert(ctx context.Context, exec SQLExecutor, rating *models.SkillRating) error
	ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.SkillRating, error)
	InsertDelta(ctx context.Context, exec SQLExecutor, delta *models.SkillDelta) error
	ListDeltasByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.SkillDelta, error)
}

type postgresSkillRepository struct {
	db *sql.DB
}

func NewPostgresSkillRepository(db *sql.DB) SkillRepository {
	return &postgresSkillRepository{db: db}
}

func (r *postgresSkillRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSkillRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, userID int, skill string) (*models.SkillRating, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, user_id, skill, rating, updated_at
		FROM skill_ratings
		WHERE user_id = $1 AND skill = $2
		FOR UPDATE`
	rating := &models.SkillRating{}
	err := executor.QueryRowContext(ctx, query, userID, skill).Scan(
		&rating.ID, &rating.UserID, &rating.Skill, &rating.Rating, &rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkillRatingNotFound
		}
		return nil, err
	}
	return rating, nil
}

func (r *postgresSkillRepository) Upsert(ctx context.Context, exec SQLExecutor, rating *models.SkillRating) error {
	executor := r.getExecutor(exec)
	rating.UpdatedAt = time.Now()
	query := `
		INSERT INTO skill_ratings (user_id, skill, rating, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, skill) DO UPDATE SET rating = $3, updated_at = $4
		RETURNING id`
	return executor.QueryRowContext(ctx, query,
		rating.UserID, rating.Skill, rating.Rating, rating.UpdatedAt,
	).Scan(&rating.ID)
}

func (r *postgresSkillRepository) ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.SkillRating, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, user_id, skill, rating, updated_at
		FROM skill_ratings
		WHERE user_id = $1
		ORDER BY skill ASC`
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]*models.SkillRating, 0)
	for rows.Next() {
		rating := &models.SkillRating{}
		if err := rows.Scan(&rating.ID, &rating.UserID, &rating.Skill, &rating.Rating, &rating.UpdatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

func (r *postgresSkillRepository) InsertDelta(ctx context.Context, exec SQLExecutor, delta *models.SkillDelta) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO skill_deltas (tournament_id, user_id, skill, rating_before, rating_after, delta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return executor.QueryRowContext(ctx, query,
		delta.TournamentID, delta.UserID, delta.Skill, delta.Before, delta.After, delta.Delta,
	).Scan(&delta.ID, &delta.CreatedAt)
}

func (r *postgresSkillRepository) ListDeltasByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.SkillDelta, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, user_id, skill, rating_before, rating_after, delta, created_at
		FROM skill_deltas
		WHERE tournament_id = $1
		ORDER BY user_id ASC, skill ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deltas := make([]*models.SkillDelta, 0)
	for rows.Next() {
		d := &models.SkillDelta{}
		if err := rows.Scan(&d.ID, &d.TournamentID, &d.UserID, &d.Skill, &d.Before, &d.After, &d.Delta, &d.CreatedAt); err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}
	return deltas, rows.Err()
}
