package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fitclash/tournament-core/models"
)

var (
	ErrRankingRowNotFound = errors.New("ranking row not found")
	// ErrRankingConflict maps the unique constraint on
	// (tournament_id, participant_id, participant_type): a concurrent
	// recompute slipped between our delete and insert.
	ErrRankingConflict = errors.New("duplicate ranking row for participant")
)

type RankingRepository interface {
	// ReplaceForTournament swaps the tournament's entire ranking in one shot:
	// delete all rows, insert the new set. Callers run it inside a
	// transaction so readers never observe a partial ranking.
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, rows []*models.RankingRow) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.RankingRow, error)
}

type postgresRankingRepository struct {
	db *sql.DB
}

func NewPostgresRankingRepository(db *sql.DB) RankingRepository {
	return &postgresRankingRepository{db: db}
}

func (r *postgresRankingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRankingRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, rows []*models.RankingRow) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx,
		`DELETE FROM ranking_rows WHERE tournament_id = $1`, tournamentID,
	); err != nil {
		return fmt.Errorf("failed to clear ranking for tournament %d: %w", tournamentID, err)
	}

	query := `
		INSERT INTO ranking_rows (
			tournament_id, participant_id, participant_type, rank, best_score, final_value, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	now := time.Now()
	for _, row := range rows {
		row.TournamentID = tournamentID
		row.UpdatedAt = now
		err := executor.QueryRowContext(ctx, query,
			row.TournamentID, row.ParticipantID, row.ParticipantType,
			row.Rank, row.BestScore, row.FinalValue, row.UpdatedAt,
		).Scan(&row.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrRankingConflict
			}
			return fmt.Errorf("failed to insert ranking row for participant %d: %w", row.ParticipantID, err)
		}
	}
	return nil
}

func (r *postgresRankingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.RankingRow, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, participant_id, participant_type, rank, best_score, final_value, updated_at
		FROM ranking_rows
		WHERE tournament_id = $1
		ORDER BY rank ASC, participant_id ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*models.RankingRow, 0)
	for rows.Next() {
		row := &models.RankingRow{}
		if err := rows.Scan(
			&row.ID, &row.TournamentID, &row.ParticipantID, &row.ParticipantType,
			&row.Rank, &row.BestScore, &row.FinalValue, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
