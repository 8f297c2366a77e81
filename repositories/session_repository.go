package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fitclash/tournament-core/models"
	"github.com/lib/pq"
)

var (
	ErrSessionNotFound          = errors.New("session not found")
	ErrSessionTournamentInvalid = errors.New("session tournament conflict or invalid")
)

type ListSessionsFilter struct {
	Stage *models.SessionStage
	Round *int
}

type SessionRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, sessions []*models.Session) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Session, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListSessionsFilter) ([]*models.Session, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	CountWithoutResult(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	AnyResultExists(ctx context.Context, exec SQLExecutor, tournamentID int) (bool, error)
	// DeleteAutoGenerated removes resultless auto-generated sessions, used by
	// the regenerate/repair path. Sessions carrying a result are never touched.
	DeleteAutoGenerated(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, s *models.Session) error
}

type postgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

func (r *postgresSessionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const sessionColumns = `
	id, tournament_id, stage, round, order_in_round, group_key,
	participant_ids, result, status, winner_id, auto_generated, created_at`

func (r *postgresSessionRepository) CreateBatch(ctx context.Context, exec SQLExecutor, sessions []*models.Session) error {
	executor := r.getExecutor(exec)
	if len(sessions) == 0 {
		return nil
	}
	query := `
		INSERT INTO sessions (
			tournament_id, stage, round, order_in_round, group_key,
			participant_ids, status, auto_generated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	for _, s := range sessions {
		err := executor.QueryRowContext(ctx, query,
			s.TournamentID, s.Stage, s.Round, s.OrderInRound, s.GroupKey,
			pq.Array(s.ParticipantIDs), s.Status, s.AutoGenerated,
		).Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrSessionTournamentInvalid
			}
			return fmt.Errorf("failed to create session (round %d, order %d): %w", s.Round, s.OrderInRound, err)
		}
	}
	return nil
}

func (r *postgresSessionRepository) scanSession(row interface{ Scan(...interface{}) error }) (*models.Session, error) {
	s := &models.Session{}
	var ids pq.Int64Array
	err := row.Scan(
		&s.ID, &s.TournamentID, &s.Stage, &s.Round, &s.OrderInRound, &s.GroupKey,
		&ids, &s.ResultJSON, &s.Status, &s.WinnerID, &s.AutoGenerated, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	s.ParticipantIDs = []int64(ids)
	return s, nil
}

func (r *postgresSessionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Session, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return r.scanSession(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresSessionRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListSessionsFilter) ([]*models.Session, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	argID := 2

	if filter.Stage != nil {
		query += fmt.Sprintf(" AND stage = $%d", argID)
		args = append(args, *filter.Stage)
		argID++
	}
	if filter.Round != nil {
		query += fmt.Sprintf(" AND round = $%d", argID)
		args = append(args, *filter.Round)
	}

	query += " ORDER BY round ASC, order_in_round ASC, id ASC"

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		s, scanErr := r.scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *postgresSessionRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

func (r *postgresSessionRepository) CountWithoutResult(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE tournament_id = $1 AND result IS NULL AND status != $2`,
		tournamentID, models.SessionCancelled,
	).Scan(&count)
	return count, err
}

func (r *postgresSessionRepository) AnyResultExists(ctx context.Context, exec SQLExecutor, tournamentID int) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE tournament_id = $1 AND result IS NOT NULL)`,
		tournamentID,
	).Scan(&exists)
	return exists, err
}

func (r *postgresSessionRepository) DeleteAutoGenerated(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM sessions WHERE tournament_id = $1 AND auto_generated = TRUE AND result IS NULL`,
		tournamentID,
	)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (r *postgresSessionRepository) UpdateResult(ctx context.Context, exec SQLExecutor, s *models.Session) error {
	executor := r.getExecutor(exec)
	query := `UPDATE sessions SET result = $1, status = $2, winner_id = $3 WHERE id = $4`
	result, err := executor.ExecContext(ctx, query, s.ResultJSON, s.Status, s.WinnerID, s.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSessionNotFound)
}
