package repositories

import (
	"context"
	"database/sql"

	"github.com/fitclash/tournament-core/models"
)

// AuditRepository appends to the status transition log. The table is
// append-only: there are deliberately no update or delete methods.
type AuditRepository interface {
	Insert(ctx context.Context, exec SQLExecutor, row *models.StatusTransition) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.StatusTransition, error)
}

type postgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) AuditRepository {
	return &postgresAuditRepository{db: db}
}

func (r *postgresAuditRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAuditRepository) Insert(ctx context.Context, exec SQLExecutor, row *models.StatusTransition) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO status_transitions (tournament_id, from_status, to_status, actor_id, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return executor.QueryRowContext(ctx, query,
		row.TournamentID, row.FromStatus, row.ToStatus, row.ActorID, row.Reason,
	).Scan(&row.ID, &row.CreatedAt)
}

func (r *postgresAuditRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.StatusTransition, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, from_status, to_status, actor_id, reason, created_at
		FROM status_transitions
		WHERE tournament_id = $1
		ORDER BY id ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transitions := make([]*models.StatusTransition, 0)
	for rows.Next() {
		t := &models.StatusTransition{}
		if err := rows.Scan(&t.ID, &t.TournamentID, &t.FromStatus, &t.ToStatus, &t.ActorID, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
