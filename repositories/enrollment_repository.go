package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fitclash/tournament-core/models"
)

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentConflict = errors.New("user is already enrolled in this tournament")
)

type EnrollmentRepository interface {
	Create(ctx context.Context, e *models.Enrollment) error
	GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.Enrollment, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Enrollment, error)
	// ListCheckedIn returns user ids of eligible, checked-in participants in
	// check-in order. This is the roster the generators consume.
	ListCheckedIn(ctx context.Context, exec SQLExecutor, tournamentID int) ([]int, error)
	SetCheckedIn(ctx context.Context, exec SQLExecutor, tournamentID, userID int, at time.Time) error
}

type postgresEnrollmentRepository struct {
	db *sql.DB
}

func NewPostgresEnrollmentRepository(db *sql.DB) EnrollmentRepository {
	return &postgresEnrollmentRepository{db: db}
}

func (r *postgresEnrollmentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) error {
	query := `
		INSERT INTO enrollments (tournament_id, user_id, eligible, paid, checked_in_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		e.TournamentID, e.UserID, e.Eligible, e.Paid, e.CheckedInAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEnrollmentConflict
		}
		return err
	}
	return nil
}

func (r *postgresEnrollmentRepository) scanEnrollment(row interface{ Scan(...interface{}) error }) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	err := row.Scan(&e.ID, &e.TournamentID, &e.UserID, &e.Eligible, &e.Paid, &e.CheckedInAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresEnrollmentRepository) GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.Enrollment, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, user_id, eligible, paid, checked_in_at, created_at
		FROM enrollments
		WHERE tournament_id = $1 AND user_id = $2`
	return r.scanEnrollment(executor.QueryRowContext(ctx, query, tournamentID, userID))
}

func (r *postgresEnrollmentRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Enrollment, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, user_id, eligible, paid, checked_in_at, created_at
		FROM enrollments
		WHERE tournament_id = $1
		ORDER BY created_at ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]*models.Enrollment, 0)
	for rows.Next() {
		e, scanErr := r.scanEnrollment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (r *postgresEnrollmentRepository) ListCheckedIn(ctx context.Context, exec SQLExecutor, tournamentID int) ([]int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT user_id
		FROM enrollments
		WHERE tournament_id = $1 AND eligible = TRUE AND checked_in_at IS NOT NULL
		ORDER BY checked_in_at ASC, user_id ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresEnrollmentRepository) SetCheckedIn(ctx context.Context, exec SQLExecutor, tournamentID, userID int, at time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE enrollments SET checked_in_at = $1 WHERE tournament_id = $2 AND user_id = $3`
	result, err := executor.ExecContext(ctx, query, at, tournamentID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEnrollmentNotFound)
}
