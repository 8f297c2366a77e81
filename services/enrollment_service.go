package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
)

type EnrollmentService interface {
	Enroll(ctx context.Context, tournamentID, userID int) (*models.Enrollment, error)
	CheckIn(ctx context.Context, tournamentID, userID int) (*models.Enrollment, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Enrollment, error)
}

type enrollmentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	enrollmentRepo repositories.EnrollmentRepository
	notifier       Notifier
}

func NewEnrollmentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	enrollmentRepo repositories.EnrollmentRepository,
	notifier Notifier,
) EnrollmentService {
	return &enrollmentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		enrollmentRepo: enrollmentRepo,
		notifier:       notifier,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, tournamentID, userID int) (*models.Enrollment, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusReadyForEnrollment {
		return nil, fmt.Errorf("tournament %d is %s: %w", tournamentID, t.Status, ErrEnrollmentNotOpen)
	}
	enrollment := &models.Enrollment{
		TournamentID: tournamentID,
		UserID:       userID,
		Eligible:     true,
	}
	if err := s.enrollmentRepo.Create(ctx, enrollment); err != nil {
		return nil, err
	}
	s.notifier.Notify(tournamentID, "participant_enrolled", enrollment)
	return enrollment, nil
}

// CheckIn stamps the enrollment. Only checked-in participants reach the
// bracket, and check-in ends when enrollment closes, so the roster is frozen
// before generation ever runs.
func (s *enrollmentService) CheckIn(ctx context.Context, tournamentID, userID int) (*models.Enrollment, error) {
	var enrollment *models.Enrollment
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusReadyForEnrollment {
			return fmt.Errorf("tournament %d is %s: %w", tournamentID, t.Status, ErrCheckInNotOpen)
		}
		if err := s.enrollmentRepo.SetCheckedIn(ctx, tx, tournamentID, userID, time.Now().UTC()); err != nil {
			return err
		}
		enrollment, err = s.enrollmentRepo.GetByTournamentAndUser(ctx, tx, tournamentID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(tournamentID, "participant_checked_in", enrollment)
	return enrollment, nil
}

func (s *enrollmentService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Enrollment, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	return s.enrollmentRepo.ListByTournament(ctx, nil, tournamentID)
}
