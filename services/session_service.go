package services

import (
	"context"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
)

// SessionService is the read side of the schedule. Writes go through the
// bracket and result services.
type SessionService interface {
	GetByID(ctx context.Context, sessionID int) (*models.Session, error)
	ListByTournament(ctx context.Context, tournamentID int, filter repositories.ListSessionsFilter) ([]*models.Session, error)
}

type sessionService struct {
	tournamentRepo repositories.TournamentRepository
	sessionRepo    repositories.SessionRepository
}

func NewSessionService(tournamentRepo repositories.TournamentRepository, sessionRepo repositories.SessionRepository) SessionService {
	return &sessionService{tournamentRepo: tournamentRepo, sessionRepo: sessionRepo}
}

func (s *sessionService) GetByID(ctx context.Context, sessionID int) (*models.Session, error) {
	sess, err := s.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if res, err := sess.ParseResult(); err == nil {
		sess.Result = res
	}
	return sess, nil
}

func (s *sessionService) ListByTournament(ctx context.Context, tournamentID int, filter repositories.ListSessionsFilter) ([]*models.Session, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.ListByTournament(ctx, nil, tournamentID, filter)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if res, err := sess.ParseResult(); err == nil {
			sess.Result = res
		}
	}
	return sessions, nil
}
