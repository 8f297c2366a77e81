package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/rankings"
	"github.com/fitclash/tournament-core/repositories"
)

// RankingService recomputes standings from scratch on every call and swaps
// them in atomically. RecomputeWithin is the in-transaction path used by
// result submission and tournament completion; Recompute opens its own
// transaction for the standalone endpoint.
type RankingService interface {
	Recompute(ctx context.Context, tournamentID int) ([]models.RankingRow, error)
	RecomputeWithin(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) ([]models.RankingRow, error)
	List(ctx context.Context, tournamentID int) ([]*models.RankingRow, error)
}

type rankingService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	sessionRepo    repositories.SessionRepository
	rankingRepo    repositories.RankingRepository
}

func NewRankingService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	sessionRepo repositories.SessionRepository,
	rankingRepo repositories.RankingRepository,
) RankingService {
	return &rankingService{
		db:             db,
		tournamentRepo: tournamentRepo,
		sessionRepo:    sessionRepo,
		rankingRepo:    rankingRepo,
	}
}

func (s *rankingService) Recompute(ctx context.Context, tournamentID int) ([]models.RankingRow, error) {
	var rows []models.RankingRow
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		rows, err = s.RecomputeWithin(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// rankingSavepoint isolates the replace attempt inside the caller's
// transaction. A unique violation aborts the whole Postgres transaction
// otherwise, and the retry's statements would all fail.
const rankingSavepoint = "ranking_replace"

// RecomputeWithin expects the caller to hold the tournament row lock inside
// an open transaction. A unique violation means another writer slipped
// between delete and insert; the attempt rolls back to its savepoint, one
// retry re-reads fresh sessions, a second conflict surfaces as
// ErrDuplicateRankingConflict.
func (s *rankingService) RecomputeWithin(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) ([]models.RankingRow, error) {
	cfg, err := tournament.Config()
	if err != nil {
		return nil, fmt.Errorf("tournament %d: malformed config: %w", tournament.ID, err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		sessions, err := s.sessionRepo.ListByTournament(ctx, exec, tournament.ID, repositories.ListSessionsFilter{})
		if err != nil {
			return nil, err
		}
		flat := make([]models.Session, len(sessions))
		for i, sp := range sessions {
			flat[i] = *sp
		}

		rows, err := rankings.Compute(rankings.Input{
			Format:    tournament.Format,
			Mode:      tournament.ScoringMode,
			Direction: tournament.Direction,
			Config:    cfg,
			Sessions:  flat,
		})
		if err != nil {
			return nil, fmt.Errorf("tournament %d: computing ranking: %w", tournament.ID, err)
		}

		ptrs := make([]*models.RankingRow, len(rows))
		for i := range rows {
			rows[i].TournamentID = tournament.ID
			rows[i].ParticipantType = models.ParticipantUser
			ptrs[i] = &rows[i]
		}

		if exec != nil {
			if _, err := exec.ExecContext(ctx, "SAVEPOINT "+rankingSavepoint); err != nil {
				return nil, err
			}
		}
		err = s.rankingRepo.ReplaceForTournament(ctx, exec, tournament.ID, ptrs)
		if err == nil {
			if exec != nil {
				if _, err := exec.ExecContext(ctx, "RELEASE SAVEPOINT "+rankingSavepoint); err != nil {
					return nil, err
				}
			}
			return rows, nil
		}
		if !errors.Is(err, repositories.ErrRankingConflict) {
			return nil, err
		}
		if exec != nil {
			if _, rbErr := exec.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+rankingSavepoint); rbErr != nil {
				return nil, rbErr
			}
		}
	}
	return nil, fmt.Errorf("tournament %d: %w", tournament.ID, ErrDuplicateRankingConflict)
}

func (s *rankingService) List(ctx context.Context, tournamentID int) ([]*models.RankingRow, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	return s.rankingRepo.ListByTournament(ctx, nil, tournamentID)
}
