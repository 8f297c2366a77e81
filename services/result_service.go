package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
)

// ResultEntryInput is one participant's raw measurement in a submission.
// Placement is only meaningful for placement-scored tournaments.
type ResultEntryInput struct {
	Value     float64 `json:"value"`
	Placement int     `json:"placement,omitempty"`
}

type SubmitResultInput struct {
	Entries map[int]ResultEntryInput `json:"entries"`
	ActorID int                      `json:"-"`
	// Override lets an admin resubmit over an existing result or submit for
	// a session they are not part of.
	Override bool `json:"-"`
}

type ResultService interface {
	SubmitResult(ctx context.Context, sessionID int, in SubmitResultInput) (*models.Session, error)
}

type resultService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	sessionRepo    repositories.SessionRepository
	ranking        RankingService
	notifier       Notifier
}

func NewResultService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	sessionRepo repositories.SessionRepository,
	ranking RankingService,
	notifier Notifier,
) ResultService {
	return &resultService{
		db:             db,
		tournamentRepo: tournamentRepo,
		sessionRepo:    sessionRepo,
		ranking:        ranking,
		notifier:       notifier,
	}
}

// SubmitResult records a full result payload for one session and recomputes
// the tournament ranking in the same transaction. The tournament row lock
// serializes submissions against transitions and other submissions.
func (s *resultService) SubmitResult(ctx context.Context, sessionID int, in SubmitResultInput) (*models.Session, error) {
	var updated *models.Session
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		sess, err := s.sessionRepo.GetByID(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, sess.TournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusInProgress {
			return fmt.Errorf("tournament %d: %w", t.ID, ErrTournamentNotActive)
		}
		if sess.Status == models.SessionCancelled {
			return fmt.Errorf("%w: session %d is cancelled", ErrValidationFailed, sessionID)
		}
		if sess.HasResult() && !in.Override {
			return fmt.Errorf("session %d: %w", sessionID, ErrResultAlreadyRecorded)
		}
		if !in.Override && !sess.HasParticipant(in.ActorID) {
			return fmt.Errorf("session %d, user %d: %w", sessionID, in.ActorID, ErrParticipantNotInSession)
		}

		if err := validateEntries(sess, in.Entries); err != nil {
			return err
		}

		now := time.Now().UTC()
		result := models.SessionResult{Entries: map[string]models.ResultEntry{}}
		for pid, entry := range in.Entries {
			result.Entries[fmt.Sprintf("%d", pid)] = models.ResultEntry{
				Value:       entry.Value,
				Placement:   entry.Placement,
				SubmittedAt: now,
			}
		}
		if err := sess.SetResult(result); err != nil {
			return err
		}

		winner, err := deriveWinner(t, sess, in.Entries)
		if err != nil {
			return err
		}
		sess.WinnerID = winner

		if err := s.sessionRepo.UpdateResult(ctx, tx, sess); err != nil {
			return err
		}
		if _, err := s.ranking.RecomputeWithin(ctx, tx, t); err != nil {
			return err
		}
		updated = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(updated.TournamentID, "result_submitted", updated)
	return updated, nil
}

// validateEntries requires the payload to cover exactly the session's
// participant list: no strangers, no gaps.
func validateEntries(sess *models.Session, entries map[int]ResultEntryInput) error {
	if len(entries) == 0 {
		return fmt.Errorf("session %d: %w", sess.ID, ErrResultIncomplete)
	}
	for pid := range entries {
		if !sess.HasParticipant(pid) {
			return fmt.Errorf("session %d, participant %d: %w", sess.ID, pid, ErrParticipantNotInSession)
		}
	}
	for _, pid := range sess.ParticipantIDs {
		if _, ok := entries[int(pid)]; !ok {
			return fmt.Errorf("session %d missing entry for participant %d: %w", sess.ID, pid, ErrResultIncomplete)
		}
	}
	return nil
}

// deriveWinner decides the winner of a two-participant head-to-head session
// from the submitted values and the tournament's ranking direction. A draw
// leaves the winner unset, except in elimination stages where a decided
// winner is mandatory.
func deriveWinner(t *models.Tournament, sess *models.Session, entries map[int]ResultEntryInput) (*int, error) {
	if t.Format != models.FormatHeadToHead || len(sess.ParticipantIDs) != 2 {
		return nil, nil
	}
	p1, p2 := int(sess.ParticipantIDs[0]), int(sess.ParticipantIDs[1])
	v1, v2 := entries[p1].Value, entries[p2].Value

	if v1 == v2 {
		if sess.Stage == models.StageKnockout || sess.Stage == models.StageBronze {
			return nil, fmt.Errorf("%w: elimination session %d cannot end in a draw", ErrValidationFailed, sess.ID)
		}
		return nil, nil
	}

	firstWins := v1 > v2
	if t.Direction == models.DirectionAsc {
		firstWins = v1 < v2
	}
	if firstWins {
		return &p1, nil
	}
	return &p2, nil
}
