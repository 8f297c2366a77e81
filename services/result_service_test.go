package services

import (
	"errors"
	"testing"

	"github.com/fitclash/tournament-core/models"
)

func TestValidateEntriesCoversRoster(t *testing.T) {
	sess := &models.Session{ID: 1, ParticipantIDs: []int64{1, 2}}

	if err := validateEntries(sess, map[int]ResultEntryInput{1: {Value: 2}, 2: {Value: 1}}); err != nil {
		t.Errorf("complete payload rejected: %v", err)
	}

	err := validateEntries(sess, map[int]ResultEntryInput{})
	if !errors.Is(err, ErrResultIncomplete) {
		t.Errorf("empty payload: err = %v, want ErrResultIncomplete", err)
	}

	err = validateEntries(sess, map[int]ResultEntryInput{1: {Value: 2}})
	if !errors.Is(err, ErrResultIncomplete) {
		t.Errorf("partial payload: err = %v, want ErrResultIncomplete", err)
	}

	err = validateEntries(sess, map[int]ResultEntryInput{1: {Value: 2}, 2: {Value: 1}, 9: {Value: 5}})
	if !errors.Is(err, ErrParticipantNotInSession) {
		t.Errorf("stranger in payload: err = %v, want ErrParticipantNotInSession", err)
	}
}

func TestDeriveWinnerDesc(t *testing.T) {
	tour := &models.Tournament{Format: models.FormatHeadToHead, Direction: models.DirectionDesc}
	sess := &models.Session{ID: 1, Stage: models.StageLeague, ParticipantIDs: []int64{1, 2}}

	winner, err := deriveWinner(tour, sess, map[int]ResultEntryInput{1: {Value: 3}, 2: {Value: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if winner == nil || *winner != 1 {
		t.Errorf("winner = %v, want 1", winner)
	}
}

func TestDeriveWinnerAscLowestWins(t *testing.T) {
	tour := &models.Tournament{Format: models.FormatHeadToHead, Direction: models.DirectionAsc}
	sess := &models.Session{ID: 1, Stage: models.StageLeague, ParticipantIDs: []int64{1, 2}}

	winner, err := deriveWinner(tour, sess, map[int]ResultEntryInput{1: {Value: 58.2}, 2: {Value: 61.0}})
	if err != nil {
		t.Fatal(err)
	}
	if winner == nil || *winner != 1 {
		t.Errorf("winner = %v, want 1 (faster time)", winner)
	}
}

func TestDeriveWinnerLeagueDraw(t *testing.T) {
	tour := &models.Tournament{Format: models.FormatHeadToHead, Direction: models.DirectionDesc}
	sess := &models.Session{ID: 1, Stage: models.StageLeague, ParticipantIDs: []int64{1, 2}}

	winner, err := deriveWinner(tour, sess, map[int]ResultEntryInput{1: {Value: 2}, 2: {Value: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if winner != nil {
		t.Errorf("drawn league session produced winner %d", *winner)
	}
}

func TestDeriveWinnerKnockoutRejectsDraw(t *testing.T) {
	tour := &models.Tournament{Format: models.FormatHeadToHead, Direction: models.DirectionDesc}
	for _, stage := range []models.SessionStage{models.StageKnockout, models.StageBronze} {
		sess := &models.Session{ID: 1, Stage: stage, ParticipantIDs: []int64{1, 2}}
		_, err := deriveWinner(tour, sess, map[int]ResultEntryInput{1: {Value: 2}, 2: {Value: 2}})
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("stage %s: err = %v, want ErrValidationFailed", stage, err)
		}
	}
}

func TestDeriveWinnerSkipsIndividualFormats(t *testing.T) {
	tour := &models.Tournament{Format: models.FormatIndividualRanking, Direction: models.DirectionDesc}
	sess := &models.Session{ID: 1, Stage: models.StageHeat, ParticipantIDs: []int64{1, 2}}

	winner, err := deriveWinner(tour, sess, map[int]ResultEntryInput{1: {Value: 5}, 2: {Value: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if winner != nil {
		t.Errorf("individual-ranking session produced winner %d", *winner)
	}
}
