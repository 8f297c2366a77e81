package services

import "errors"

// Shared sentinel errors, also used by the HTTP error mapping.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	// State machine
	ErrInvalidTransition    = errors.New("invalid tournament status transition")
	ErrInstructorRequired   = errors.New("an instructor must be assigned before this transition")
	ErrRosterEmpty          = errors.New("no checked-in participants")
	ErrSessionsIncomplete   = errors.New("not every session has a recorded result")
	ErrTournamentNotActive  = errors.New("tournament is not accepting this operation in its current status")
	ErrEnrollmentNotOpen    = errors.New("tournament enrollment is not open")
	ErrCheckInNotOpen       = errors.New("tournament check-in is not open")
	ErrTournamentFinalized  = errors.New("tournament is already in a terminal status")

	// Bracket generation
	ErrRosterMismatch        = errors.New("roster size incompatible with the chosen format")
	ErrBracketAlreadyPlayed  = errors.New("sessions with results exist, bracket cannot be regenerated")
	ErrGroupStageIncomplete  = errors.New("group stage results are incomplete")
	ErrRoundIncomplete       = errors.New("previous round results are incomplete")
	ErrKnockoutNotSeeded     = errors.New("knockout bracket has not been seeded")
	ErrBracketExhausted      = errors.New("bracket is complete, no further rounds to generate")

	// Results
	ErrParticipantNotInSession = errors.New("participant is not part of this session")
	ErrResultAlreadyRecorded   = errors.New("session already has a recorded result")
	ErrResultIncomplete        = errors.New("result payload must cover every session participant")

	// Ranking
	ErrDuplicateRankingConflict = errors.New("concurrent ranking recompute detected")

	// Rewards
	ErrRewardPolicyMissing = errors.New("tournament has no reward policy snapshot")
	ErrLedgerApplyFailure  = errors.New("ledger delta application failed")
)
