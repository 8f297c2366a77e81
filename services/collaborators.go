package services

import (
	"context"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
)

// External collaborator surfaces. The core consumes these through interfaces
// so the Postgres-backed defaults in repositories/ can be swapped for remote
// services without touching the engines.

// RosterProvider yields the checked-in participant ids for a tournament, in
// check-in order. The enrollment repository is the in-repo implementation.
type RosterProvider interface {
	CheckedInParticipants(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]int, error)
}

// CreditLedger applies a signed credit/XP delta under an idempotency key and
// returns the resulting balance. Implementations must be idempotent on the
// key and are expected to lock the participant's balance row.
type CreditLedger interface {
	ApplyDelta(ctx context.Context, exec repositories.SQLExecutor, userID int, creditDelta int, xpDelta int64, idempotencyKey string) (*models.Wallet, error)
}

// BadgeAwardResult distinguishes a fresh award from an idempotent replay.
type BadgeAwardResult string

const (
	BadgeAwarded       BadgeAwardResult = "awarded"
	BadgeAlreadyExists BadgeAwardResult = "already_exists"
)

// BadgeStore awards a badge at most once per (participant, tournament, type).
type BadgeStore interface {
	Award(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int, badge models.BadgeType, idempotencyKey string) (BadgeAwardResult, error)
}

// Notifier is the fire-and-forget notification hook. Implementations must
// never block or fail the calling transaction.
type Notifier interface {
	Notify(tournamentID int, event string, payload interface{})
}

// rosterFromEnrollments adapts the enrollment repository to RosterProvider.
type rosterFromEnrollments struct {
	enrollments repositories.EnrollmentRepository
}

func NewEnrollmentRoster(enrollments repositories.EnrollmentRepository) RosterProvider {
	return &rosterFromEnrollments{enrollments: enrollments}
}

func (r *rosterFromEnrollments) CheckedInParticipants(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]int, error) {
	return r.enrollments.ListCheckedIn(ctx, exec, tournamentID)
}

// badgeStoreFromRewards adapts the reward repository: a badge is a reward
// record of kind badge, unique on its idempotency key.
type badgeStoreFromRewards struct {
	rewards repositories.RewardRepository
}

func NewRewardBadgeStore(rewards repositories.RewardRepository) BadgeStore {
	return &badgeStoreFromRewards{rewards: rewards}
}

func (b *badgeStoreFromRewards) Award(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int, badge models.BadgeType, idempotencyKey string) (BadgeAwardResult, error) {
	badgeStr := string(badge)
	rec := &models.RewardRecord{
		IdempotencyKey: idempotencyKey,
		SourceType:     SourceTournament,
		SourceID:       tournamentID,
		ParticipantID:  userID,
		Kind:           models.RewardBadge,
		Badge:          &badgeStr,
	}
	_, created, err := b.rewards.InsertIfAbsent(ctx, exec, rec)
	if err != nil {
		return "", err
	}
	if created {
		return BadgeAwarded, nil
	}
	return BadgeAlreadyExists, nil
}
