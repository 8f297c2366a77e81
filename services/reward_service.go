package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/progression"
	"github.com/fitclash/tournament-core/repositories"
)

const SourceTournament = "tournament"

// rewardNamespace anchors the deterministic idempotency keys. Changing it
// would re-issue every historical reward, so it never changes.
var rewardNamespace = uuid.MustParse("8f1c9d2e-5b7a-4f3c-9e21-6d84a0c3b5f7")

// RewardKey derives the idempotency key for one reward leg. The same
// (tournament, participant, scope) always yields the same key, which is what
// makes redistribution a no-op.
func RewardKey(tournamentID, participantID int, scope string) string {
	name := fmt.Sprintf("%s:%d:participant:%d:%s", SourceTournament, tournamentID, participantID, scope)
	return uuid.NewSHA1(rewardNamespace, []byte(name)).String()
}

const (
	defaultDominantThreshold = 0.5
	defaultDominantAlpha     = 0.30
	defaultSupportingAlpha   = 0.10
)

// skillGrant is one skill's share of a tier's point pool, tagged with the
// EMA step size for its tier. Grants are always processed dominant-first.
type skillGrant struct {
	Skill    string
	Points   float64
	Alpha    float64
	Dominant bool
}

// participantPlan is everything one participant should receive for their
// final rank, before idempotency filtering.
type participantPlan struct {
	ParticipantID int
	Rank          int
	Credits       int
	XP            int64
	Skills        []skillGrant
	Badge         models.BadgeType
}

// BuildRewardPlans maps final ranking rows through the policy tiers. Rows
// outside every tier get nothing. The skill pool splits across the policy's
// weighted skills, heaviest first, weights normalized to sum to one.
func BuildRewardPlans(policy *models.RewardPolicy, rows []*models.RankingRow) []participantPlan {
	plans := make([]participantPlan, 0, len(rows))
	for _, row := range rows {
		tier := policy.TierForRank(row.Rank)
		if tier == nil {
			continue
		}
		plans = append(plans, participantPlan{
			ParticipantID: row.ParticipantID,
			Rank:          row.Rank,
			Credits:       tier.Credits,
			XP:            tier.XP,
			Skills:        splitSkillPool(policy, tier.SkillPoints),
			Badge:         tier.Badge,
		})
	}
	return plans
}

func splitSkillPool(policy *models.RewardPolicy, pool float64) []skillGrant {
	if pool <= 0 || len(policy.SkillWeights) == 0 {
		return nil
	}
	threshold := policy.DominantThreshold
	if threshold <= 0 {
		threshold = defaultDominantThreshold
	}
	dominantAlpha := policy.DominantAlpha
	if dominantAlpha <= 0 {
		dominantAlpha = defaultDominantAlpha
	}
	supportingAlpha := policy.SupportingAlpha
	if supportingAlpha <= 0 {
		supportingAlpha = defaultSupportingAlpha
	}

	total := 0.0
	for _, w := range policy.SkillWeights {
		total += w
	}
	if total <= 0 {
		return nil
	}

	grants := make([]skillGrant, 0, len(policy.SkillWeights))
	for skill, weight := range policy.SkillWeights {
		if weight <= 0 {
			continue
		}
		g := skillGrant{
			Skill:    skill,
			Points:   pool * weight / total,
			Dominant: weight/total >= threshold,
		}
		if g.Dominant {
			g.Alpha = dominantAlpha
		} else {
			g.Alpha = supportingAlpha
		}
		grants = append(grants, g)
	}
	// Heaviest first; ties broken by name so replays walk the same order.
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Points != grants[j].Points {
			return grants[i].Points > grants[j].Points
		}
		return grants[i].Skill < grants[j].Skill
	})
	return grants
}

// RewardService turns a finalized ranking into credit, XP, skill and badge
// awards, each leg exactly once per deterministic key.
type RewardService interface {
	Distribute(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, rows []*models.RankingRow) ([]*models.RewardRecord, error)
	DistributeForTournament(ctx context.Context, tournamentID int) ([]*models.RewardRecord, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.RewardRecord, error)
}

type rewardService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	rankingRepo    repositories.RankingRepository
	rewardRepo     repositories.RewardRepository
	skillRepo      repositories.SkillRepository
	ledger         CreditLedger
	badges         BadgeStore
	notifier       Notifier
}

func NewRewardService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	rankingRepo repositories.RankingRepository,
	rewardRepo repositories.RewardRepository,
	skillRepo repositories.SkillRepository,
	ledger CreditLedger,
	badges BadgeStore,
	notifier Notifier,
) RewardService {
	return &rewardService{
		db:             db,
		tournamentRepo: tournamentRepo,
		rankingRepo:    rankingRepo,
		rewardRepo:     rewardRepo,
		skillRepo:      skillRepo,
		ledger:         ledger,
		badges:         badges,
		notifier:       notifier,
	}
}

// Distribute runs inside the caller's transaction, which also holds the
// tournament row lock. Every leg is guarded by its idempotency key, so a
// partially-failed distribution can simply run again: applied legs no-op,
// missing legs apply.
func (s *rewardService) Distribute(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, rows []*models.RankingRow) ([]*models.RewardRecord, error) {
	policy, err := tournament.RewardPolicy()
	if err != nil {
		return nil, fmt.Errorf("tournament %d: malformed reward policy: %w", tournament.ID, err)
	}
	if policy == nil {
		return nil, fmt.Errorf("tournament %d: %w", tournament.ID, ErrRewardPolicyMissing)
	}

	records := []*models.RewardRecord{}
	for _, plan := range BuildRewardPlans(policy, rows) {
		recs, err := s.applyPlan(ctx, exec, tournament.ID, plan)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func (s *rewardService) applyPlan(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, plan participantPlan) ([]*models.RewardRecord, error) {
	records := []*models.RewardRecord{}

	if plan.Credits != 0 {
		rec, err := s.applyBalance(ctx, exec, tournamentID, plan.ParticipantID, models.RewardCredit, plan.Credits, 0)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if plan.XP != 0 {
		rec, err := s.applyBalance(ctx, exec, tournamentID, plan.ParticipantID, models.RewardXP, 0, plan.XP)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	// Running cap: each applied delta bounds the next, so supporting-skill
	// deltas can never exceed the dominant one even when clamping bites.
	maxAllowed := progression.MaxRating
	for _, grant := range plan.Skills {
		rec, applied, err := s.applySkill(ctx, exec, tournamentID, plan.ParticipantID, grant, maxAllowed)
		if err != nil {
			return nil, err
		}
		if applied < maxAllowed {
			maxAllowed = applied
		}
		if rec != nil {
			records = append(records, rec)
		}
	}

	if plan.Badge != "" {
		key := RewardKey(tournamentID, plan.ParticipantID, "badge:"+string(plan.Badge))
		if _, err := s.badges.Award(ctx, exec, plan.ParticipantID, tournamentID, plan.Badge, key); err != nil {
			return nil, fmt.Errorf("awarding badge %s to user %d: %w", plan.Badge, plan.ParticipantID, err)
		}
	}
	return records, nil
}

// applyBalance writes the reward record and pushes the delta through the
// ledger. Both sides key on the same idempotency key, so replays converge
// even if a previous run recorded the reward but died before the ledger
// write.
func (s *rewardService) applyBalance(ctx context.Context, exec repositories.SQLExecutor, tournamentID, participantID int, kind models.RewardKind, credits int, xp int64) (*models.RewardRecord, error) {
	key := RewardKey(tournamentID, participantID, string(kind))
	rec, _, err := s.rewardRepo.InsertIfAbsent(ctx, exec, &models.RewardRecord{
		IdempotencyKey: key,
		SourceType:     SourceTournament,
		SourceID:       tournamentID,
		ParticipantID:  participantID,
		Kind:           kind,
		CreditAmount:   credits,
		XPAmount:       xp,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.ApplyDelta(ctx, exec, participantID, credits, xp, key); err != nil {
		return nil, fmt.Errorf("user %d, key %s: %w: %v", participantID, key, ErrLedgerApplyFailure, err)
	}
	return rec, nil
}

// applySkill performs one clamped EMA step toward prev+points and snapshots
// the delta. The returned applied value feeds the caller's running cap. An
// existing record means the step already ran; the rating stays untouched.
func (s *rewardService) applySkill(ctx context.Context, exec repositories.SQLExecutor, tournamentID, participantID int, grant skillGrant, maxAllowed float64) (*models.RewardRecord, float64, error) {
	key := RewardKey(tournamentID, participantID, "skill:"+grant.Skill)

	existing, err := s.rewardRepo.GetByKey(ctx, exec, key)
	if err == nil {
		return existing, existing.SkillDelta, nil
	}
	if !errors.Is(err, repositories.ErrRewardRecordNotFound) {
		return nil, 0, err
	}

	prev := progression.BaselineRating
	rating, err := s.skillRepo.GetForUpdate(ctx, exec, participantID, grant.Skill)
	if err == nil {
		prev = rating.Rating
	} else if !errors.Is(err, repositories.ErrSkillRatingNotFound) {
		return nil, 0, err
	}

	next := progression.Update(prev, prev+grant.Points, grant.Alpha)
	applied := next - prev
	if applied > maxAllowed {
		applied = maxAllowed
		next = progression.Clamp(prev + applied)
		applied = next - prev
	}

	if err := s.skillRepo.Upsert(ctx, exec, &models.SkillRating{
		UserID: participantID,
		Skill:  grant.Skill,
		Rating: next,
	}); err != nil {
		return nil, 0, err
	}
	if err := s.skillRepo.InsertDelta(ctx, exec, &models.SkillDelta{
		TournamentID: tournamentID,
		UserID:       participantID,
		Skill:        grant.Skill,
		Before:       prev,
		After:        next,
		Delta:        applied,
	}); err != nil {
		return nil, 0, err
	}

	skill := grant.Skill
	rec, _, err := s.rewardRepo.InsertIfAbsent(ctx, exec, &models.RewardRecord{
		IdempotencyKey: key,
		SourceType:     SourceTournament,
		SourceID:       tournamentID,
		ParticipantID:  participantID,
		Kind:           models.RewardSkill,
		Skill:          &skill,
		SkillDelta:     applied,
	})
	if err != nil {
		return nil, 0, err
	}
	return rec, applied, nil
}

// DistributeForTournament is the admin redistribution endpoint. The
// tournament must already be completed; thanks to the idempotency keys the
// call is safe to repeat.
func (s *rewardService) DistributeForTournament(ctx context.Context, tournamentID int) ([]*models.RewardRecord, error) {
	var records []*models.RewardRecord
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusCompleted {
			return fmt.Errorf("tournament %d: %w", tournamentID, ErrTournamentNotActive)
		}
		rows, err := s.rankingRepo.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		records, err = s.Distribute(ctx, tx, t, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(tournamentID, "rewards_distributed", map[string]int{"records": len(records)})
	return records, nil
}

func (s *rewardService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.RewardRecord, error) {
	return s.rewardRepo.ListBySource(ctx, nil, SourceTournament, tournamentID)
}
