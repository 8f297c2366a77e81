package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/fitclash/tournament-core/brackets"
	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/progression"
	"github.com/fitclash/tournament-core/rankings"
	"github.com/fitclash/tournament-core/repositories"
)

// BracketService plans and persists competition sessions. Generate runs
// inside the status-transition transaction; the finalize and advance steps
// open their own.
type BracketService interface {
	Generate(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) (int, error)
	FinalizeGroupStage(ctx context.Context, tournamentID int) (int, error)
	AdvanceKnockoutRound(ctx context.Context, tournamentID int) (int, error)
}

type bracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	sessionRepo    repositories.SessionRepository
	skillRepo      repositories.SkillRepository
	roster         RosterProvider
	notifier       Notifier
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	sessionRepo repositories.SessionRepository,
	skillRepo repositories.SkillRepository,
	roster RosterProvider,
	notifier Notifier,
) BracketService {
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		sessionRepo:    sessionRepo,
		skillRepo:      skillRepo,
		roster:         roster,
		notifier:       notifier,
	}
}

// Generate plans the initial session set for the tournament's format and
// persists it. Repeated calls are idempotent: a session count matching the
// plan is left untouched; a mismatch with no recorded result is repaired by
// deleting auto-generated sessions and re-planning; any recorded result
// freezes the bracket.
func (s *bracketService) Generate(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) (int, error) {
	roster, err := s.roster.CheckedInParticipants(ctx, exec, tournament.ID)
	if err != nil {
		return 0, fmt.Errorf("tournament %d: loading roster: %w", tournament.ID, err)
	}
	if len(roster) == 0 {
		return 0, ErrRosterEmpty
	}

	cfg, err := tournament.Config()
	if err != nil {
		return 0, fmt.Errorf("tournament %d: malformed config: %w", tournament.ID, err)
	}

	plan, seeds, err := s.plan(ctx, exec, tournament, cfg, roster)
	if err != nil {
		return 0, err
	}

	existing, err := s.sessionRepo.CountByTournament(ctx, exec, tournament.ID)
	if err != nil {
		return 0, err
	}
	if existing == len(plan) {
		return 0, nil
	}
	if existing > 0 {
		played, err := s.sessionRepo.AnyResultExists(ctx, exec, tournament.ID)
		if err != nil {
			return 0, err
		}
		if played {
			return 0, fmt.Errorf("tournament %d: %w", tournament.ID, ErrBracketAlreadyPlayed)
		}
		deleted, err := s.sessionRepo.DeleteAutoGenerated(ctx, exec, tournament.ID)
		if err != nil {
			return 0, err
		}
		slog.Info("regenerating bracket",
			"tournament_id", tournament.ID, "deleted", deleted, "planned", len(plan))
	}

	if seeds != nil {
		cfg.KnockoutSeeds = seeds
		if err := tournament.SetConfig(cfg); err != nil {
			return 0, err
		}
		if err := s.tournamentRepo.UpdateConfig(ctx, exec, tournament.ID, *tournament.ConfigJSON); err != nil {
			return 0, err
		}
	}

	sessions := materialize(tournament.ID, plan)
	if err := s.sessionRepo.CreateBatch(ctx, exec, sessions); err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// plan dispatches on format and bracket type. The returned seed slice is
// non-nil only for a knockout opening round and must be persisted before the
// sessions are.
func (s *bracketService) plan(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, cfg models.TournamentConfig, roster []int) ([]brackets.PlannedSession, []int, error) {
	maxGroupSize := cfg.MaxGroupSize
	if maxGroupSize <= 0 {
		maxGroupSize = brackets.DefaultMaxGroupSize
	}

	if t.Format == models.FormatIndividualRanking {
		groups, err := brackets.AllocateGroups(roster, maxGroupSize)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrRosterMismatch, err)
		}
		return brackets.HeatSessions(groups), nil, nil
	}

	switch cfg.BracketType {
	case models.BracketLeague, "":
		plan, err := brackets.League(roster)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrRosterMismatch, err)
		}
		return plan, nil, nil
	case models.BracketKnockout:
		seedsIn := roster
		if cfg.SeedByRanking {
			seedsIn = s.seedBySkill(ctx, exec, roster)
		} else {
			seedsIn = brackets.ShuffleSeeds(roster)
		}
		slots, err := brackets.SeedSlots(seedsIn)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrRosterMismatch, err)
		}
		return brackets.RoundSessions(slots, 1), slots, nil
	case models.BracketGroupKnockout:
		groups, err := brackets.AllocateGroups(roster, maxGroupSize)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrRosterMismatch, err)
		}
		return brackets.GroupSessions(groups), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported bracket type %q", ErrValidationFailed, cfg.BracketType)
	}
}

// seedBySkill orders the roster by average skill rating, strongest first.
// Participants without ratings sit at the baseline. Rating lookups failing
// here degrade to the baseline rather than failing generation.
func (s *bracketService) seedBySkill(ctx context.Context, exec repositories.SQLExecutor, roster []int) []int {
	type seeded struct {
		id     int
		rating float64
	}
	out := make([]seeded, len(roster))
	for i, id := range roster {
		rating := progression.BaselineRating
		ratings, err := s.skillRepo.ListByUser(ctx, exec, id)
		if err == nil && len(ratings) > 0 {
			sum := 0.0
			for _, r := range ratings {
				sum += r.Rating
			}
			rating = sum / float64(len(ratings))
		}
		out[i] = seeded{id: id, rating: rating}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].rating > out[j].rating })
	ids := make([]int, len(out))
	for i, sd := range out {
		ids[i] = sd.id
	}
	return ids
}

// FinalizeGroupStage closes the group phase of a group_knockout tournament:
// every group session must carry a result, per-group standings decide the
// qualifiers, and the opening knockout round is seeded from them. Knockout
// sessions never exist before this step.
func (s *bracketService) FinalizeGroupStage(ctx context.Context, tournamentID int) (int, error) {
	created := 0
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusInProgress {
			return fmt.Errorf("tournament %d: %w", tournamentID, ErrTournamentNotActive)
		}
		cfg, err := t.Config()
		if err != nil {
			return err
		}
		if cfg.BracketType != models.BracketGroupKnockout {
			return fmt.Errorf("%w: tournament %d is not group+knockout", ErrValidationFailed, tournamentID)
		}
		if len(cfg.KnockoutSeeds) > 0 {
			return fmt.Errorf("%w: tournament %d knockout already seeded", ErrValidationFailed, tournamentID)
		}

		groupStage := models.StageGroup
		groupSessions, err := s.sessionRepo.ListByTournament(ctx, tx, tournamentID, repositories.ListSessionsFilter{Stage: &groupStage})
		if err != nil {
			return err
		}
		if len(groupSessions) == 0 {
			return fmt.Errorf("tournament %d: %w", tournamentID, ErrGroupStageIncomplete)
		}

		qualifiers, err := groupWinners(t, cfg, groupSessions)
		if err != nil {
			return err
		}

		slots, err := brackets.SeedSlots(qualifiers)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRosterMismatch, err)
		}
		cfg.KnockoutSeeds = slots
		if err := t.SetConfig(cfg); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateConfig(ctx, tx, tournamentID, *t.ConfigJSON); err != nil {
			return err
		}

		sessions := materialize(tournamentID, brackets.RoundSessions(slots, 1))
		if err := s.sessionRepo.CreateBatch(ctx, tx, sessions); err != nil {
			return err
		}
		created = len(sessions)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.notifier.Notify(tournamentID, "group_stage_finalized", map[string]int{"knockout_sessions": created})
	return created, nil
}

// groupWinners ranks each group on its own sessions and takes the top
// finisher per group, in group order. A single group qualifies its top two
// so the knockout still has a pair to play.
func groupWinners(t *models.Tournament, cfg models.TournamentConfig, groupSessions []*models.Session) ([]int, error) {
	byGroup := map[string][]models.Session{}
	keys := []string{}
	for _, gs := range groupSessions {
		if !gs.HasResult() {
			return nil, fmt.Errorf("tournament %d session %d: %w", t.ID, gs.ID, ErrGroupStageIncomplete)
		}
		if gs.GroupKey == nil {
			return nil, fmt.Errorf("%w: session %d has no group key", ErrValidationFailed, gs.ID)
		}
		if _, seen := byGroup[*gs.GroupKey]; !seen {
			keys = append(keys, *gs.GroupKey)
		}
		byGroup[*gs.GroupKey] = append(byGroup[*gs.GroupKey], *gs)
	}
	sort.Strings(keys)

	qualifiersPerGroup := 1
	if len(keys) == 1 {
		qualifiersPerGroup = 2
	}

	qualifiers := []int{}
	for _, key := range keys {
		rows, err := rankings.Compute(rankings.Input{
			Format:    models.FormatHeadToHead,
			Mode:      t.ScoringMode,
			Direction: t.Direction,
			Config:    cfg,
			Sessions:  byGroup[key],
		})
		if err != nil {
			return nil, fmt.Errorf("group %s standings: %w", key, err)
		}
		if len(rows) < qualifiersPerGroup {
			return nil, fmt.Errorf("%w: group %s has %d ranked participants", ErrGroupStageIncomplete, key, len(rows))
		}
		for i := 0; i < qualifiersPerGroup; i++ {
			qualifiers = append(qualifiers, rows[i].ParticipantID)
		}
	}
	return qualifiers, nil
}

// AdvanceKnockoutRound creates the next knockout round once every session of
// the current one has a winner. Winners propagate through the persisted seed
// slots; bye pairs advance silently. When the next round is the final and the
// config asks for it, a bronze match between the semifinal losers is created
// alongside.
func (s *bracketService) AdvanceKnockoutRound(ctx context.Context, tournamentID int) (int, error) {
	created := 0
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusInProgress {
			return fmt.Errorf("tournament %d: %w", tournamentID, ErrTournamentNotActive)
		}
		cfg, err := t.Config()
		if err != nil {
			return err
		}
		if len(cfg.KnockoutSeeds) == 0 {
			return fmt.Errorf("tournament %d: %w", tournamentID, ErrKnockoutNotSeeded)
		}

		knockoutStage := models.StageKnockout
		koSessions, err := s.sessionRepo.ListByTournament(ctx, tx, tournamentID, repositories.ListSessionsFilter{Stage: &knockoutStage})
		if err != nil {
			return err
		}
		if len(koSessions) == 0 {
			return fmt.Errorf("tournament %d: %w", tournamentID, ErrKnockoutNotSeeded)
		}

		maxRound := 0
		for _, ks := range koSessions {
			if ks.Round > maxRound {
				maxRound = ks.Round
			}
		}

		slots := cfg.KnockoutSeeds
		var prevSlots []int
		var lastWinners map[int]int
		for r := 1; r <= maxRound; r++ {
			winners, err := roundWinners(koSessions, r)
			if err != nil {
				return err
			}
			prevSlots, lastWinners = slots, winners
			slots, err = brackets.AdvanceSlots(slots, winners)
			if err != nil {
				return fmt.Errorf("tournament %d round %d: %w: %v", tournamentID, r, ErrRoundIncomplete, err)
			}
		}

		if len(slots) < 2 {
			return fmt.Errorf("tournament %d: %w", tournamentID, ErrBracketExhausted)
		}

		nextRound := maxRound + 1
		plan := brackets.RoundSessions(slots, nextRound)
		if len(slots) == 2 && cfg.ThirdPlaceMatch {
			losers := brackets.PairLosers(prevSlots, lastWinners)
			if len(losers) == 2 {
				plan = append(plan, brackets.PlannedSession{
					Stage:          models.StageBronze,
					Round:          nextRound,
					OrderInRound:   1,
					ParticipantIDs: []int64{int64(losers[0]), int64(losers[1])},
				})
			}
		}

		sessions := materialize(tournamentID, plan)
		if err := s.sessionRepo.CreateBatch(ctx, tx, sessions); err != nil {
			return err
		}
		created = len(sessions)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.notifier.Notify(tournamentID, "round_advanced", map[string]int{"new_sessions": created})
	return created, nil
}

// roundWinners collects the recorded winners of one knockout round keyed by
// OrderInRound. A session without a result or winner stops the advance.
func roundWinners(sessions []*models.Session, round int) (map[int]int, error) {
	winners := map[int]int{}
	for _, ks := range sessions {
		if ks.Round != round {
			continue
		}
		if !ks.HasResult() || ks.WinnerID == nil {
			return nil, fmt.Errorf("session %d: %w", ks.ID, ErrRoundIncomplete)
		}
		winners[ks.OrderInRound] = *ks.WinnerID
	}
	return winners, nil
}

func materialize(tournamentID int, plan []brackets.PlannedSession) []*models.Session {
	sessions := make([]*models.Session, len(plan))
	for i, p := range plan {
		sessions[i] = &models.Session{
			TournamentID:   tournamentID,
			Stage:          p.Stage,
			Round:          p.Round,
			OrderInRound:   p.OrderInRound,
			GroupKey:       p.GroupKey,
			ParticipantIDs: p.ParticipantIDs,
			Status:         models.SessionScheduled,
			AutoGenerated:  true,
		}
	}
	return sessions
}

// IsKnockoutComplete reports whether the bracket has produced a champion.
func IsKnockoutComplete(cfg models.TournamentConfig, koSessions []*models.Session) (bool, error) {
	if len(cfg.KnockoutSeeds) == 0 {
		return false, nil
	}
	maxRound := 0
	for _, ks := range koSessions {
		if ks.Round > maxRound {
			maxRound = ks.Round
		}
	}
	slots := cfg.KnockoutSeeds
	for r := 1; r <= maxRound; r++ {
		winners, err := roundWinners(koSessions, r)
		if err != nil {
			if errors.Is(err, ErrRoundIncomplete) {
				return false, nil
			}
			return false, err
		}
		slots, err = brackets.AdvanceSlots(slots, winners)
		if err != nil {
			return false, nil
		}
	}
	return len(slots) == 1, nil
}
