package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
)

type CreateTournamentInput struct {
	Name         string                  `json:"name"`
	Description  *string                 `json:"description,omitempty"`
	Format       models.TournamentFormat `json:"format"`
	ScoringMode  models.ScoringMode      `json:"scoring_mode"`
	Direction    models.RankingDirection `json:"ranking_direction"`
	WinnerCount  int                     `json:"winner_count"`
	Config       models.TournamentConfig `json:"config"`
	RewardPolicy *models.RewardPolicy    `json:"reward_policy,omitempty"`
}

type TransitionInput struct {
	To      models.TournamentStatus `json:"to"`
	Reason  *string                 `json:"reason,omitempty"`
	ActorID int                     `json:"-"`
}

type TournamentService interface {
	Create(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	GetOverview(ctx context.Context, tournamentID int) (*models.Tournament, error)
	AssignInstructor(ctx context.Context, tournamentID, instructorID int) (*models.Tournament, error)
	Transition(ctx context.Context, tournamentID int, in TransitionInput) (*models.Tournament, error)
	History(ctx context.Context, tournamentID int) ([]*models.StatusTransition, error)
	Delete(ctx context.Context, tournamentID int) error
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	sessionRepo    repositories.SessionRepository
	rankingRepo    repositories.RankingRepository
	auditRepo      repositories.AuditRepository
	roster         RosterProvider
	brackets       BracketService
	ranking        RankingService
	rewards        RewardService
	notifier       Notifier
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	sessionRepo repositories.SessionRepository,
	rankingRepo repositories.RankingRepository,
	auditRepo repositories.AuditRepository,
	roster RosterProvider,
	bracketSvc BracketService,
	rankingSvc RankingService,
	rewardSvc RewardService,
	notifier Notifier,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		sessionRepo:    sessionRepo,
		rankingRepo:    rankingRepo,
		auditRepo:      auditRepo,
		roster:         roster,
		brackets:       bracketSvc,
		ranking:        rankingSvc,
		rewards:        rewardSvc,
		notifier:       notifier,
	}
}

// allowedTransitions is the complete lifecycle graph. Cancellation is legal
// from every non-terminal state; the two terminal states admit nothing.
var allowedTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusDraft:              {models.StatusSeekingInstructor, models.StatusCancelled},
	models.StatusSeekingInstructor:  {models.StatusInstructorAssigned, models.StatusCancelled},
	models.StatusInstructorAssigned: {models.StatusReadyForEnrollment, models.StatusCancelled},
	models.StatusReadyForEnrollment: {models.StatusEnrollmentClosed, models.StatusCancelled},
	models.StatusEnrollmentClosed:   {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress:         {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted:          {},
	models.StatusCancelled:          {},
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

func (s *tournamentService) Create(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	switch in.Format {
	case models.FormatIndividualRanking, models.FormatHeadToHead:
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrValidationFailed, in.Format)
	}
	switch in.ScoringMode {
	case models.ScoringPlacement, models.ScoringScoreBased, models.ScoringTimeBased,
		models.ScoringDistanceBased, models.ScoringSkillRating:
	default:
		return nil, fmt.Errorf("%w: unknown scoring mode %q", ErrValidationFailed, in.ScoringMode)
	}
	direction := in.Direction
	if direction == "" {
		direction = models.DirectionDesc
	}
	if direction != models.DirectionAsc && direction != models.DirectionDesc {
		return nil, fmt.Errorf("%w: unknown ranking direction %q", ErrValidationFailed, in.Direction)
	}
	winnerCount := in.WinnerCount
	if winnerCount <= 0 {
		winnerCount = 1
	}

	t := &models.Tournament{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Format:      in.Format,
		ScoringMode: in.ScoringMode,
		Direction:   direction,
		Status:      models.StatusDraft,
		WinnerCount: winnerCount,
	}
	if err := t.SetConfig(in.Config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	// The policy is copied onto the tournament here and read back from the
	// row from now on. Editing the source policy later changes nothing for
	// this tournament.
	if in.RewardPolicy != nil {
		if err := t.SetRewardPolicy(*in.RewardPolicy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	slog.Info("tournament created", "tournament_id", t.ID, "format", t.Format, "scoring_mode", t.ScoringMode)
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// GetOverview loads the tournament together with its sessions and current
// ranking, the three reads fanned out in parallel.
func (s *tournamentService) GetOverview(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	var (
		t        *models.Tournament
		sessions []*models.Session
		ranking  []*models.RankingRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.tournamentRepo.GetByID(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = s.sessionRepo.ListByTournament(gctx, nil, tournamentID, repositories.ListSessionsFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		ranking, err = s.rankingRepo.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.Sessions = make([]models.Session, len(sessions))
	for i, sp := range sessions {
		t.Sessions[i] = *sp
	}
	t.Ranking = make([]models.RankingRow, len(ranking))
	for i, rp := range ranking {
		t.Ranking[i] = *rp
	}
	return t, nil
}

func (s *tournamentService) AssignInstructor(ctx context.Context, tournamentID, instructorID int) (*models.Tournament, error) {
	var t *models.Tournament
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		t, err = s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		switch t.Status {
		case models.StatusDraft, models.StatusSeekingInstructor:
		default:
			return fmt.Errorf("tournament %d is %s: %w", tournamentID, t.Status, ErrTournamentNotActive)
		}
		if err := s.tournamentRepo.UpdateInstructor(ctx, tx, tournamentID, instructorID); err != nil {
			return err
		}
		t.InstructorID = &instructorID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(tournamentID, "instructor_assigned", map[string]int{"instructor_id": instructorID})
	return t, nil
}

// Transition moves the tournament along the lifecycle graph under the row
// lock, runs the target state's guards and side effects inside the same
// transaction, and appends the audit row. Any guard or side-effect failure
// rolls everything back, including reward distribution on completion.
func (s *tournamentService) Transition(ctx context.Context, tournamentID int, in TransitionInput) (*models.Tournament, error) {
	var (
		t    *models.Tournament
		from models.TournamentStatus
	)
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		t, from, err = s.transitionWithin(ctx, tx, tournamentID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("tournament status changed",
		"tournament_id", tournamentID, "from", from, "to", t.Status, "actor_id", in.ActorID)
	s.notifier.Notify(tournamentID, "status_changed", map[string]string{
		"from": string(from), "to": string(t.Status),
	})
	return t, nil
}

// transitionWithin runs the guards, side effects and the audit append against
// the caller's executor. The caller holds the tournament row lock.
func (s *tournamentService) transitionWithin(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, in TransitionInput) (*models.Tournament, models.TournamentStatus, error) {
	t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
	if err != nil {
		return nil, "", err
	}
	from := t.Status
	if from.Terminal() {
		return nil, from, fmt.Errorf("tournament %d is %s: %w", tournamentID, from, ErrTournamentFinalized)
	}
	if !isValidStatusTransition(from, in.To) {
		return nil, from, fmt.Errorf("tournament %d: %s -> %s: %w", tournamentID, from, in.To, ErrInvalidTransition)
	}

	if err := s.applyTransitionEffects(ctx, exec, t, in.To); err != nil {
		return nil, from, err
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, in.To); err != nil {
		return nil, from, err
	}
	t.Status = in.To
	err = s.auditRepo.Insert(ctx, exec, &models.StatusTransition{
		TournamentID: tournamentID,
		FromStatus:   from,
		ToStatus:     in.To,
		ActorID:      in.ActorID,
		Reason:       in.Reason,
	})
	if err != nil {
		return nil, from, err
	}
	return t, from, nil
}

func (s *tournamentService) applyTransitionEffects(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, to models.TournamentStatus) error {
	switch to {
	case models.StatusInstructorAssigned:
		if t.InstructorID == nil {
			return fmt.Errorf("tournament %d: %w", t.ID, ErrInstructorRequired)
		}

	case models.StatusEnrollmentClosed:
		created, err := s.brackets.Generate(ctx, exec, t)
		if err != nil {
			return err
		}
		slog.Info("bracket generated on enrollment close", "tournament_id", t.ID, "sessions", created)

	case models.StatusInProgress:
		roster, err := s.roster.CheckedInParticipants(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		if len(roster) == 0 {
			return fmt.Errorf("tournament %d: %w", t.ID, ErrRosterEmpty)
		}
		count, err := s.sessionRepo.CountByTournament(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			created, err := s.brackets.Generate(ctx, exec, t)
			if err != nil {
				return err
			}
			slog.Warn("bracket was missing at start, generated now", "tournament_id", t.ID, "sessions", created)
		}

	case models.StatusCompleted:
		return s.complete(ctx, exec, t)
	}
	return nil
}

// complete verifies every session carries a result (and an elimination
// bracket its champion), freezes the final ranking and distributes rewards.
// All of it commits or none of it does.
func (s *tournamentService) complete(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	missing, err := s.sessionRepo.CountWithoutResult(ctx, exec, t.ID)
	if err != nil {
		return err
	}
	if missing > 0 {
		return fmt.Errorf("tournament %d has %d sessions without results: %w", t.ID, missing, ErrSessionsIncomplete)
	}

	cfg, err := t.Config()
	if err != nil {
		return err
	}
	if len(cfg.KnockoutSeeds) > 0 {
		knockoutStage := models.StageKnockout
		koSessions, err := s.sessionRepo.ListByTournament(ctx, exec, t.ID, repositories.ListSessionsFilter{Stage: &knockoutStage})
		if err != nil {
			return err
		}
		done, err := IsKnockoutComplete(cfg, koSessions)
		if err != nil {
			return err
		}
		if !done {
			return fmt.Errorf("tournament %d: bracket has undecided rounds: %w", t.ID, ErrSessionsIncomplete)
		}
	}

	rows, err := s.ranking.RecomputeWithin(ctx, exec, t)
	if err != nil {
		return err
	}
	ptrs := make([]*models.RankingRow, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	records, err := s.rewards.Distribute(ctx, exec, t, ptrs)
	if err != nil {
		return err
	}
	slog.Info("rewards distributed on completion", "tournament_id", t.ID, "records", len(records))
	return nil
}

// Delete removes a tournament that never produced a schedule. Sessions block
// the delete here and via the RESTRICT foreign keys underneath; enrollments
// are caught by the constraint alone.
func (s *tournamentService) Delete(ctx context.Context, tournamentID int) error {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return err
	}
	count, err := s.sessionRepo.CountByTournament(ctx, nil, tournamentID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("tournament %d has %d sessions: %w", tournamentID, count, repositories.ErrTournamentInUse)
	}
	if err := s.tournamentRepo.Delete(ctx, tournamentID); err != nil {
		return err
	}
	slog.Info("tournament deleted", "tournament_id", tournamentID)
	return nil
}

func (s *tournamentService) History(ctx context.Context, tournamentID int) ([]*models.StatusTransition, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByTournament(ctx, nil, tournamentID)
}
