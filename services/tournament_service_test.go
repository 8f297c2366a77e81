package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
)

func TestStatusTransitionGraph(t *testing.T) {
	all := []models.TournamentStatus{
		models.StatusDraft,
		models.StatusSeekingInstructor,
		models.StatusInstructorAssigned,
		models.StatusReadyForEnrollment,
		models.StatusEnrollmentClosed,
		models.StatusInProgress,
		models.StatusCompleted,
		models.StatusCancelled,
	}

	forward := map[models.TournamentStatus]models.TournamentStatus{
		models.StatusDraft:              models.StatusSeekingInstructor,
		models.StatusSeekingInstructor:  models.StatusInstructorAssigned,
		models.StatusInstructorAssigned: models.StatusReadyForEnrollment,
		models.StatusReadyForEnrollment: models.StatusEnrollmentClosed,
		models.StatusEnrollmentClosed:   models.StatusInProgress,
		models.StatusInProgress:         models.StatusCompleted,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			if next, ok := forward[from]; ok && to == next {
				want = true
			}
			if !from.Terminal() && to == models.StatusCancelled {
				want = true
			}
			if got := isValidStatusTransition(from, to); got != want {
				t.Errorf("isValidStatusTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesAdmitNothing(t *testing.T) {
	for _, from := range []models.TournamentStatus{models.StatusCompleted, models.StatusCancelled} {
		for to := range allowedTransitions {
			if isValidStatusTransition(from, to) {
				t.Errorf("terminal status %s allows transition to %s", from, to)
			}
		}
	}
}

func TestNoSkippingLifecycleSteps(t *testing.T) {
	cases := []struct{ from, to models.TournamentStatus }{
		{models.StatusDraft, models.StatusReadyForEnrollment},
		{models.StatusDraft, models.StatusInProgress},
		{models.StatusSeekingInstructor, models.StatusEnrollmentClosed},
		{models.StatusReadyForEnrollment, models.StatusInProgress},
		{models.StatusInProgress, models.StatusDraft},
		{models.StatusEnrollmentClosed, models.StatusReadyForEnrollment},
	}
	for _, c := range cases {
		if isValidStatusTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}

type lifecycleFixture struct {
	svc      *tournamentService
	tours    *fakeTournamentRepo
	sessions *fakeSessionRepo
	ranking  *fakeRankingRepo
	rewards  *fakeRewardRepo
	ledger   *fakeLedger
	audit    *fakeAuditRepo
}

// newLifecycleFixture wires the full service graph over in-memory fakes. The
// nil ledger argument means "use the idempotent fake"; tests hand in a
// failing one to model a wallet outage.
func newLifecycleFixture(ledger CreditLedger, roster ...int) *lifecycleFixture {
	tours := newFakeTournamentRepo()
	sessions := newFakeSessionRepo()
	ranking := newFakeRankingRepo()
	rewards := newFakeRewardRepo()
	skills := newFakeSkillRepo()
	audit := &fakeAuditRepo{}
	notifier := &recordingNotifier{}
	wallets := newFakeLedger()
	if ledger == nil {
		ledger = wallets
	}
	ros := staticRoster{ids: roster}
	bracketSvc := NewBracketService(nil, tours, sessions, skills, ros, notifier)
	rankingSvc := NewRankingService(nil, tours, sessions, ranking)
	rewardSvc := NewRewardService(nil, tours, ranking, rewards, skills, ledger, NewRewardBadgeStore(rewards), notifier)
	svc := NewTournamentService(nil, tours, sessions, ranking, audit, ros, bracketSvc, rankingSvc, rewardSvc, notifier).(*tournamentService)
	return &lifecycleFixture{
		svc: svc, tours: tours, sessions: sessions,
		ranking: ranking, rewards: rewards, ledger: wallets, audit: audit,
	}
}

func (f *lifecycleFixture) addInProgressLeague(t *testing.T) *models.Tournament {
	t.Helper()
	tour := &models.Tournament{
		Name:        "season finale",
		Format:      models.FormatHeadToHead,
		ScoringMode: models.ScoringScoreBased,
		Direction:   models.DirectionDesc,
		Status:      models.StatusInProgress,
		WinnerCount: 1,
	}
	if err := tour.SetConfig(models.TournamentConfig{BracketType: models.BracketLeague}); err != nil {
		t.Fatal(err)
	}
	if err := tour.SetRewardPolicy(testPolicy()); err != nil {
		t.Fatal(err)
	}
	return f.tours.add(tour)
}

func TestCompletionBlockedWhileResultsMissing(t *testing.T) {
	f := newLifecycleFixture(nil, 1, 2, 3, 4)
	tour := f.addInProgressLeague(t)
	ctx := context.Background()

	w1 := 1
	played := &models.Session{TournamentID: tour.ID, Stage: models.StageLeague, Round: 1, OrderInRound: 1, ParticipantIDs: []int64{1, 2}}
	setSessionResult(t, played, map[int]float64{1: 3, 2: 1}, &w1)
	pending := &models.Session{TournamentID: tour.ID, Stage: models.StageLeague, Round: 1, OrderInRound: 2, ParticipantIDs: []int64{3, 4}, Status: models.SessionScheduled}
	if err := f.sessions.CreateBatch(ctx, nil, []*models.Session{played, pending}); err != nil {
		t.Fatal(err)
	}

	_, _, err := f.svc.transitionWithin(ctx, nil, tour.ID, TransitionInput{To: models.StatusCompleted, ActorID: 9})
	if !errors.Is(err, ErrSessionsIncomplete) {
		t.Fatalf("err = %v, want ErrSessionsIncomplete", err)
	}
	if tour.Status != models.StatusInProgress {
		t.Errorf("status = %s after refused completion, want %s", tour.Status, models.StatusInProgress)
	}
	if rows, _ := f.audit.ListByTournament(ctx, nil, tour.ID); len(rows) != 0 {
		t.Errorf("refused transition left %d audit rows", len(rows))
	}
}

func TestCompletionAbortsWhenLedgerRejects(t *testing.T) {
	f := newLifecycleFixture(failingLedger{}, 1, 2)
	tour := f.addInProgressLeague(t)
	ctx := context.Background()

	w1 := 1
	sess := &models.Session{TournamentID: tour.ID, Stage: models.StageLeague, Round: 1, OrderInRound: 1, ParticipantIDs: []int64{1, 2}}
	setSessionResult(t, sess, map[int]float64{1: 3, 2: 1}, &w1)
	if err := f.sessions.CreateBatch(ctx, nil, []*models.Session{sess}); err != nil {
		t.Fatal(err)
	}

	_, _, err := f.svc.transitionWithin(ctx, nil, tour.ID, TransitionInput{To: models.StatusCompleted, ActorID: 9})
	if !errors.Is(err, ErrLedgerApplyFailure) {
		t.Fatalf("err = %v, want ErrLedgerApplyFailure", err)
	}
	if tour.Status != models.StatusInProgress {
		t.Errorf("status = %s after failed distribution, want %s", tour.Status, models.StatusInProgress)
	}
}

func TestCompletionFreezesRankingAndPaysOut(t *testing.T) {
	f := newLifecycleFixture(nil, 1, 2)
	tour := f.addInProgressLeague(t)
	ctx := context.Background()

	w1 := 1
	sess := &models.Session{TournamentID: tour.ID, Stage: models.StageLeague, Round: 1, OrderInRound: 1, ParticipantIDs: []int64{1, 2}}
	setSessionResult(t, sess, map[int]float64{1: 3, 2: 1}, &w1)
	if err := f.sessions.CreateBatch(ctx, nil, []*models.Session{sess}); err != nil {
		t.Fatal(err)
	}

	got, from, err := f.svc.transitionWithin(ctx, nil, tour.ID, TransitionInput{To: models.StatusCompleted, ActorID: 9})
	if err != nil {
		t.Fatal(err)
	}
	if from != models.StatusInProgress || got.Status != models.StatusCompleted {
		t.Fatalf("transition = %s -> %s, want %s -> %s", from, got.Status, models.StatusInProgress, models.StatusCompleted)
	}

	standings, err := f.ranking.ListByTournament(ctx, nil, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(standings) != 2 || standings[0].ParticipantID != 1 || standings[0].Rank != 1 {
		t.Fatalf("frozen standings = %+v, want participant 1 on top of 2 rows", standings)
	}

	winner := f.ledger.wallets[1]
	if winner == nil || winner.Credits != 100 || winner.XP != 500 {
		t.Errorf("winner wallet = %+v, want 100 credits / 500 xp", winner)
	}
	recs, err := f.rewards.ListByParticipant(ctx, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) == 0 {
		t.Error("winner has no reward records after completion")
	}

	trail, err := f.audit.ListByTournament(ctx, nil, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(trail) != 1 || trail[0].FromStatus != models.StatusInProgress || trail[0].ToStatus != models.StatusCompleted || trail[0].ActorID != 9 {
		t.Errorf("audit trail = %+v, want a single in_progress -> completed row for actor 9", trail)
	}
}

func TestDeleteRefusedOnceScheduled(t *testing.T) {
	f := newLifecycleFixture(nil, 1, 2)
	tour := f.addInProgressLeague(t)
	ctx := context.Background()

	sess := &models.Session{TournamentID: tour.ID, Stage: models.StageLeague, Round: 1, OrderInRound: 1, ParticipantIDs: []int64{1, 2}}
	if err := f.sessions.CreateBatch(ctx, nil, []*models.Session{sess}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(ctx, tour.ID); !errors.Is(err, repositories.ErrTournamentInUse) {
		t.Fatalf("err = %v, want ErrTournamentInUse", err)
	}
	if _, err := f.tours.GetByID(ctx, nil, tour.ID); err != nil {
		t.Errorf("tournament gone after refused delete: %v", err)
	}
}

func TestDeleteRemovesUnscheduledTournament(t *testing.T) {
	f := newLifecycleFixture(nil)
	ctx := context.Background()
	tour := f.tours.add(&models.Tournament{
		Name:   "abandoned draft",
		Format: models.FormatHeadToHead,
		Status: models.StatusDraft,
	})

	if err := f.svc.Delete(ctx, tour.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.tours.GetByID(ctx, nil, tour.ID); !errors.Is(err, repositories.ErrTournamentNotFound) {
		t.Errorf("err = %v, want ErrTournamentNotFound", err)
	}
}
