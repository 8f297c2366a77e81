package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
)

// In-memory fakes for the repository and collaborator interfaces. All service
// methods under test take an explicit SQLExecutor, so tests pass nil and the
// fakes ignore it.

type fakeTournamentRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{byID: map[int]*models.Tournament{}}
}

func (r *fakeTournamentRepo) add(t *models.Tournament) *models.Tournament {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	r.byID[t.ID] = t
	return t
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.add(t)
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Tournament{}
	for _, t := range r.byID {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, err := r.GetByID(ctx, exec, id)
	if err != nil {
		return err
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateInstructor(ctx context.Context, exec repositories.SQLExecutor, id int, instructorID int) error {
	t, err := r.GetByID(ctx, exec, id)
	if err != nil {
		return err
	}
	t.InstructorID = &instructorID
	return nil
}

func (r *fakeTournamentRepo) UpdateConfig(ctx context.Context, exec repositories.SQLExecutor, id int, configJSON string) error {
	t, err := r.GetByID(ctx, exec, id)
	if err != nil {
		return err
	}
	cfg := configJSON
	t.ConfigJSON = &cfg
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	nextID   int
	sessions []*models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{}
}

func (r *fakeSessionRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, sessions []*models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		r.nextID++
		s.ID = r.nextID
		r.sessions = append(r.sessions, s)
	}
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repositories.ErrSessionNotFound
}

func (r *fakeSessionRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, filter repositories.ListSessionsFilter) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Session{}
	for _, s := range r.sessions {
		if s.TournamentID != tournamentID {
			continue
		}
		if filter.Stage != nil && s.Stage != *filter.Stage {
			continue
		}
		if filter.Round != nil && s.Round != *filter.Round {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSessionRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	all, _ := r.ListByTournament(ctx, exec, tournamentID, repositories.ListSessionsFilter{})
	return len(all), nil
}

func (r *fakeSessionRepo) CountWithoutResult(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	all, _ := r.ListByTournament(ctx, exec, tournamentID, repositories.ListSessionsFilter{})
	n := 0
	for _, s := range all {
		if !s.HasResult() && s.Status != models.SessionCancelled {
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) AnyResultExists(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (bool, error) {
	all, _ := r.ListByTournament(ctx, exec, tournamentID, repositories.ListSessionsFilter{})
	for _, s := range all {
		if s.HasResult() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessionRepo) DeleteAutoGenerated(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.sessions[:0]
	deleted := 0
	for _, s := range r.sessions {
		if s.TournamentID == tournamentID && s.AutoGenerated && !s.HasResult() {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	r.sessions = kept
	return deleted, nil
}

func (r *fakeSessionRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, s *models.Session) error {
	stored, err := r.GetByID(ctx, exec, s.ID)
	if err != nil {
		return err
	}
	stored.ResultJSON = s.ResultJSON
	stored.Status = s.Status
	stored.WinnerID = s.WinnerID
	return nil
}

type fakeRewardRepo struct {
	mu    sync.Mutex
	byKey map[string]*models.RewardRecord
	order []string
}

func newFakeRewardRepo() *fakeRewardRepo {
	return &fakeRewardRepo{byKey: map[string]*models.RewardRecord{}}
}

func (r *fakeRewardRepo) InsertIfAbsent(ctx context.Context, exec repositories.SQLExecutor, rec *models.RewardRecord) (*models.RewardRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byKey[rec.IdempotencyKey]; ok {
		return existing, false, nil
	}
	stored := *rec
	stored.ID = len(r.order) + 1
	r.byKey[rec.IdempotencyKey] = &stored
	r.order = append(r.order, rec.IdempotencyKey)
	return &stored, true, nil
}

func (r *fakeRewardRepo) GetByKey(ctx context.Context, exec repositories.SQLExecutor, idempotencyKey string) (*models.RewardRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byKey[idempotencyKey]
	if !ok {
		return nil, repositories.ErrRewardRecordNotFound
	}
	return rec, nil
}

func (r *fakeRewardRepo) ListBySource(ctx context.Context, exec repositories.SQLExecutor, sourceType string, sourceID int) ([]*models.RewardRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.RewardRecord{}
	for _, key := range r.order {
		rec := r.byKey[key]
		if rec.SourceType == sourceType && rec.SourceID == sourceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRewardRepo) ListByParticipant(ctx context.Context, exec repositories.SQLExecutor, participantID int) ([]*models.RewardRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.RewardRecord{}
	for _, key := range r.order {
		if r.byKey[key].ParticipantID == participantID {
			out = append(out, r.byKey[key])
		}
	}
	return out, nil
}

type fakeSkillRepo struct {
	mu      sync.Mutex
	ratings map[string]*models.SkillRating
	deltas  []*models.SkillDelta
}

func newFakeSkillRepo() *fakeSkillRepo {
	return &fakeSkillRepo{ratings: map[string]*models.SkillRating{}}
}

func skillKey(userID int, skill string) string {
	return fmt.Sprintf("%d/%s", userID, skill)
}

func (r *fakeSkillRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, userID int, skill string) (*models.SkillRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rating, ok := r.ratings[skillKey(userID, skill)]
	if !ok {
		return nil, repositories.ErrSkillRatingNotFound
	}
	return rating, nil
}

func (r *fakeSkillRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, rating *models.SkillRating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings[skillKey(rating.UserID, rating.Skill)] = rating
	return nil
}

func (r *fakeSkillRepo) ListByUser(ctx context.Context, exec repositories.SQLExecutor, userID int) ([]*models.SkillRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.SkillRating{}
	for _, rating := range r.ratings {
		if rating.UserID == userID {
			out = append(out, rating)
		}
	}
	return out, nil
}

func (r *fakeSkillRepo) InsertDelta(ctx context.Context, exec repositories.SQLExecutor, delta *models.SkillDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
	return nil
}

func (r *fakeSkillRepo) ListDeltasByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.SkillDelta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.SkillDelta{}
	for _, d := range r.deltas {
		if d.TournamentID == tournamentID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeRankingRepo struct {
	mu   sync.Mutex
	rows map[int][]*models.RankingRow
}

func newFakeRankingRepo() *fakeRankingRepo {
	return &fakeRankingRepo{rows: map[int][]*models.RankingRow{}}
}

func (r *fakeRankingRepo) ReplaceForTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, rows []*models.RankingRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[tournamentID] = rows
	return nil
}

func (r *fakeRankingRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.RankingRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[tournamentID], nil
}

// fakeLedger applies deltas idempotently on the key, like the Postgres
// implementation does via the unique constraint on ledger_entries.
type fakeLedger struct {
	mu      sync.Mutex
	wallets map[int]*models.Wallet
	applied map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{wallets: map[int]*models.Wallet{}, applied: map[string]bool{}}
}

func (l *fakeLedger) ApplyDelta(ctx context.Context, exec repositories.SQLExecutor, userID int, creditDelta int, xpDelta int64, idempotencyKey string) (*models.Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[userID]
	if !ok {
		w = &models.Wallet{UserID: userID}
		l.wallets[userID] = w
	}
	if l.applied[idempotencyKey] {
		return w, nil
	}
	l.applied[idempotencyKey] = true
	w.Credits += creditDelta
	w.XP += xpDelta
	return w, nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	rows []*models.StatusTransition
}

func (r *fakeAuditRepo) Insert(ctx context.Context, exec repositories.SQLExecutor, row *models.StatusTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row.ID = len(r.rows) + 1
	r.rows = append(r.rows, row)
	return nil
}

func (r *fakeAuditRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.StatusTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.StatusTransition{}
	for _, row := range r.rows {
		if row.TournamentID == tournamentID {
			out = append(out, row)
		}
	}
	return out, nil
}

// failingLedger rejects every delta, standing in for a wallet service outage.
type failingLedger struct{}

func (failingLedger) ApplyDelta(ctx context.Context, exec repositories.SQLExecutor, userID int, creditDelta int, xpDelta int64, idempotencyKey string) (*models.Wallet, error) {
	return nil, errors.New("wallet service unavailable")
}

// savepointExec records savepoint statements issued against the executor.
type savepointExec struct {
	mu    sync.Mutex
	stmts []string
}

func (e *savepointExec) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stmts = append(e.stmts, query)
	return nil, nil
}

func (e *savepointExec) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (e *savepointExec) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

type staticRoster struct {
	ids []int
}

func (r staticRoster) CheckedInParticipants(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]int, error) {
	return r.ids, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(tournamentID int, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}
