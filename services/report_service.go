package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
	"github.com/fitclash/tournament-core/storage"
)

// TournamentReport is the archived snapshot of a finished tournament:
// everything a dispute needs in one immutable document.
type TournamentReport struct {
	Tournament  *models.Tournament         `json:"tournament"`
	Ranking     []*models.RankingRow       `json:"ranking"`
	Rewards     []*models.RewardRecord     `json:"rewards"`
	SkillDeltas []*models.SkillDelta       `json:"skill_deltas"`
	History     []*models.StatusTransition `json:"history"`
	ArchivedAt  time.Time                  `json:"archived_at"`
}

type ReportService interface {
	Archive(ctx context.Context, tournamentID int) (*storage.UploadResult, error)
}

type reportService struct {
	tournamentRepo repositories.TournamentRepository
	rankingRepo    repositories.RankingRepository
	rewardRepo     repositories.RewardRepository
	skillRepo      repositories.SkillRepository
	auditRepo      repositories.AuditRepository
	uploader       storage.FileUploader
}

func NewReportService(
	tournamentRepo repositories.TournamentRepository,
	rankingRepo repositories.RankingRepository,
	rewardRepo repositories.RewardRepository,
	skillRepo repositories.SkillRepository,
	auditRepo repositories.AuditRepository,
	uploader storage.FileUploader,
) ReportService {
	return &reportService{
		tournamentRepo: tournamentRepo,
		rankingRepo:    rankingRepo,
		rewardRepo:     rewardRepo,
		skillRepo:      skillRepo,
		auditRepo:      auditRepo,
		uploader:       uploader,
	}
}

// Archive builds the report from committed state and pushes it to object
// storage under a stable key, so re-archiving simply overwrites. Only
// terminal tournaments can be archived.
func (s *reportService) Archive(ctx context.Context, tournamentID int) (*storage.UploadResult, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if !t.Status.Terminal() {
		return nil, fmt.Errorf("tournament %d is %s: %w", tournamentID, t.Status, ErrTournamentNotActive)
	}

	report := TournamentReport{Tournament: t, ArchivedAt: time.Now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report.Ranking, err = s.rankingRepo.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		report.Rewards, err = s.rewardRepo.ListBySource(gctx, nil, SourceTournament, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		report.SkillDeltas, err = s.skillRepo.ListDeltasByTournament(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		report.History, err = s.auditRepo.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("tournament %d: marshalling report: %w", tournamentID, err)
	}

	key := fmt.Sprintf("reports/tournament_%d.json", tournamentID)
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("tournament %d: archiving report: %w", tournamentID, err)
	}
	slog.Info("tournament report archived", "tournament_id", tournamentID, "key", result.Key)
	return result, nil
}
