package services

import (
	"context"
	"errors"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
)

// ProfileService is the per-user read side: skill ratings, balances and
// reward history as the reward engine left them.
type ProfileService interface {
	Skills(ctx context.Context, userID int) ([]*models.SkillRating, error)
	Wallet(ctx context.Context, userID int) (*models.Wallet, error)
	Rewards(ctx context.Context, userID int) ([]*models.RewardRecord, error)
}

type profileService struct {
	skillRepo  repositories.SkillRepository
	ledgerRepo repositories.LedgerRepository
	rewardRepo repositories.RewardRepository
}

func NewProfileService(
	skillRepo repositories.SkillRepository,
	ledgerRepo repositories.LedgerRepository,
	rewardRepo repositories.RewardRepository,
) ProfileService {
	return &profileService{
		skillRepo:  skillRepo,
		ledgerRepo: ledgerRepo,
		rewardRepo: rewardRepo,
	}
}

func (s *profileService) Skills(ctx context.Context, userID int) ([]*models.SkillRating, error) {
	return s.skillRepo.ListByUser(ctx, nil, userID)
}

// Wallet returns a zero-balance wallet for users the reward engine has never
// touched instead of a not-found error.
func (s *profileService) Wallet(ctx context.Context, userID int) (*models.Wallet, error) {
	wallet, err := s.ledgerRepo.GetWallet(ctx, nil, userID)
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return &models.Wallet{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *profileService) Rewards(ctx context.Context, userID int) ([]*models.RewardRecord, error) {
	return s.rewardRepo.ListByParticipant(ctx, nil, userID)
}
