package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/progression"
)

func testPolicy() models.RewardPolicy {
	return models.RewardPolicy{
		Tiers: []models.RewardTier{
			{FromRank: 1, ToRank: 1, Credits: 100, XP: 500, SkillPoints: 10, Badge: models.BadgeChampion},
			{FromRank: 2, ToRank: 3, Credits: 50, XP: 250, SkillPoints: 5, Badge: models.BadgePodium},
		},
		SkillWeights: map[string]float64{"strength": 0.6, "endurance": 0.4},
	}
}

func completedTournament(t *testing.T, repo *fakeTournamentRepo, policy models.RewardPolicy) *models.Tournament {
	t.Helper()
	tour := &models.Tournament{
		Name:        "winter cup",
		Format:      models.FormatIndividualRanking,
		ScoringMode: models.ScoringScoreBased,
		Direction:   models.DirectionDesc,
		Status:      models.StatusCompleted,
		WinnerCount: 3,
	}
	if err := tour.SetRewardPolicy(policy); err != nil {
		t.Fatal(err)
	}
	return repo.add(tour)
}

type rewardFixture struct {
	svc     RewardService
	tours   *fakeTournamentRepo
	rewards *fakeRewardRepo
	skills  *fakeSkillRepo
	ledger  *fakeLedger
}

func newRewardFixture() *rewardFixture {
	tours := newFakeTournamentRepo()
	rewards := newFakeRewardRepo()
	skills := newFakeSkillRepo()
	ledger := newFakeLedger()
	svc := NewRewardService(nil, tours, newFakeRankingRepo(), rewards, skills, ledger, NewRewardBadgeStore(rewards), &recordingNotifier{})
	return &rewardFixture{svc: svc, tours: tours, rewards: rewards, skills: skills, ledger: ledger}
}

func rankingRows(ranks ...int) []*models.RankingRow {
	rows := make([]*models.RankingRow, len(ranks))
	for i, rank := range ranks {
		rows[i] = &models.RankingRow{ParticipantID: 100 + i, Rank: rank}
	}
	return rows
}

func TestDistributeAppliesTiers(t *testing.T) {
	f := newRewardFixture()
	tour := completedTournament(t, f.tours, testPolicy())
	ctx := context.Background()

	_, err := f.svc.Distribute(ctx, nil, tour, rankingRows(1, 2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}

	winner := f.ledger.wallets[100]
	if winner == nil || winner.Credits != 100 || winner.XP != 500 {
		t.Fatalf("winner wallet = %+v, want 100 credits / 500 xp", winner)
	}
	second := f.ledger.wallets[101]
	if second == nil || second.Credits != 50 || second.XP != 250 {
		t.Fatalf("second wallet = %+v, want 50 credits / 250 xp", second)
	}
	if f.ledger.wallets[103] != nil {
		t.Errorf("rank 4 is outside every tier but got a wallet: %+v", f.ledger.wallets[103])
	}

	recs, err := f.rewards.ListByParticipant(ctx, nil, 100)
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[models.RewardKind]int{}
	for _, rec := range recs {
		kinds[rec.Kind]++
	}
	// credit, xp, two skills, badge
	want := map[models.RewardKind]int{
		models.RewardCredit: 1, models.RewardXP: 1, models.RewardSkill: 2, models.RewardBadge: 1,
	}
	for kind, n := range want {
		if kinds[kind] != n {
			t.Errorf("winner has %d %s records, want %d", kinds[kind], kind, n)
		}
	}

	// Baseline 50; dominant strength gets 6 points at alpha 0.3, supporting
	// endurance 4 points at alpha 0.1.
	strength, err := f.skills.GetForUpdate(ctx, nil, 100, "strength")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(strength.Rating-51.8) > 1e-9 {
		t.Errorf("strength rating = %v, want 51.8", strength.Rating)
	}
	endurance, err := f.skills.GetForUpdate(ctx, nil, 100, "endurance")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(endurance.Rating-50.4) > 1e-9 {
		t.Errorf("endurance rating = %v, want 50.4", endurance.Rating)
	}
}

func TestDistributeTwiceIsANoOp(t *testing.T) {
	f := newRewardFixture()
	tour := completedTournament(t, f.tours, testPolicy())
	ctx := context.Background()
	rows := rankingRows(1, 2)

	if _, err := f.svc.Distribute(ctx, nil, tour, rows); err != nil {
		t.Fatal(err)
	}
	wantCredits := f.ledger.wallets[100].Credits
	wantXP := f.ledger.wallets[100].XP
	wantRecords := len(f.rewards.order)
	strengthBefore, _ := f.skills.GetForUpdate(ctx, nil, 100, "strength")
	wantStrength := strengthBefore.Rating

	if _, err := f.svc.Distribute(ctx, nil, tour, rows); err != nil {
		t.Fatal(err)
	}

	if f.ledger.wallets[100].Credits != wantCredits || f.ledger.wallets[100].XP != wantXP {
		t.Errorf("balances drifted on replay: %+v", f.ledger.wallets[100])
	}
	if len(f.rewards.order) != wantRecords {
		t.Errorf("record count %d after replay, want %d", len(f.rewards.order), wantRecords)
	}
	strengthAfter, _ := f.skills.GetForUpdate(ctx, nil, 100, "strength")
	if strengthAfter.Rating != wantStrength {
		t.Errorf("strength rating moved on replay: %v -> %v", wantStrength, strengthAfter.Rating)
	}
	if len(f.skills.deltas) != 4 {
		t.Errorf("got %d skill deltas after replay, want 4", len(f.skills.deltas))
	}
}

// A near-ceiling dominant skill clamps to a tiny step; the supporting skill
// must not gain more than that.
func TestSupportingSkillCappedByDominantDelta(t *testing.T) {
	f := newRewardFixture()
	tour := completedTournament(t, f.tours, testPolicy())
	ctx := context.Background()

	if err := f.skills.Upsert(ctx, nil, &models.SkillRating{UserID: 100, Skill: "strength", Rating: 98.9}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Distribute(ctx, nil, tour, rankingRows(1)); err != nil {
		t.Fatal(err)
	}

	var dominant, supporting float64
	for _, d := range f.skills.deltas {
		switch d.Skill {
		case "strength":
			dominant = d.Delta
		case "endurance":
			supporting = d.Delta
		}
	}
	if math.Abs(dominant-0.1) > 1e-9 {
		t.Errorf("dominant delta = %v, want 0.1 (clamped at ceiling)", dominant)
	}
	if supporting > dominant+1e-9 {
		t.Errorf("supporting delta %v exceeds dominant %v", supporting, dominant)
	}

	strength, _ := f.skills.GetForUpdate(ctx, nil, 100, "strength")
	if strength.Rating > progression.MaxRating {
		t.Errorf("strength rating %v above ceiling", strength.Rating)
	}
}

func TestDistributeWithoutPolicy(t *testing.T) {
	f := newRewardFixture()
	tour := f.tours.add(&models.Tournament{Name: "no policy", Status: models.StatusCompleted})

	_, err := f.svc.Distribute(context.Background(), nil, tour, rankingRows(1))
	if !errors.Is(err, ErrRewardPolicyMissing) {
		t.Errorf("err = %v, want ErrRewardPolicyMissing", err)
	}
}

func TestRewardKeyIsDeterministic(t *testing.T) {
	a := RewardKey(7, 100, "credit")
	b := RewardKey(7, 100, "credit")
	if a != b {
		t.Errorf("same inputs produced %s and %s", a, b)
	}
	if RewardKey(7, 100, "xp") == a {
		t.Error("different scopes share a key")
	}
	if RewardKey(8, 100, "credit") == a {
		t.Error("different tournaments share a key")
	}
}

func TestBuildRewardPlansSkipsUntieredRanks(t *testing.T) {
	policy := testPolicy()
	plans := BuildRewardPlans(&policy, rankingRows(1, 2, 5))
	if len(plans) != 2 {
		t.Fatalf("got %d plans, want 2", len(plans))
	}
	if plans[0].Credits != 100 || plans[0].Badge != models.BadgeChampion {
		t.Errorf("rank 1 plan = %+v", plans[0])
	}
	if plans[1].Credits != 50 || plans[1].Badge != models.BadgePodium {
		t.Errorf("rank 2 plan = %+v", plans[1])
	}
}

func TestSplitSkillPoolNormalizesAndOrders(t *testing.T) {
	policy := models.RewardPolicy{
		SkillWeights: map[string]float64{"strength": 3, "endurance": 1, "agility": 1},
	}
	grants := splitSkillPool(&policy, 10)
	if len(grants) != 3 {
		t.Fatalf("got %d grants, want 3", len(grants))
	}
	if grants[0].Skill != "strength" || math.Abs(grants[0].Points-6) > 1e-9 {
		t.Errorf("heaviest grant = %+v, want strength with 6 points", grants[0])
	}
	if !grants[0].Dominant || grants[0].Alpha != defaultDominantAlpha {
		t.Errorf("strength should be dominant at alpha %v: %+v", defaultDominantAlpha, grants[0])
	}
	// Equal-weight supporting skills come back in name order.
	if grants[1].Skill != "agility" || grants[2].Skill != "endurance" {
		t.Errorf("supporting order = %s, %s, want agility, endurance", grants[1].Skill, grants[2].Skill)
	}
	for _, g := range grants[1:] {
		if g.Dominant || g.Alpha != defaultSupportingAlpha {
			t.Errorf("grant %+v should be supporting at alpha %v", g, defaultSupportingAlpha)
		}
	}
}

func TestSplitSkillPoolEmptyCases(t *testing.T) {
	policy := models.RewardPolicy{SkillWeights: map[string]float64{"strength": 1}}
	if grants := splitSkillPool(&policy, 0); grants != nil {
		t.Errorf("zero pool produced grants: %+v", grants)
	}
	empty := models.RewardPolicy{}
	if grants := splitSkillPool(&empty, 10); grants != nil {
		t.Errorf("no weights produced grants: %+v", grants)
	}
}
