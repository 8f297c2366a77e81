package models

import "time"

type RewardKind string

const (
	RewardCredit RewardKind = "credit"
	RewardXP     RewardKind = "xp"
	RewardSkill  RewardKind = "skill"
	RewardBadge  RewardKind = "badge"
)

type BadgeType string

const (
	BadgeChampion BadgeType = "CHAMPION"
	BadgePodium   BadgeType = "PODIUM"
	BadgeFinisher BadgeType = "FINISHER"
)

// RewardRecord is written exactly once per idempotency key and never updated
// in place; corrections are new offsetting records.
type RewardRecord struct {
	ID             int        `json:"id" db:"id"`
	IdempotencyKey string     `json:"idempotency_key" db:"idempotency_key"`
	SourceType     string     `json:"source_type" db:"source_type"`
	SourceID       int        `json:"source_id" db:"source_id"`
	ParticipantID  int        `json:"participant_id" db:"participant_id"`
	Kind           RewardKind `json:"kind" db:"kind"`

	CreditAmount int     `json:"credit_amount,omitempty" db:"credit_amount"`
	XPAmount     int64   `json:"xp_amount,omitempty" db:"xp_amount"`
	Skill        *string `json:"skill,omitempty" db:"skill"`
	SkillDelta   float64 `json:"skill_delta,omitempty" db:"skill_delta"`
	Badge        *string `json:"badge,omitempty" db:"badge"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RewardTier maps an inclusive rank range to payouts. Badge is empty when the
// tier awards none.
type RewardTier struct {
	FromRank    int       `json:"from_rank"`
	ToRank      int       `json:"to_rank"`
	Credits     int       `json:"credits"`
	XP          int64     `json:"xp"`
	SkillPoints float64   `json:"skill_points"`
	Badge       BadgeType `json:"badge,omitempty"`
}

func (t RewardTier) Contains(rank int) bool {
	return rank >= t.FromRank && rank <= t.ToRank
}

// RewardPolicy is snapshotted onto the tournament at creation. SkillWeights
// splits the tier's skill-point pool across skills; weights above
// DominantThreshold count as dominant and use DominantAlpha for the EMA step.
type RewardPolicy struct {
	Tiers        []RewardTier       `json:"tiers"`
	SkillWeights map[string]float64 `json:"skill_weights"`

	DominantThreshold float64 `json:"dominant_threshold,omitempty"`
	DominantAlpha     float64 `json:"dominant_alpha,omitempty"`
	SupportingAlpha   float64 `json:"supporting_alpha,omitempty"`
}

func (p RewardPolicy) TierForRank(rank int) *RewardTier {
	for i := range p.Tiers {
		if p.Tiers[i].Contains(rank) {
			return &p.Tiers[i]
		}
	}
	return nil
}
