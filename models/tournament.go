package models

import (
	"encoding/json"
	"time"
)

// TournamentStatus mirrors the tournament_status ENUM in the database.
// The set is append-only: values are never removed or renamed once released.
type TournamentStatus string

const (
	StatusDraft              TournamentStatus = "draft"
	StatusSeekingInstructor  TournamentStatus = "seeking_instructor"
	StatusInstructorAssigned TournamentStatus = "instructor_assigned"
	StatusReadyForEnrollment TournamentStatus = "ready_for_enrollment"
	StatusEnrollmentClosed   TournamentStatus = "enrollment_closed"
	StatusInProgress         TournamentStatus = "in_progress"
	StatusCompleted          TournamentStatus = "completed"
	StatusCancelled          TournamentStatus = "cancelled"
)

func (s TournamentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type TournamentFormat string

const (
	FormatIndividualRanking TournamentFormat = "individual_ranking"
	FormatHeadToHead        TournamentFormat = "head_to_head"
)

type ScoringMode string

const (
	ScoringPlacement     ScoringMode = "placement"
	ScoringScoreBased    ScoringMode = "score_based"
	ScoringTimeBased     ScoringMode = "time_based"
	ScoringDistanceBased ScoringMode = "distance_based"
	ScoringSkillRating   ScoringMode = "skill_rating"
)

// RankingDirection decides whether the lowest or the highest best_score wins.
// asc suits sprint times, desc suits points or hold durations.
type RankingDirection string

const (
	DirectionAsc  RankingDirection = "asc"
	DirectionDesc RankingDirection = "desc"
)

type BracketType string

const (
	BracketLeague        BracketType = "league"
	BracketKnockout      BracketType = "knockout"
	BracketGroupKnockout BracketType = "group_knockout"
	BracketHeats         BracketType = "heats"
)

// TournamentConfig is the configuration blob stored as JSONB next to the
// tournament row. KnockoutSeeds is written once by the bracket service at
// generation time and is the source of truth for slot propagation between
// knockout rounds.
type TournamentConfig struct {
	BracketType     BracketType `json:"bracket_type"`
	MaxGroupSize    int         `json:"max_group_size,omitempty"`
	ThirdPlaceMatch bool        `json:"third_place_match,omitempty"`
	SeedByRanking   bool        `json:"seed_by_ranking,omitempty"`

	// Head-to-head standings: points per outcome, or raw score differential.
	PointsPerWin         int  `json:"points_per_win,omitempty"`
	PointsPerDraw        int  `json:"points_per_draw,omitempty"`
	UseScoreDifferential bool `json:"use_score_differential,omitempty"`

	KnockoutSeeds []int `json:"knockout_seeds,omitempty"`
}

func (c TournamentConfig) WinPoints() int {
	if c.PointsPerWin == 0 {
		return 3
	}
	return c.PointsPerWin
}

func (c TournamentConfig) DrawPoints() int {
	if c.PointsPerDraw == 0 {
		return 1
	}
	return c.PointsPerDraw
}

type Tournament struct {
	ID           int              `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Description  *string          `json:"description,omitempty" db:"description"`
	Format       TournamentFormat `json:"format" db:"format"`
	ScoringMode  ScoringMode      `json:"scoring_mode" db:"scoring_mode"`
	Direction    RankingDirection `json:"ranking_direction" db:"ranking_direction"`
	Status       TournamentStatus `json:"status" db:"status"`
	WinnerCount  int              `json:"winner_count" db:"winner_count"`
	InstructorID *int             `json:"instructor_id,omitempty" db:"instructor_id"`

	// Immutable copy of the reward policy taken at creation. Later policy
	// edits must not retroactively change a running tournament.
	RewardPolicyJSON *string `json:"-" db:"reward_policy"`
	ConfigJSON       *string `json:"-" db:"config"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Optional related data, populated by services.
	Sessions []Session    `json:"sessions,omitempty" db:"-"`
	Ranking  []RankingRow `json:"ranking,omitempty" db:"-"`
}

func (t *Tournament) Config() (TournamentConfig, error) {
	cfg := TournamentConfig{}
	if t.ConfigJSON == nil || *t.ConfigJSON == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(*t.ConfigJSON), &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (t *Tournament) SetConfig(cfg TournamentConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	s := string(raw)
	t.ConfigJSON = &s
	return nil
}

func (t *Tournament) RewardPolicy() (*RewardPolicy, error) {
	if t.RewardPolicyJSON == nil || *t.RewardPolicyJSON == "" {
		return nil, nil
	}
	var p RewardPolicy
	if err := json.Unmarshal([]byte(*t.RewardPolicyJSON), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *Tournament) SetRewardPolicy(p RewardPolicy) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s := string(raw)
	t.RewardPolicyJSON = &s
	return nil
}
