package models

import "time"

// SkillRating holds the current EMA value for one (user, skill) pair.
// Values stay inside [40.0, 99.0].
type SkillRating struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Skill     string    `json:"skill" db:"skill"`
	Rating    float64   `json:"rating" db:"rating"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SkillDelta is the per-tournament snapshot of a single EMA step, kept for
// audit and display. Deltas are isolated per tournament, not cumulative.
type SkillDelta struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Skill        string    `json:"skill" db:"skill"`
	Before       float64   `json:"before" db:"rating_before"`
	After        float64   `json:"after" db:"rating_after"`
	Delta        float64   `json:"delta" db:"delta"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
