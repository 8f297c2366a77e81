package models

import "time"

type ParticipantType string

const ParticipantUser ParticipantType = "user"

// RankingRow is the durable standings contract other subsystems read.
// (tournament_id, participant_id, participant_type) is unique: historical
// dual-write paths produced duplicate rows for the same participant, the
// constraint makes that impossible now.
type RankingRow struct {
	ID              int             `json:"id" db:"id"`
	TournamentID    int             `json:"tournament_id" db:"tournament_id"`
	ParticipantID   int             `json:"participant_id" db:"participant_id"`
	ParticipantType ParticipantType `json:"participant_type" db:"participant_type"`
	Rank            int             `json:"rank" db:"rank"`
	BestScore       float64         `json:"best_score" db:"best_score"`
	FinalValue      float64         `json:"final_value" db:"final_value"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
