package models

import "time"

// StatusTransition is one row of the append-only transition history. The log
// is the only way to reconstruct how a tournament reached its current state
// and is required for dispute resolution; rows are never updated or deleted.
type StatusTransition struct {
	ID           int              `json:"id" db:"id"`
	TournamentID int              `json:"tournament_id" db:"tournament_id"`
	FromStatus   TournamentStatus `json:"from_status" db:"from_status"`
	ToStatus     TournamentStatus `json:"to_status" db:"to_status"`
	ActorID      int              `json:"actor_id" db:"actor_id"`
	Reason       *string          `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
