package models

import "time"

// Enrollment ties a user to a tournament. CheckedInAt nil means the user is
// excluded from bracket seeding. After enrollment closes only the check-in
// timestamp may change.
type Enrollment struct {
	ID           int        `json:"id" db:"id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	UserID       int        `json:"user_id" db:"user_id"`
	Eligible     bool       `json:"eligible" db:"eligible"`
	Paid         bool       `json:"paid" db:"paid"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
