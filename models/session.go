package models

import (
	"encoding/json"
	"strconv"
	"time"
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

type SessionStage string

const (
	StageGroup    SessionStage = "group"
	StageLeague   SessionStage = "league"
	StageKnockout SessionStage = "knockout"
	StageBronze   SessionStage = "bronze"
	StageHeat     SessionStage = "heat"
)

// Session is one scheduled match or heat. ParticipantIDs is set at generation
// time and never inferred at query time: "who played" is always the persisted
// list, not a join someone reconstructed later.
type Session struct {
	ID           int          `json:"id" db:"id"`
	TournamentID int          `json:"tournament_id" db:"tournament_id"`
	Stage        SessionStage `json:"stage" db:"stage"`
	Round        int          `json:"round" db:"round"`
	OrderInRound int          `json:"order_in_round" db:"order_in_round"`
	GroupKey     *string      `json:"group_key,omitempty" db:"group_key"`

	ParticipantIDs []int64 `json:"participant_ids" db:"participant_ids"`

	ResultJSON *string       `json:"-" db:"result"`
	Status     SessionStatus `json:"status" db:"status"`
	WinnerID   *int          `json:"winner_id,omitempty" db:"winner_id"`

	// Auto-generated sessions may be deleted and regenerated while no result
	// exists; manually created ones survive the repair path.
	AutoGenerated bool `json:"auto_generated" db:"auto_generated"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Result *SessionResult `json:"result,omitempty" db:"-"`
}

// ResultEntry is one participant's raw score inside a session result payload.
type ResultEntry struct {
	Value       float64   `json:"value"`
	Placement   int       `json:"placement,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SessionResult maps participant id (JSON keys are strings) to a raw entry.
type SessionResult struct {
	Entries map[string]ResultEntry `json:"entries"`
}

func (r *SessionResult) Entry(participantID int) (ResultEntry, bool) {
	e, ok := r.Entries[strconv.Itoa(participantID)]
	return e, ok
}

func (s *Session) HasResult() bool {
	return s.ResultJSON != nil && *s.ResultJSON != ""
}

func (s *Session) HasParticipant(participantID int) bool {
	for _, id := range s.ParticipantIDs {
		if int(id) == participantID {
			return true
		}
	}
	return false
}

func (s *Session) ParseResult() (*SessionResult, error) {
	if !s.HasResult() {
		return nil, nil
	}
	var res SessionResult
	if err := json.Unmarshal([]byte(*s.ResultJSON), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Session) SetResult(res SessionResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	str := string(raw)
	s.ResultJSON = &str
	s.Status = SessionCompleted
	return nil
}
