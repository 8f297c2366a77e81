package brackets

import (
	"github.com/fitclash/tournament-core/models"
)

// PlannedSession is a session blueprint produced by the generators. The
// bracket service turns blueprints into persisted sessions; the participant
// list travels verbatim and is never re-derived later.
type PlannedSession struct {
	Stage          models.SessionStage
	Round          int
	OrderInRound   int
	GroupKey       *string
	ParticipantIDs []int64
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
