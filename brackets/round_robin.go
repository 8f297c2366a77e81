package brackets

import (
	"fmt"

	"github.com/fitclash/tournament-core/models"
)

// League generates a single round-robin: every unordered pair meets exactly
// once, n(n-1)/2 sessions in total. Rounds are laid out with the circle
// method so no participant plays twice in a round; for odd n there is no bye
// session, the sitting player simply has one fewer match that round.
func League(participants []int) ([]PlannedSession, error) {
	sessions, err := leaguePlan(participants, models.StageLeague, nil)
	if err != nil {
		return nil, err
	}
	if want := LeagueSessionCount(len(participants)); len(sessions) != want {
		return nil, fmt.Errorf("league generation produced %d sessions, expected %d", len(sessions), want)
	}
	return sessions, nil
}

func LeagueSessionCount(n int) int {
	return n * (n - 1) / 2
}

func roundRobin(participants []int, stage models.SessionStage, groupKey *string) []PlannedSession {
	sessions, _ := leaguePlan(participants, stage, groupKey)
	return sessions
}

func leaguePlan(participants []int, stage models.SessionStage, groupKey *string) ([]PlannedSession, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("round-robin requires at least 2 participants, got %d", n)
	}

	// Circle method: fix the first slot, rotate the rest. A zero id marks the
	// sitting slot when n is odd.
	ring := make([]int, 0, n+1)
	ring = append(ring, participants...)
	if n%2 == 1 {
		ring = append(ring, 0)
	}
	size := len(ring)
	rounds := size - 1

	sessions := make([]PlannedSession, 0, LeagueSessionCount(n))
	for r := 1; r <= rounds; r++ {
		order := 0
		for i := 0; i < size/2; i++ {
			p1 := ring[i]
			p2 := ring[size-1-i]
			if p1 == 0 || p2 == 0 {
				continue
			}
			order++
			sessions = append(sessions, PlannedSession{
				Stage:          stage,
				Round:          r,
				OrderInRound:   order,
				GroupKey:       groupKey,
				ParticipantIDs: []int64{int64(p1), int64(p2)},
			})
		}
		// Rotate all but the first element.
		last := ring[size-1]
		copy(ring[2:], ring[1:size-1])
		ring[1] = last
	}
	return sessions, nil
}
