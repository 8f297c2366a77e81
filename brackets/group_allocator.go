package brackets

import (
	"fmt"

	"github.com/fitclash/tournament-core/models"
)

const DefaultMaxGroupSize = 4

// AllocateGroups partitions participants into the fewest groups whose sizes
// do not exceed maxGroupSize, with sizes differing by at most one. The
// remainder is spread one-per-group starting from the first group, so 11
// participants with max size 4 become 4+4+3 and never 5+3+3. Works for any
// n >= 3 by formula, including prime counts.
func AllocateGroups(participants []int, maxGroupSize int) ([][]int, error) {
	n := len(participants)
	if n < 3 {
		return nil, fmt.Errorf("group allocation requires at least 3 participants, got %d", n)
	}
	if maxGroupSize < 2 {
		maxGroupSize = DefaultMaxGroupSize
	}

	g := (n + maxGroupSize - 1) / maxGroupSize
	base := n / g
	remainder := n % g

	groups := make([][]int, 0, g)
	idx := 0
	for i := 0; i < g; i++ {
		size := base
		if i < remainder {
			size++
		}
		group := make([]int, size)
		copy(group, participants[idx:idx+size])
		groups = append(groups, group)
		idx += size
	}
	return groups, nil
}

// GroupSessions generates the full round-robin session list inside each
// group. Group keys are "A", "B", ... in allocation order.
func GroupSessions(groups [][]int) []PlannedSession {
	sessions := make([]PlannedSession, 0)
	for gi, group := range groups {
		key := GroupKey(gi)
		sessions = append(sessions, roundRobin(group, models.StageGroup, &key)...)
	}
	return sessions
}

// HeatSessions produces one multi-participant session per group, used by
// individual-ranking tournaments where everyone in a heat competes at once.
func HeatSessions(groups [][]int) []PlannedSession {
	sessions := make([]PlannedSession, 0, len(groups))
	for gi, group := range groups {
		key := GroupKey(gi)
		sessions = append(sessions, PlannedSession{
			Stage:          models.StageHeat,
			Round:          1,
			OrderInRound:   gi + 1,
			GroupKey:       &key,
			ParticipantIDs: toInt64s(group),
		})
	}
	return sessions
}

// GroupKey names groups "A".."Z", then "AA", "AB", ...
func GroupKey(i int) string {
	key := ""
	for {
		key = string(rune('A'+i%26)) + key
		i = i/26 - 1
		if i < 0 {
			return key
		}
	}
}

// GroupStageSessionCount is the expected number of group-stage sessions for a
// given allocation: sum of C(size, 2) per group.
func GroupStageSessionCount(groups [][]int) int {
	total := 0
	for _, g := range groups {
		total += len(g) * (len(g) - 1) / 2
	}
	return total
}
