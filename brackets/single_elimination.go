package brackets

import (
	"fmt"
	"math/rand"

	"github.com/fitclash/tournament-core/models"
)

// Single elimination is generated one round at a time. Only the first round
// is planned from the roster; later rounds are built from recorded winners
// via AdvanceSlots, never guessed in advance. The slot order produced by
// SeedSlots is persisted on the tournament so advancement stays deterministic
// across process restarts.

// BracketSize returns the smallest power of two >= n.
func BracketSize(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

func NumRounds(bracketSize int) int {
	rounds := 0
	for s := bracketSize; s > 1; s >>= 1 {
		rounds++
	}
	return rounds
}

// SeedSlots lays participants into bracket slots. Slot value 0 is a bye.
// Pair i covers slots 2i and 2i+1; seed i meets seed (size-1-i), which hands
// the byes to the top seeds. Callers wanting random seeding shuffle first via
// ShuffleSeeds.
func SeedSlots(participants []int) ([]int, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("single elimination requires at least 2 participants, got %d", n)
	}
	size := BracketSize(n)
	seedAt := func(i int) int {
		if i < n {
			return participants[i]
		}
		return 0
	}
	slots := make([]int, size)
	for i := 0; i < size/2; i++ {
		slots[2*i] = seedAt(i)
		slots[2*i+1] = seedAt(size - 1 - i)
	}
	return slots, nil
}

func ShuffleSeeds(participants []int) []int {
	shuffled := make([]int, len(participants))
	copy(shuffled, participants)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// RoundSessions plans the sessions for one knockout round given its slot
// order. Pairs containing a bye produce no session: the present participant
// advances silently in AdvanceSlots. OrderInRound is the pair index plus one,
// counting bye pairs, so it doubles as the slot position.
func RoundSessions(slots []int, round int) []PlannedSession {
	sessions := make([]PlannedSession, 0, len(slots)/2)
	for i := 0; i < len(slots)/2; i++ {
		p1, p2 := slots[2*i], slots[2*i+1]
		if p1 == 0 || p2 == 0 {
			continue
		}
		sessions = append(sessions, PlannedSession{
			Stage:          models.StageKnockout,
			Round:          round,
			OrderInRound:   i + 1,
			ParticipantIDs: []int64{int64(p1), int64(p2)},
		})
	}
	return sessions
}

// FirstRoundSessionCount is the number of round-1 sessions for n
// participants: half the bracket minus the auto-resolved bye pairs.
func FirstRoundSessionCount(n int) int {
	size := BracketSize(n)
	byes := size - n
	return size/2 - byes
}

// AdvanceSlots folds one round's slots into the next round's. winners maps
// OrderInRound (pair index + 1) to the winning participant id for contested
// pairs; bye pairs advance their lone participant. A contested pair without a
// winner is an error: the next round must not exist before all results do.
func AdvanceSlots(slots []int, winners map[int]int) ([]int, error) {
	if len(slots)%2 != 0 || len(slots) < 2 {
		return nil, fmt.Errorf("invalid slot count %d", len(slots))
	}
	next := make([]int, len(slots)/2)
	for i := 0; i < len(slots)/2; i++ {
		p1, p2 := slots[2*i], slots[2*i+1]
		switch {
		case p1 == 0 && p2 == 0:
			return nil, fmt.Errorf("pair %d has no participants", i+1)
		case p1 == 0:
			next[i] = p2
		case p2 == 0:
			next[i] = p1
		default:
			w, ok := winners[i+1]
			if !ok {
				return nil, fmt.Errorf("pair %d (%d vs %d) has no recorded winner", i+1, p1, p2)
			}
			if w != p1 && w != p2 {
				return nil, fmt.Errorf("winner %d is not part of pair %d (%d vs %d)", w, i+1, p1, p2)
			}
			next[i] = w
		}
	}
	return next, nil
}

// PairLosers returns the losers of a completed round in pair order, used to
// seed the bronze match from the semifinal.
func PairLosers(slots []int, winners map[int]int) []int {
	losers := make([]int, 0, len(slots)/2)
	for i := 0; i < len(slots)/2; i++ {
		p1, p2 := slots[2*i], slots[2*i+1]
		if p1 == 0 || p2 == 0 {
			continue
		}
		w, ok := winners[i+1]
		if !ok {
			continue
		}
		if w == p1 {
			losers = append(losers, p2)
		} else {
			losers = append(losers, p1)
		}
	}
	return losers
}
