package brackets

import (
	"fmt"
	"testing"
)

func TestLeaguePairsOnceEach(t *testing.T) {
	for n := 2; n <= 12; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ids := participants(n)
			sessions, err := League(ids)
			if err != nil {
				t.Fatal(err)
			}
			if want := LeagueSessionCount(n); len(sessions) != want {
				t.Fatalf("got %d sessions, want %d", len(sessions), want)
			}

			pairs := map[string]bool{}
			for _, s := range sessions {
				if len(s.ParticipantIDs) != 2 {
					t.Fatalf("session with %d participants", len(s.ParticipantIDs))
				}
				a, b := s.ParticipantIDs[0], s.ParticipantIDs[1]
				if a == b {
					t.Fatalf("participant %d paired with itself", a)
				}
				if b < a {
					a, b = b, a
				}
				key := fmt.Sprintf("%d-%d", a, b)
				if pairs[key] {
					t.Fatalf("pair %s planned twice", key)
				}
				pairs[key] = true
			}
		})
	}
}

func TestLeagueNoDoubleBookingWithinRound(t *testing.T) {
	for _, n := range []int{5, 6, 9} {
		sessions, err := League(participants(n))
		if err != nil {
			t.Fatal(err)
		}
		byRound := map[int]map[int64]bool{}
		for _, s := range sessions {
			if byRound[s.Round] == nil {
				byRound[s.Round] = map[int64]bool{}
			}
			for _, pid := range s.ParticipantIDs {
				if byRound[s.Round][pid] {
					t.Fatalf("n=%d: participant %d plays twice in round %d", n, pid, s.Round)
				}
				byRound[s.Round][pid] = true
			}
		}
	}
}

func TestLeagueOddCountHasNoByeSessions(t *testing.T) {
	sessions, err := League(participants(7))
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range sessions {
		for _, pid := range s.ParticipantIDs {
			if pid == 0 {
				t.Fatal("bye marker leaked into a session")
			}
		}
	}
}

func TestLeagueRequiresTwo(t *testing.T) {
	if _, err := League(participants(1)); err == nil {
		t.Error("expected error for a single participant")
	}
}
