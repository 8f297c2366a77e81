package brackets

import "testing"

func TestBracketSize(t *testing.T) {
	cases := map[int]int{2: 2, 3: 4, 4: 4, 5: 8, 8: 8, 9: 16, 16: 16, 17: 32}
	for n, want := range cases {
		if got := BracketSize(n); got != want {
			t.Errorf("BracketSize(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestSeedSlotsByesGoToTopSeeds(t *testing.T) {
	slots, err := SeedSlots([]int{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 8 {
		t.Fatalf("got %d slots, want 8", len(slots))
	}
	// Seeds 1 and 2 draw the two byes in a 6-player bracket.
	want := []int{1, 0, 2, 0, 3, 6, 4, 5}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("slots = %v, want %v", slots, want)
		}
	}
}

func TestSeedSlotsRequiresTwo(t *testing.T) {
	if _, err := SeedSlots([]int{7}); err == nil {
		t.Error("expected error for a single participant")
	}
}

func TestRoundSessionsSkipByePairs(t *testing.T) {
	slots, err := SeedSlots([]int{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	sessions := RoundSessions(slots, 1)
	if want := FirstRoundSessionCount(6); len(sessions) != want {
		t.Fatalf("got %d sessions, want %d", len(sessions), want)
	}
	for _, s := range sessions {
		if s.Round != 1 {
			t.Errorf("session round = %d, want 1", s.Round)
		}
		for _, pid := range s.ParticipantIDs {
			if pid == 0 {
				t.Error("bye slot leaked into a session")
			}
		}
	}
	// Pairs 1 and 2 were byes, so the contested pairs keep OrderInRound 3 and 4.
	if sessions[0].OrderInRound != 3 || sessions[1].OrderInRound != 4 {
		t.Errorf("OrderInRound = %d,%d, want 3,4", sessions[0].OrderInRound, sessions[1].OrderInRound)
	}
}

func TestFirstRoundSessionCount(t *testing.T) {
	cases := map[int]int{2: 1, 3: 1, 4: 2, 5: 1, 6: 2, 7: 3, 8: 4}
	for n, want := range cases {
		if got := FirstRoundSessionCount(n); got != want {
			t.Errorf("FirstRoundSessionCount(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestAdvanceSlotsByesAdvanceSilently(t *testing.T) {
	slots := []int{1, 0, 2, 0, 3, 6, 4, 5}
	next, err := AdvanceSlots(slots, map[int]int{3: 3, 4: 5})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3, 5}
	for i := range want {
		if next[i] != want[i] {
			t.Fatalf("next = %v, want %v", next, want)
		}
	}
}

func TestAdvanceSlotsMissingWinner(t *testing.T) {
	if _, err := AdvanceSlots([]int{1, 2, 3, 4}, map[int]int{1: 1}); err == nil {
		t.Error("expected error when a contested pair has no winner")
	}
}

func TestAdvanceSlotsWinnerMustBelongToPair(t *testing.T) {
	if _, err := AdvanceSlots([]int{1, 2}, map[int]int{1: 9}); err == nil {
		t.Error("expected error for a winner outside the pair")
	}
}

func TestPairLosers(t *testing.T) {
	losers := PairLosers([]int{1, 4, 2, 3}, map[int]int{1: 1, 2: 3})
	if len(losers) != 2 || losers[0] != 4 || losers[1] != 2 {
		t.Errorf("losers = %v, want [4 2]", losers)
	}
}

// Walks an 8-player bracket to a champion: 3 rounds, 7 sessions total, and
// every later round is exactly half the size of the one before.
func TestEightPlayerBracketToChampion(t *testing.T) {
	slots, err := SeedSlots([]int{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}

	total := 0
	round := 1
	for len(slots) > 1 {
		sessions := RoundSessions(slots, round)
		if want := len(slots) / 2; len(sessions) != want {
			t.Fatalf("round %d: %d sessions, want %d", round, len(sessions), want)
		}
		total += len(sessions)

		// Higher slot index wins every pair.
		winners := map[int]int{}
		for _, s := range sessions {
			winners[s.OrderInRound] = int(s.ParticipantIDs[1])
		}
		slots, err = AdvanceSlots(slots, winners)
		if err != nil {
			t.Fatal(err)
		}
		round++
	}

	if total != 7 {
		t.Errorf("bracket played %d sessions, want 7", total)
	}
	if len(slots) != 1 || slots[0] == 0 {
		t.Fatalf("no champion left in slots %v", slots)
	}
}
