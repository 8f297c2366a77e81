package brackets

import (
	"testing"
)

func participants(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i
	}
	return ids
}

func TestAllocateGroupsBalanced(t *testing.T) {
	for n := 3; n <= 60; n++ {
		for _, maxSize := range []int{3, 4, 5, 6} {
			groups, err := AllocateGroups(participants(n), maxSize)
			if err != nil {
				t.Fatalf("n=%d max=%d: unexpected error: %v", n, maxSize, err)
			}

			wantGroups := (n + maxSize - 1) / maxSize
			if len(groups) != wantGroups {
				t.Errorf("n=%d max=%d: got %d groups, want %d", n, maxSize, len(groups), wantGroups)
			}

			total := 0
			minSize, maxSeen := n+1, 0
			seen := map[int]bool{}
			for _, g := range groups {
				total += len(g)
				if len(g) > maxSize {
					t.Errorf("n=%d max=%d: group size %d exceeds max", n, maxSize, len(g))
				}
				if len(g) < minSize {
					minSize = len(g)
				}
				if len(g) > maxSeen {
					maxSeen = len(g)
				}
				for _, id := range g {
					if seen[id] {
						t.Errorf("n=%d max=%d: participant %d assigned twice", n, maxSize, id)
					}
					seen[id] = true
				}
			}
			if total != n {
				t.Errorf("n=%d max=%d: %d participants assigned, want %d", n, maxSize, total, n)
			}
			if maxSeen-minSize > 1 {
				t.Errorf("n=%d max=%d: group sizes differ by %d", n, maxSize, maxSeen-minSize)
			}
		}
	}
}

func TestAllocateGroupsExamples(t *testing.T) {
	groups, err := AllocateGroups(participants(9), 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, g := range groups {
		if len(g) != 3 {
			t.Errorf("9 participants, max 3: group %d has size %d, want 3", i, len(g))
		}
	}

	groups, err = AllocateGroups(participants(11), 4)
	if err != nil {
		t.Fatal(err)
	}
	sizes := []int{}
	for _, g := range groups {
		sizes = append(sizes, len(g))
	}
	want := []int{4, 4, 3}
	if len(sizes) != len(want) {
		t.Fatalf("11 participants, max 4: got sizes %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("11 participants, max 4: got sizes %v, want %v", sizes, want)
		}
	}
}

func TestAllocateGroupsTooFew(t *testing.T) {
	if _, err := AllocateGroups(participants(2), 4); err == nil {
		t.Error("expected error for 2 participants")
	}
}

func TestGroupKeyNaming(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA"}
	for i, want := range cases {
		if got := GroupKey(i); got != want {
			t.Errorf("GroupKey(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestGroupSessionsFullRoundRobinPerGroup(t *testing.T) {
	groups, err := AllocateGroups(participants(11), 4)
	if err != nil {
		t.Fatal(err)
	}
	sessions := GroupSessions(groups)

	if want := GroupStageSessionCount(groups); len(sessions) != want {
		t.Fatalf("got %d sessions, want %d", len(sessions), want)
	}

	perGroup := map[string]int{}
	for _, s := range sessions {
		if s.GroupKey == nil {
			t.Fatal("group session without group key")
		}
		if len(s.ParticipantIDs) != 2 {
			t.Fatalf("group session with %d participants", len(s.ParticipantIDs))
		}
		perGroup[*s.GroupKey]++
	}
	// 4+4+3 participants: C(4,2)=6, C(4,2)=6, C(3,2)=3.
	for key, want := range map[string]int{"A": 6, "B": 6, "C": 3} {
		if perGroup[key] != want {
			t.Errorf("group %s: %d sessions, want %d", key, perGroup[key], want)
		}
	}
}

func TestHeatSessionsOnePerGroup(t *testing.T) {
	groups, err := AllocateGroups(participants(10), 4)
	if err != nil {
		t.Fatal(err)
	}
	sessions := HeatSessions(groups)
	if len(sessions) != len(groups) {
		t.Fatalf("got %d heats, want %d", len(sessions), len(groups))
	}
	for i, s := range sessions {
		if len(s.ParticipantIDs) != len(groups[i]) {
			t.Errorf("heat %d has %d participants, want %d", i, len(s.ParticipantIDs), len(groups[i]))
		}
		if s.OrderInRound != i+1 {
			t.Errorf("heat %d has order %d", i, s.OrderInRound)
		}
	}
}
