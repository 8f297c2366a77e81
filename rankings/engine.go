package rankings

import (
	"fmt"
	"sort"
	"time"

	"github.com/fitclash/tournament-core/models"
)

// Engine input: the tournament's scoring configuration plus the sessions that
// carry results. Participants come out of the sessions' explicit participant
// lists, never out of a side query.
type Input struct {
	Format    models.TournamentFormat
	Mode      models.ScoringMode
	Direction models.RankingDirection
	Config    models.TournamentConfig
	Sessions  []models.Session
}

// Compute turns submitted results into ordered, tie-broken ranking rows.
// Rows come back sorted by rank; ranks follow competition ranking: equal
// values share a rank and the next distinct value's rank accounts for the
// tie-group size (scores [10,10,8] desc => ranks [1,1,3]).
func Compute(in Input) ([]models.RankingRow, error) {
	if in.Format == models.FormatHeadToHead {
		return headToHead(in)
	}
	switch in.Mode {
	case models.ScoringPlacement:
		return placement(in)
	case models.ScoringScoreBased, models.ScoringTimeBased, models.ScoringDistanceBased, models.ScoringSkillRating:
		return bestScore(in)
	default:
		return nil, fmt.Errorf("unsupported scoring mode %q", in.Mode)
	}
}

type aggregate struct {
	participantID int
	score         float64
	secondary     float64
	submittedAt   time.Time
	seen          bool
}

func placement(in Input) ([]models.RankingRow, error) {
	byID := map[int]*aggregate{}
	for si := range in.Sessions {
		s := &in.Sessions[si]
		res, err := s.ParseResult()
		if err != nil {
			return nil, fmt.Errorf("session %d: malformed result payload: %w", s.ID, err)
		}
		if res == nil {
			continue
		}
		for _, pid := range s.ParticipantIDs {
			entry, ok := res.Entry(int(pid))
			if !ok {
				continue
			}
			agg := byID[int(pid)]
			if agg == nil {
				agg = &aggregate{participantID: int(pid)}
				byID[int(pid)] = agg
			}
			p := float64(entry.Placement)
			if !agg.seen || p < agg.score || (p == agg.score && entry.SubmittedAt.Before(agg.submittedAt)) {
				agg.score = p
				agg.submittedAt = entry.SubmittedAt
				agg.seen = true
			}
		}
	}

	aggs := collect(byID)
	// Placement is the rank; participants sharing a placement are ordered by
	// earliest submission.
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].score != aggs[j].score {
			return aggs[i].score < aggs[j].score
		}
		if !aggs[i].submittedAt.Equal(aggs[j].submittedAt) {
			return aggs[i].submittedAt.Before(aggs[j].submittedAt)
		}
		return aggs[i].participantID < aggs[j].participantID
	})

	rows := make([]models.RankingRow, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, models.RankingRow{
			ParticipantID:   a.participantID,
			ParticipantType: models.ParticipantUser,
			Rank:            int(a.score),
			BestScore:       a.score,
			FinalValue:      a.score,
		})
	}
	return rows, nil
}

func bestScore(in Input) ([]models.RankingRow, error) {
	lowestWins := in.Direction == models.DirectionAsc

	byID := map[int]*aggregate{}
	for si := range in.Sessions {
		s := &in.Sessions[si]
		res, err := s.ParseResult()
		if err != nil {
			return nil, fmt.Errorf("session %d: malformed result payload: %w", s.ID, err)
		}
		if res == nil {
			continue
		}
		for _, pid := range s.ParticipantIDs {
			entry, ok := res.Entry(int(pid))
			if !ok {
				continue
			}
			agg := byID[int(pid)]
			if agg == nil {
				agg = &aggregate{participantID: int(pid)}
				byID[int(pid)] = agg
			}
			better := entry.Value > agg.score
			if lowestWins {
				better = entry.Value < agg.score
			}
			if !agg.seen || better {
				agg.score = entry.Value
				agg.seen = true
			}
		}
	}

	aggs := collect(byID)
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].score != aggs[j].score {
			if lowestWins {
				return aggs[i].score < aggs[j].score
			}
			return aggs[i].score > aggs[j].score
		}
		return aggs[i].participantID < aggs[j].participantID
	})

	rows := make([]models.RankingRow, 0, len(aggs))
	for i, a := range aggs {
		rank := i + 1
		// Ties are equal only when best_score values are numerically equal.
		// A comparison short-circuit here once collapsed every participant to
		// rank 1; compare the stored values, nothing else.
		if i > 0 && a.score == aggs[i-1].score {
			rank = rows[i-1].Rank
		}
		rows = append(rows, models.RankingRow{
			ParticipantID:   a.participantID,
			ParticipantType: models.ParticipantUser,
			Rank:            rank,
			BestScore:       a.score,
			FinalValue:      a.score,
		})
	}
	return rows, nil
}

func headToHead(in Input) ([]models.RankingRow, error) {
	winPts := float64(in.Config.WinPoints())
	drawPts := float64(in.Config.DrawPoints())

	byID := map[int]*aggregate{}
	get := func(pid int) *aggregate {
		agg := byID[pid]
		if agg == nil {
			agg = &aggregate{participantID: pid, seen: true}
			byID[pid] = agg
		}
		return agg
	}

	for si := range in.Sessions {
		s := &in.Sessions[si]
		if len(s.ParticipantIDs) != 2 {
			continue
		}
		res, err := s.ParseResult()
		if err != nil {
			return nil, fmt.Errorf("session %d: malformed result payload: %w", s.ID, err)
		}
		if res == nil {
			continue
		}
		p1, p2 := int(s.ParticipantIDs[0]), int(s.ParticipantIDs[1])
		e1, ok1 := res.Entry(p1)
		e2, ok2 := res.Entry(p2)
		if !ok1 || !ok2 {
			continue
		}
		a1, a2 := get(p1), get(p2)
		a1.secondary += e1.Value - e2.Value
		a2.secondary += e2.Value - e1.Value
		switch {
		case e1.Value > e2.Value:
			a1.score += winPts
		case e2.Value > e1.Value:
			a2.score += winPts
		default:
			a1.score += drawPts
			a2.score += drawPts
		}
	}

	aggs := collect(byID)
	pointsOf := func(a *aggregate) float64 {
		if in.Config.UseScoreDifferential {
			return a.secondary
		}
		return a.score
	}
	sort.Slice(aggs, func(i, j int) bool {
		pi, pj := pointsOf(aggs[i]), pointsOf(aggs[j])
		if pi != pj {
			return pi > pj
		}
		if aggs[i].secondary != aggs[j].secondary {
			return aggs[i].secondary > aggs[j].secondary
		}
		return aggs[i].participantID < aggs[j].participantID
	})

	rows := make([]models.RankingRow, 0, len(aggs))
	for i, a := range aggs {
		rank := i + 1
		if i > 0 && pointsOf(a) == pointsOf(aggs[i-1]) && a.secondary == aggs[i-1].secondary {
			rank = rows[i-1].Rank
		}
		rows = append(rows, models.RankingRow{
			ParticipantID:   a.participantID,
			ParticipantType: models.ParticipantUser,
			Rank:            rank,
			BestScore:       pointsOf(a),
			FinalValue:      a.secondary,
		})
	}
	return rows, nil
}

func collect(byID map[int]*aggregate) []*aggregate {
	aggs := make([]*aggregate, 0, len(byID))
	for _, a := range byID {
		if a.seen {
			aggs = append(aggs, a)
		}
	}
	return aggs
}
