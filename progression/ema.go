// Package progression implements the exponential-moving-average skill model.
// Ratings live in [40.0, 99.0]; each tournament contributes one EMA step per
// skill, chained off the participant's rating as it stands at call time.
package progression

const (
	MinRating = 40.0
	MaxRating = 99.0

	// BaselineRating seeds a participant's first ever rating for a skill.
	BaselineRating = 50.0
)

func Clamp(v float64) float64 {
	if v < MinRating {
		return MinRating
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}

// Update performs one EMA step: new = clamp(prev*(1-alpha) + target*alpha).
func Update(prev, target, alpha float64) float64 {
	return Clamp(prev*(1-alpha) + target*alpha)
}
