package harness

import "math"

// epsilonSchedule computes the exploration rate for an episode index:
// ε(i) = ε_end + (ε_start - ε_end) * exp(-i / ε_decay).
func epsilonSchedule(episode int, start, end, decay float64) float64 {
	return end + (start-end)*math.Exp(-float64(episode)/decay)
}
