// Package encoder maps a round's critiques and the current round index into
// the fixed-dimension feature vector consumed by the value network.
package encoder

import (
	"math"

	"github.com/ahaiya/essaydeliberate/internal/domain"
)

// Dim is the feature vector dimension: mean, variance, min, confidence,
// round progress, and one reserved slot that is always zero.
const Dim = 6

// maxOverall is the normalization ceiling for per-round overall scores.
const maxOverall = 5.0

// maxRoundWindow bounds round-progress normalization: min(round/6, 1).
const maxRoundWindow = 6.0

// Encode computes the feature vector for the most recent round's critiques
// (a tail slice of length equal to the role count) and the current round
// index. An empty critiques slice returns the zero vector. Every returned
// component is finite and non-negative; components 0, 2, 3, 4 lie in [0,1].
func Encode(critiques []domain.Critique, round int) [Dim]float64 {
	var feat [Dim]float64
	if len(critiques) == 0 {
		return feat
	}

	overall := make([]float64, len(critiques))
	confidence := make([]float64, len(critiques))
	for i, c := range critiques {
		overall[i] = clamp(c.OverallScore, 0, maxOverall)
		confidence[i] = clamp(c.Confidence, 0, 1)
	}

	mean := meanOf(overall)
	variance := varianceOf(overall, mean)
	minV := minOf(overall)
	meanConf := meanOf(confidence)

	feat[0] = mean / maxOverall
	feat[1] = variance / maxOverall
	feat[2] = minV / maxOverall
	feat[3] = meanConf
	feat[4] = math.Min(float64(round)/maxRoundWindow, 1)
	feat[5] = 0.0

	return feat
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// varianceOf computes the population variance (divisor len(xs), not
// len(xs)-1), matching the source policy's statistics.
func varianceOf(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return sumSq / float64(len(xs))
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
