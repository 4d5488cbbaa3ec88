// Package mockeval implements a deterministic simulator used for offline
// controller-training experiments without a language model. It satisfies
// evaluator.Interface structurally, so the Registry can hand it to the
// deliberation graph's role nodes interchangeably with a production
// Evaluator.
package mockeval

import (
	"context"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ahaiya/essaydeliberate/internal/domain"
)

// scoreMin/scoreMax bound the overall-score clamp range.
const (
	scoreMin = 0.0
	scoreMax = 5.0
)

// Config parameterizes the mock evaluator's convergence behavior.
type Config struct {
	ConvergenceRate  float64 // p: probability of a convergent step
	NoiseLevel       float64 // σ: first-round noise standard deviation
	ConvergenceSpeed float64 // α: fraction of the gap to gt closed per convergent step
}

// MockEvaluator deterministically simulates a role's scoring behavior given
// a ground-truth score derived from subject metadata.
type MockEvaluator struct {
	RoleName string
	cfg      Config
	rng      *rand.Rand
}

// New constructs a MockEvaluator bound to roleName, drawing noise from rng.
func New(roleName string, cfg Config, rng *rand.Rand) *MockEvaluator {
	return &MockEvaluator{RoleName: roleName, cfg: cfg, rng: rng}
}

// Role returns the bound role name.
func (m *MockEvaluator) Role() string {
	return m.RoleName
}

// Evaluate never fails: on the first round it emits gt + N(0, σ); on later
// rounds it retrieves this role's prior overall score from previousReviews
// and, with probability p, takes a convergent step toward gt, otherwise a
// noisy drift step. Confidence is fixed at 0.9.
func (m *MockEvaluator) Evaluate(_ context.Context, subject domain.Subject, previousReviews []domain.Critique) (domain.Critique, error) {
	gt := groundTruth(subject)

	var overall float64
	if len(previousReviews) == 0 {
		overall = gt + m.normal(0, m.cfg.NoiseLevel)
	} else {
		prev, found := m.priorScore(previousReviews)
		if !found {
			overall = gt + m.normal(0, m.cfg.NoiseLevel)
		} else if m.rng.Float64() < m.cfg.ConvergenceRate {
			overall = prev + m.cfg.ConvergenceSpeed*(gt-prev) + m.normal(0, 0.1)
		} else {
			overall = prev + m.normal(0, 0.5*m.cfg.NoiseLevel)
		}
	}
	overall = clamp(overall, scoreMin, scoreMax)

	return domain.Critique{
		Role:           m.RoleName,
		ThoughtProcess: "mock evaluator: deterministic convergence simulation",
		Scores: []domain.ScoreItem{
			{Indicator: "overall", Score: overall, Evidence: "simulated", Comment: "mock evaluator placeholder"},
		},
		OverallScore: overall,
		Confidence:   0.9,
	}, nil
}

// priorScore returns this role's overall score from the most recent round
// of previousReviews.
func (m *MockEvaluator) priorScore(previousReviews []domain.Critique) (float64, bool) {
	for i := len(previousReviews) - 1; i >= 0; i-- {
		if previousReviews[i].Role == m.RoleName {
			return previousReviews[i].OverallScore, true
		}
	}
	return 0, false
}

func (m *MockEvaluator) normal(mean, stddev float64) float64 {
	if stddev <= 0 {
		return mean
	}
	n := distuv.Normal{Mu: mean, Sigma: stddev, Src: m.rng}
	return n.Rand()
}

// groundTruth rescales the subject's original corpus score to [0, 5], the
// same target range the reward function compares predictions against.
func groundTruth(subject domain.Subject) float64 {
	if subject.Metadata.RawMaxScore <= 0 {
		return 0
	}
	gt := (subject.Metadata.OriginalScore / subject.Metadata.RawMaxScore) * scoreMax
	return clamp(gt, scoreMin, scoreMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
