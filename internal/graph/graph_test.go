package graph

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahaiya/essaydeliberate/internal/controller"
	"github.com/ahaiya/essaydeliberate/internal/domain"
	"github.com/ahaiya/essaydeliberate/internal/evaluator"
)

// scriptedEvaluator returns a fixed sequence of overall scores, one per
// call, cycling if exhausted; it lets tests drive exact round-by-round
// scenarios without going through rubric loading or a language backend.
type scriptedEvaluator struct {
	role   string
	scores []float64
	calls  int
	failAt int // -1 disables
}

func (s *scriptedEvaluator) Role() string { return s.role }

func (s *scriptedEvaluator) Evaluate(_ context.Context, _ domain.Subject, _ []domain.Critique) (domain.Critique, error) {
	if s.failAt >= 0 && s.calls == s.failAt {
		s.calls++
		return domain.Critique{}, errors.New("simulated evaluator failure")
	}
	score := s.scores[s.calls%len(s.scores)]
	s.calls++
	return domain.Critique{
		Role:         s.role,
		OverallScore: score,
		Confidence:   0.9,
	}, nil
}

type fakeRegistry struct {
	evaluators map[string]*scriptedEvaluator
	roles      []string
}

func (f *fakeRegistry) Roles() []string { return f.roles }

func (f *fakeRegistry) Get(_ int, role string) (evaluator.Interface, error) {
	ev, ok := f.evaluators[role]
	if !ok {
		return nil, errors.New("unknown role")
	}
	return ev, nil
}

func newController() *controller.Controller {
	rng := rand.New(rand.NewSource(1))
	return controller.New(controller.Config{LearningRate: 0.001, Gamma: 0.95, BufferSize: 100}, rng)
}

func TestRouteAfterDecisionIsTotal(t *testing.T) {
	r, forced := routeAfterDecision(2, int(controller.ActionSubmit), 6)
	assert.Equal(t, routeEnd, r)
	assert.False(t, forced)

	r, forced = routeAfterDecision(2, int(controller.ActionDebate), 6)
	assert.Equal(t, routeFanout, r)
	assert.False(t, forced)

	r, forced = routeAfterDecision(7, int(controller.ActionDebate), 6)
	assert.Equal(t, routeEnd, r)
	assert.True(t, forced)

	r, forced = routeAfterDecision(7, int(controller.ActionSubmit), 6)
	assert.Equal(t, routeEnd, r)
	assert.True(t, forced)
}

func TestRoundBarrierInvariant(t *testing.T) {
	reg := &fakeRegistry{
		roles: []string{"R1", "R2", "R3"},
		evaluators: map[string]*scriptedEvaluator{
			"R1": {role: "R1", scores: []float64{3.0}, failAt: -1},
			"R2": {role: "R2", scores: []float64{3.0}, failAt: -1},
			"R3": {role: "R3", scores: []float64{3.0}, failAt: -1},
		},
	}
	g := New(reg, newController(), 6)

	result, err := g.Run(context.Background(), domain.Subject{SubjectID: "s1"}, nil)
	require.NoError(t, err)

	assert.Zero(t, len(result.State.Reviews)%len(reg.roles))
}

func TestEvaluatorFailureAbortsEpisode(t *testing.T) {
	reg := &fakeRegistry{
		roles: []string{"R1", "R2", "R3"},
		evaluators: map[string]*scriptedEvaluator{
			"R1": {role: "R1", scores: []float64{3.0}, failAt: -1},
			"R2": {role: "R2", scores: []float64{3.0}, failAt: 0},
			"R3": {role: "R3", scores: []float64{3.0}, failAt: -1},
		},
	}
	g := New(reg, newController(), 6)

	result, err := g.Run(context.Background(), domain.Subject{SubjectID: "s1"}, nil)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestMaxRoundsForcesTermination(t *testing.T) {
	// A controller whose policy network outputs near-zero for a
	// zero-ish encoded state can go either way; force determinism by
	// using epsilon=1 with a fixed-seed rng is still nondeterministic
	// per-call, so instead assert only the hard invariant: the episode
	// never exceeds max_rounds rounds of reviews.
	reg := &fakeRegistry{
		roles: []string{"R1", "R2", "R3"},
		evaluators: map[string]*scriptedEvaluator{
			"R1": {role: "R1", scores: []float64{1.0, 4.0}, failAt: -1},
			"R2": {role: "R2", scores: []float64{2.0, 4.0}, failAt: -1},
			"R3": {role: "R3", scores: []float64{3.0, 4.0}, failAt: -1},
		},
	}
	maxRounds := 3
	g := New(reg, newController(), maxRounds)

	result, err := g.Run(context.Background(), domain.Subject{SubjectID: "s1"}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.State.Reviews), maxRounds*len(reg.roles))
}
