// Package runstate defines the typed bag of fields that flows through the
// deliberation graph, along with the per-field merge rules the graph's
// reducers apply on every node return: append for critiques and the
// decision trace, overwrite for scalars, write-once for the submission.
package runstate

import (
	"fmt"

	"github.com/ahaiya/essaydeliberate/internal/domain"
)

// TracePoint is one (feature_vector, action) pair recorded by a Controller
// pass.
type TracePoint struct {
	State  [6]float64
	Action int
}

// DebugInfo captures the last Controller pass's diagnostics.
type DebugInfo struct {
	Round     int
	Action    int
	QSubmit   float64
	QDebate   float64
	Epsilon   float64
	ForcedEnd bool
}

// State is the run state threaded through one episode of the deliberation
// graph. Zero value is a valid, empty state.
type State struct {
	submissionSet bool
	Submission    domain.Subject

	// Reviews is append-only; len(Reviews) % len(roles) == 0 holds at
	// every Controller invocation.
	Reviews []domain.Critique

	CurrentRound int

	DQNAction int

	// Epsilon is write-once-per-episode. nil means "absent": the
	// Controller node falls back to the default of 0.05.
	Epsilon *float64

	// DQNTrace is append-only, one entry per Controller pass.
	DQNTrace []TracePoint

	DQNDebugInfo *DebugInfo
}

// New returns an initial run state for an episode: current_round=1, empty
// reviews and trace. Pass nil for epsilon to use the Controller node's
// default.
func New(subject domain.Subject, epsilon *float64) *State {
	s := &State{CurrentRound: 1, Epsilon: epsilon}
	s.SetSubmission(subject)
	return s
}

// SetSubmission sets the write-once submission field. A second call
// panics: the invariant is a programmer error, not a runtime condition.
func (s *State) SetSubmission(subject domain.Subject) {
	if s.submissionSet {
		panic(fmt.Sprintf("runstate: submission already set for subject %q", s.Submission.SubjectID))
	}
	s.Submission = subject
	s.submissionSet = true
}

// AppendReviews appends critiques to the append-only Reviews field.
func (s *State) AppendReviews(critiques ...domain.Critique) {
	s.Reviews = append(s.Reviews, critiques...)
}

// AppendTrace appends one (state, action) pair to the append-only
// DQNTrace field.
func (s *State) AppendTrace(point TracePoint) {
	s.DQNTrace = append(s.DQNTrace, point)
}

// TailReviews returns the most recent n critiques of Reviews (the current
// round's slice, where n is the configured role count), or nil if fewer
// than n are present.
func (s *State) TailReviews(n int) []domain.Critique {
	if n <= 0 || len(s.Reviews) < n {
		return nil
	}
	return s.Reviews[len(s.Reviews)-n:]
}

// defaultEpsilon is used by the Controller node when Epsilon is absent
// from run state.
const defaultEpsilon = 0.05

// EpsilonOrDefault returns Epsilon if set, otherwise the Controller node's
// default of 0.05.
func (s *State) EpsilonOrDefault() float64 {
	if s.Epsilon == nil {
		return defaultEpsilon
	}
	return *s.Epsilon
}

// PriorRoundReviews returns the critiques from the round immediately
// preceding CurrentRound (the tail slice of length roleCount), used as
// history injection on a loop back to fan-out. Returns nil before any
// round has completed.
func (s *State) PriorRoundReviews(roleCount int) []domain.Critique {
	return s.TailReviews(roleCount)
}
