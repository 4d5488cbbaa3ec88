package runstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahaiya/essaydeliberate/internal/domain"
)

func TestNewSetsCurrentRoundAndSubmission(t *testing.T) {
	subj := domain.Subject{SubjectID: "s1"}
	s := New(subj, nil)

	assert.Equal(t, 1, s.CurrentRound)
	assert.Equal(t, "s1", s.Submission.SubjectID)
	assert.Empty(t, s.Reviews)
	assert.Empty(t, s.DQNTrace)
}

func TestSetSubmissionSecondCallPanics(t *testing.T) {
	s := New(domain.Subject{SubjectID: "s1"}, nil)
	assert.Panics(t, func() {
		s.SetSubmission(domain.Subject{SubjectID: "s2"})
	})
}

func TestAppendReviewsIsCumulative(t *testing.T) {
	s := New(domain.Subject{}, nil)
	s.AppendReviews(domain.Critique{Role: "R1"})
	s.AppendReviews(domain.Critique{Role: "R2"}, domain.Critique{Role: "R3"})
	assert.Len(t, s.Reviews, 3)
}

func TestTailReviewsReturnsMostRecentRound(t *testing.T) {
	s := New(domain.Subject{}, nil)
	s.AppendReviews(domain.Critique{Role: "R1", OverallScore: 1})
	s.AppendReviews(domain.Critique{Role: "R2", OverallScore: 2})
	s.AppendReviews(domain.Critique{Role: "R1", OverallScore: 3})
	s.AppendReviews(domain.Critique{Role: "R2", OverallScore: 4})

	tail := s.TailReviews(2)
	assert.Equal(t, []domain.Critique{
		{Role: "R1", OverallScore: 3},
		{Role: "R2", OverallScore: 4},
	}, tail)
}

func TestTailReviewsNilWhenInsufficient(t *testing.T) {
	s := New(domain.Subject{}, nil)
	s.AppendReviews(domain.Critique{Role: "R1"})
	assert.Nil(t, s.TailReviews(2))
}

func TestEpsilonOrDefault(t *testing.T) {
	s := New(domain.Subject{}, nil)
	assert.Equal(t, 0.05, s.EpsilonOrDefault())

	eps := 0.3
	s2 := New(domain.Subject{}, &eps)
	assert.Equal(t, 0.3, s2.EpsilonOrDefault())
}
