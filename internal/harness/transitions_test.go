package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahaiya/essaydeliberate/internal/runstate"
)

func TestMaterializeTransitionsTerminalRewardOnLastOnly(t *testing.T) {
	trace := []runstate.TracePoint{
		{State: [6]float64{1}, Action: 1},
		{State: [6]float64{2}, Action: 0},
	}
	transitions := materializeTransitions(trace, 0.75)

	require.Len(t, transitions, 2)
	assert.Equal(t, 0.0, transitions[0].Reward)
	assert.False(t, transitions[0].Terminal)
	assert.Equal(t, trace[1].State, transitions[0].NextState)

	assert.Equal(t, 0.75, transitions[1].Reward)
	assert.True(t, transitions[1].Terminal)
	assert.Equal(t, trace[1].State, transitions[1].NextState)
}

func TestMaterializeTransitionsSingleStepTrajectory(t *testing.T) {
	trace := []runstate.TracePoint{{State: [6]float64{9}, Action: 0}}
	transitions := materializeTransitions(trace, 1.0)

	require.Len(t, transitions, 1)
	assert.True(t, transitions[0].Terminal)
	assert.Equal(t, 1.0, transitions[0].Reward)
	assert.Equal(t, trace[0].State, transitions[0].NextState)
}
