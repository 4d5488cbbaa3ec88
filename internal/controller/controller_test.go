package controller

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(seed int64) *Controller {
	return New(Config{LearningRate: 0.01, Gamma: 0.9, BufferSize: 100}, rand.New(rand.NewSource(seed)))
}

func TestSelectActionEpsilonZeroIsPureArgmax(t *testing.T) {
	c := newTestController(1)
	state := State{}

	a := c.SelectAction(state, 0.0)
	q := c.GetQValues(state)

	if q[ActionDebate] > q[ActionSubmit] {
		assert.Equal(t, ActionDebate, a)
	} else {
		assert.Equal(t, ActionSubmit, a)
	}
}

func TestSelectActionTiesBreakTowardSubmit(t *testing.T) {
	c := newTestController(1)
	// Zero weights everywhere force Q(Submit) == Q(Debate) == 0 for any
	// input; the tie must resolve to Submit.
	c.Policy.W1.Zero()
	c.Policy.W2.Zero()
	c.Policy.W3.Zero()

	action := c.SelectAction(State{1, 2, 3, 4, 5, 6}, 0.0)
	assert.Equal(t, ActionSubmit, action)
}

func TestSelectActionEpsilonOneIsUniformOverActions(t *testing.T) {
	c := newTestController(2)
	state := State{}

	counts := map[Action]int{}
	for i := 0; i < 2000; i++ {
		counts[c.SelectAction(state, 1.0)]++
	}

	assert.InDelta(t, 1000, counts[ActionSubmit], 150)
	assert.InDelta(t, 1000, counts[ActionDebate], 150)
}

func TestStoreAndBufferLen(t *testing.T) {
	c := newTestController(3)
	assert.Equal(t, 0, c.BufferLen())
	c.StoreTransition(Transition{})
	assert.Equal(t, 1, c.BufferLen())
}

func TestUpdatePolicyNilBelowBatchSize(t *testing.T) {
	c := newTestController(4)
	c.StoreTransition(Transition{})
	assert.Nil(t, c.UpdatePolicy(4))
}

func TestUpdatePolicyReturnsLossAboveBatchSize(t *testing.T) {
	c := newTestController(5)
	for i := 0; i < 8; i++ {
		c.StoreTransition(Transition{
			State:     State{float64(i), 0, 0, 0, 0, 0},
			Action:    Action(i % 2),
			Reward:    1.0,
			NextState: State{},
			Terminal:  true,
		})
	}
	loss := c.UpdatePolicy(4)
	require.NotNil(t, loss)
	assert.GreaterOrEqual(t, *loss, 0.0)
}

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	c := newTestController(6)
	for i := 0; i < 8; i++ {
		c.StoreTransition(Transition{
			State:     State{float64(i), 0, 0, 0, 0, 0},
			Action:    Action(i % 2),
			Reward:    1.0,
			Terminal:  true,
		})
	}
	c.UpdatePolicy(4)

	path := filepath.Join(t.TempDir(), "ckpt.gob")
	require.NoError(t, c.Save(path, 42))

	fresh := newTestController(99)
	next, err := fresh.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, next)

	assert.Equal(t, c.Policy.W1.At(0, 0), fresh.Policy.W1.At(0, 0))
	assert.Equal(t, c.Policy.W3.At(0, 0), fresh.Target.W3.At(0, 0))
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	c := newTestController(7)
	_, err := c.Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}
