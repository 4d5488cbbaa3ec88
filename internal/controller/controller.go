// Package controller implements the value-based panel-convergence
// controller: ε-greedy action selection over a two-layer value network, a
// replay buffer, Bellman-target computation against a soft-updated target
// network, and checkpoint I/O.
package controller

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ahaiya/essaydeliberate/internal/valuenet"
)

// softUpdateTau is the soft target-update blend factor, load-bearing for
// policy compatibility: preserve exactly.
const softUpdateTau = 0.01

// Controller wraps the policy/target value networks, the replay buffer, and
// the optimizer that trains the policy network against Bellman targets.
type Controller struct {
	Policy *valuenet.Network
	Target *valuenet.Network

	optimizer *valuenet.Adam
	buffer    *ReplayBuffer
	gamma     float64
	rng       *rand.Rand
}

// Config parameterizes the Controller's training step.
type Config struct {
	LearningRate float64
	Gamma        float64
	BufferSize   int
}

// New constructs a Controller with a freshly initialized policy network and
// a target network that is a structural clone with parameters copied at
// construction.
func New(cfg Config, rng *rand.Rand) *Controller {
	policy := valuenet.New(rng)
	target := policy.Clone()
	return &Controller{
		Policy:    policy,
		Target:    target,
		optimizer: valuenet.NewAdam(policy, cfg.LearningRate),
		buffer:    NewReplayBuffer(cfg.BufferSize),
		gamma:     cfg.Gamma,
		rng:       rng,
	}
}

// GetQValues performs a pure forward pass on a single state, no gradient.
func (c *Controller) GetQValues(state State) []float64 {
	x := mat.NewDense(1, valuenet.InputDim, state[:])
	out, _ := c.Policy.Forward(x)
	return []float64{out.At(0, 0), out.At(0, 1)}
}

// SelectAction picks an action via ε-greedy: with probability epsilon, pick
// uniformly from the two actions; otherwise argmax, ties broken toward the
// lower index (Submit).
func (c *Controller) SelectAction(state State, epsilon float64) Action {
	if c.rng.Float64() < epsilon {
		if c.rng.Float64() < 0.5 {
			return ActionSubmit
		}
		return ActionDebate
	}

	q := c.GetQValues(state)
	if q[ActionDebate] > q[ActionSubmit] {
		return ActionDebate
	}
	return ActionSubmit
}

// StoreTransition appends a transition to the replay buffer, evicting the
// oldest when at capacity.
func (c *Controller) StoreTransition(t Transition) {
	c.buffer.Store(t)
}

// BufferLen reports the number of transitions currently stored.
func (c *Controller) BufferLen() int {
	return c.buffer.Len()
}

// UpdatePolicy performs one gradient step against a uniformly sampled
// batch, returning the scalar MSE loss. Returns nil (no update) if the
// buffer holds fewer than batchSize transitions.
func (c *Controller) UpdatePolicy(batchSize int) *float64 {
	if c.buffer.Len() < batchSize {
		return nil
	}

	batch := c.buffer.Sample(batchSize, c.rng)

	statesData := make([]float64, 0, batchSize*valuenet.InputDim)
	nextStatesData := make([]float64, 0, batchSize*valuenet.InputDim)
	for _, t := range batch {
		statesData = append(statesData, t.State[:]...)
		nextStatesData = append(nextStatesData, t.NextState[:]...)
	}
	states := mat.NewDense(batchSize, valuenet.InputDim, statesData)
	nextStates := mat.NewDense(batchSize, valuenet.InputDim, nextStatesData)

	policyOut, cache := c.Policy.Forward(states)
	targetOut, _ := c.Target.Forward(nextStates)

	// dOut is zero everywhere except the taken-action column, where it
	// carries the MSE gradient 2*(current_q - expected_q)/batchSize.
	dOut := mat.NewDense(batchSize, valuenet.OutputDim, nil)
	var sumSqErr float64
	for i, t := range batch {
		maxNextQ := targetOut.At(i, 0)
		if v := targetOut.At(i, 1); v > maxNextQ {
			maxNextQ = v
		}
		terminalMul := 1.0
		if t.Terminal {
			terminalMul = 0.0
		}
		expectedQ := t.Reward + c.gamma*maxNextQ*terminalMul

		currentQ := policyOut.At(i, int(t.Action))
		err := currentQ - expectedQ
		sumSqErr += err * err
		dOut.Set(i, int(t.Action), 2*err/float64(batchSize))
	}
	loss := sumSqErr / float64(batchSize)

	grads := c.Policy.Backward(cache, dOut)
	c.optimizer.Apply(c.Policy, grads)

	valuenet.SoftUpdate(c.Target, c.Policy, softUpdateTau)

	return &loss
}
