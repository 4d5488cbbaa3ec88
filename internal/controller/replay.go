package controller

import (
	"math/rand"

	"github.com/ahaiya/essaydeliberate/internal/encoder"
)

// Action indexes the two Controller actions. Submit must stay index 0: the
// ε-greedy tie-break and the reward/penalty formulas depend on it.
type Action int

const (
	ActionSubmit Action = 0
	ActionDebate Action = 1
)

// State is the fixed-dimension feature vector produced by the encoder.
type State = [encoder.Dim]float64

// Transition is one (state, action, reward, next_state, terminal) tuple
// consumed by UpdatePolicy. Rewards are nonzero only on terminal
// transitions.
type Transition struct {
	State     State
	Action    Action
	Reward    float64
	NextState State
	Terminal  bool
}

// ReplayBuffer is a bounded FIFO of Transitions, sampled uniformly at
// random without replacement within a batch.
type ReplayBuffer struct {
	capacity int
	data     []Transition
	next     int
	full     bool
}

// NewReplayBuffer builds a buffer with the given capacity.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	return &ReplayBuffer{
		capacity: capacity,
		data:     make([]Transition, 0, capacity),
	}
}

// Store appends a transition, evicting the oldest when at capacity.
func (b *ReplayBuffer) Store(t Transition) {
	if len(b.data) < b.capacity {
		b.data = append(b.data, t)
		return
	}
	b.data[b.next] = t
	b.next = (b.next + 1) % b.capacity
	b.full = true
}

// Len returns the number of stored transitions.
func (b *ReplayBuffer) Len() int {
	return len(b.data)
}

// Sample draws batchSize transitions uniformly at random, without repeats
// within the batch. Panics if batchSize > Len(); callers must check first.
func (b *ReplayBuffer) Sample(batchSize int, rng *rand.Rand) []Transition {
	if batchSize > len(b.data) {
		panic("controller: sample size exceeds buffer length")
	}
	perm := rng.Perm(len(b.data))[:batchSize]
	out := make([]Transition, batchSize)
	for i, idx := range perm {
		out[i] = b.data[idx]
	}
	return out
}
