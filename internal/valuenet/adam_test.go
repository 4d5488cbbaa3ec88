package valuenet

import (
	"bytes"
	"encoding/gob"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAdamApplyReducesParameterTowardNegativeGradient(t *testing.T) {
	n := New(rand.New(rand.NewSource(1)))
	opt := NewAdam(n, 0.1)

	before := n.W1.At(0, 0)
	grads := &Gradients{
		DW1: onesLike(n.W1), DB1: onesLike(n.B1),
		DW2: onesLike(n.W2), DB2: onesLike(n.B2),
		DW3: onesLike(n.W3), DB3: onesLike(n.B3),
	}
	opt.Apply(n, grads)

	assert.Less(t, n.W1.At(0, 0), before)
	assert.Equal(t, 1, opt.Step)
}

func TestSoftUpdateBlendsTowardPolicy(t *testing.T) {
	policy := New(rand.New(rand.NewSource(2)))
	target := New(rand.New(rand.NewSource(3)))

	targetBefore := target.W1.At(0, 0)
	policyVal := policy.W1.At(0, 0)

	SoftUpdate(target, policy, 0.01)

	want := 0.01*policyVal + 0.99*targetBefore
	assert.InDelta(t, want, target.W1.At(0, 0), 1e-12)
}

func TestSoftUpdateTauOneCopiesPolicyExactly(t *testing.T) {
	policy := New(rand.New(rand.NewSource(4)))
	target := New(rand.New(rand.NewSource(5)))

	SoftUpdate(target, policy, 1.0)
	assert.Equal(t, policy.W1.At(0, 0), target.W1.At(0, 0))
	assert.Equal(t, policy.W3.At(0, 0), target.W3.At(0, 0))
}

func TestAdamGobRoundTripPreservesMoments(t *testing.T) {
	n := New(rand.New(rand.NewSource(6)))
	opt := NewAdam(n, 0.01)
	grads := &Gradients{
		DW1: onesLike(n.W1), DB1: onesLike(n.B1),
		DW2: onesLike(n.W2), DB2: onesLike(n.B2),
		DW3: onesLike(n.W3), DB3: onesLike(n.B3),
	}
	opt.Apply(n, grads)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(opt))

	var decoded Adam
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	assert.Equal(t, opt.Step, decoded.Step)
	assert.Equal(t, opt.MW1.At(0, 0), decoded.MW1.At(0, 0))
	assert.Equal(t, opt.VW3.At(0, 0), decoded.VW3.At(0, 0))
}

func onesLike(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	data := make([]float64, r*c)
	for i := range data {
		data[i] = 1
	}
	return mat.NewDense(r, c, data)
}
